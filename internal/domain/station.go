package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Station status values observed in practice. Status is free text.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
)

// Technician is a maintenance engineer, keyed by its own identifier.
type Technician struct {
	ID        string `bson:"_id" json:"tech_id"`
	Name      string `bson:"name" json:"name"`
	Company   string `bson:"company" json:"company"`
	Email     string `bson:"email" json:"email"`
	Telephone string `bson:"telephone" json:"telephone"`
}

// MaintenanceLogItem is an append-only maintenance event.
type MaintenanceLogItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	StationID string             `bson:"station_id" json:"station_id"`
	TechID    string             `bson:"tech_id" json:"tech_id"`
	Report    string             `bson:"report" json:"report"`
}

// MaintenanceSubset is the copy of a log item embedded in its station.
type MaintenanceSubset struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	TechID    string    `bson:"tech_id" json:"tech_id"`
	Report    string    `bson:"report" json:"report"`
}

// StationSubset projects the log item for a station's latest_maintenance.
func (m MaintenanceLogItem) StationSubset() MaintenanceSubset {
	return MaintenanceSubset{Timestamp: m.Timestamp, TechID: m.TechID, Report: m.Report}
}

// WeatherStation is a fixed sensor platform. ID is the document primary key.
type WeatherStation struct {
	ID                string
	Name              string
	Location          Point
	Owner             User
	Status            string
	LatestMaintenance *MaintenanceLogItem
}

// StationDoc is the storage projection of a weather station.
type StationDoc struct {
	ID                string             `bson:"_id" json:"station_id"`
	Name              string             `bson:"name" json:"name"`
	Location          Point              `bson:"location" json:"location"`
	Owner             OwnerSubset        `bson:"owner" json:"owner"`
	Status            string             `bson:"status" json:"status"`
	LatestMaintenance *MaintenanceSubset `bson:"latest_maintenance,omitempty" json:"latest_maintenance,omitempty"`
}

// StationRef is the station subset embedded in weather reports.
type StationRef struct {
	StationID string `bson:"station_id" json:"station_id"`
	Name      string `bson:"name" json:"name"`
}

// StorageDoc projects the station into its collection document.
func (s WeatherStation) StorageDoc() (StationDoc, error) {
	owner, err := StationOwnerSubset(s.Owner)
	if err != nil {
		return StationDoc{}, fmt.Errorf("project station %s: %w", s.ID, err)
	}
	doc := StationDoc{
		ID:       s.ID,
		Name:     s.Name,
		Location: s.Location,
		Owner:    owner,
		Status:   s.Status,
	}
	if s.LatestMaintenance != nil {
		sub := s.LatestMaintenance.StationSubset()
		doc.LatestMaintenance = &sub
	}
	return doc, nil
}

// ReportRef projects the station for embedding in a weather report.
func (s WeatherStation) ReportRef() StationRef {
	return StationRef{StationID: s.ID, Name: s.Name}
}

// ReportRef projects a stored station for embedding in a weather report.
func (d StationDoc) ReportRef() StationRef {
	return StationRef{StationID: d.ID, Name: d.Name}
}

// GroundStation is the launch site of a weather balloon.
type GroundStation struct {
	ID    string
	Name  string
	Owner User
}

// GroundStationRef is the ground station subset embedded in balloon reports.
type GroundStationRef struct {
	StationID string      `bson:"station_id" json:"station_id"`
	Name      string      `bson:"name" json:"name"`
	Owner     OwnerSubset `bson:"owner" json:"owner"`
}

// BalloonRef projects the ground station for a balloon report.
func (g GroundStation) BalloonRef() (GroundStationRef, error) {
	owner, err := StationOwnerSubset(g.Owner)
	if err != nil {
		return GroundStationRef{}, fmt.Errorf("project ground station %s: %w", g.ID, err)
	}
	return GroundStationRef{StationID: g.ID, Name: g.Name, Owner: owner}, nil
}
