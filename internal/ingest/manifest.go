package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

// User kinds accepted in a manifest.
const (
	KindInstitution = "institution"
	KindWatcher     = "watcher"
	KindAdmin       = "admin"
)

// Manifest lists everything the importer loads, with file paths relative to
// the manifest's directory.
type Manifest struct {
	Users        []UserEntry         `json:"users"`
	Technicians  []domain.Technician `json:"technicians"`
	Maintenance  MaintenanceWindow   `json:"maintenance"`
	Stations     []StationEntry      `json:"stations"`
	Balloons     []BalloonEntry      `json:"balloons"`
	Observations []ObservationEntry  `json:"observations"`
}

// UserEntry is a user with a plaintext password, hashed at import.
type UserEntry struct {
	Kind            string `json:"kind"`
	ID              string `json:"id"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	DisplayName     string `json:"display_name,omitempty"`
	InstitutionType string `json:"institution_type,omitempty"`
	Contact         string `json:"contact,omitempty"`
	Email           string `json:"email"`
	Telephone       string `json:"telephone,omitempty"`
}

// MaintenanceWindow bounds the synthetic maintenance logs.
type MaintenanceWindow struct {
	Seed  uint64 `json:"seed"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// StationEntry is one station export to import.
type StationEntry struct {
	StationID   string   `json:"station_id"`
	Name        string   `json:"name"`
	File        string   `json:"file"`
	Owner       string   `json:"owner"`
	Technicians []string `json:"technicians,omitempty"`
}

// BalloonEntry is one radiosonde launch to import.
type BalloonEntry struct {
	Launch      time.Time `json:"launch"`
	StationID   string    `json:"station_id"`
	StationName string    `json:"station_name"`
	File        string    `json:"file"`
	Owner       string    `json:"owner"`
}

// ObservationEntry is a manual report holding a single observation.
type ObservationEntry struct {
	Owner       string             `json:"owner"`
	Date        string             `json:"date"`
	Lat         float64            `json:"lat"`
	Lon         float64            `json:"lon"`
	Observation domain.Observation `json:"observation"`
	Photo       string             `json:"photo,omitempty"`
}

// ReadManifest decodes and validates a manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", domain.ErrMalformedSource, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	users := make(map[string]string, len(m.Users))
	for _, u := range m.Users {
		if u.ID == "" {
			return fmt.Errorf("%w: user without id", domain.ErrMalformedSource)
		}
		switch u.Kind {
		case KindInstitution, KindWatcher, KindAdmin:
		default:
			return fmt.Errorf("%w: user %s has unknown kind %q", domain.ErrMalformedSource, u.ID, u.Kind)
		}
		if _, dup := users[u.ID]; dup {
			return fmt.Errorf("%w: duplicate user %s", domain.ErrMalformedSource, u.ID)
		}
		users[u.ID] = u.Kind
	}

	techs := make(map[string]struct{}, len(m.Technicians))
	for _, t := range m.Technicians {
		techs[t.ID] = struct{}{}
	}

	owner := func(what, id string) error {
		kind, ok := users[id]
		if !ok {
			return fmt.Errorf("%w: %s references unknown owner %q", domain.ErrMalformedSource, what, id)
		}
		if kind == KindAdmin {
			return fmt.Errorf("%w: %s owner %q: %w", domain.ErrMalformedSource, what, id, domain.ErrNotAnOwner)
		}
		return nil
	}

	for _, s := range m.Stations {
		if err := owner("station "+s.StationID, s.Owner); err != nil {
			return err
		}
		for _, t := range s.Technicians {
			if _, ok := techs[t]; !ok {
				return fmt.Errorf("%w: station %s references unknown technician %q", domain.ErrMalformedSource, s.StationID, t)
			}
		}
	}
	for _, b := range m.Balloons {
		if err := owner("balloon "+b.StationID, b.Owner); err != nil {
			return err
		}
	}
	for _, o := range m.Observations {
		if err := owner("observation", o.Owner); err != nil {
			return err
		}
		if _, err := time.Parse(dailyLayout, o.Date); err != nil {
			return fmt.Errorf("%w: observation date %q: %v", domain.ErrMalformedSource, o.Date, err)
		}
	}
	if len(m.Stations) > 0 && m.Maintenance.Start != "" {
		if _, _, err := m.Maintenance.bounds(); err != nil {
			return err
		}
	}
	return nil
}

func (w MaintenanceWindow) bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(dailyLayout, w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: maintenance start: %v", domain.ErrMalformedSource, err)
	}
	end, err := time.Parse(dailyLayout, w.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: maintenance end: %v", domain.ErrMalformedSource, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: maintenance window ends before it starts", domain.ErrMalformedSource)
	}
	return start, end, nil
}

// User builds the domain user for an entry given its password hash.
func (u UserEntry) User(hash string) domain.User {
	switch u.Kind {
	case KindWatcher:
		return &domain.WeatherWatcher{ID: u.ID, PasswordHash: hash, DisplayName: u.DisplayName, Name: u.Name, Email: u.Email}
	case KindAdmin:
		return &domain.Administrator{ID: u.ID, PasswordHash: hash, Name: u.Name, Email: u.Email}
	default:
		return &domain.Institution{
			ID:              u.ID,
			PasswordHash:    hash,
			Name:            u.Name,
			InstitutionType: u.InstitutionType,
			Contact:         u.Contact,
			Email:           u.Email,
			Telephone:       u.Telephone,
		}
	}
}
