package report

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

// RenameStep names one stage of owner-rename propagation. Steps run in the
// order reports, stations, user.
type RenameStep string

const (
	StepReports  RenameStep = "reports"
	StepStations RenameStep = "stations"
	StepUser     RenameStep = "user"
	StepDone     RenameStep = "done"
)

// RenameProgress records how far a rename got. A progress whose Next is not
// StepDone can be passed to ResumeRename after a failure.
type RenameProgress struct {
	UserID          string
	NewName         string
	NameField       string
	Next            RenameStep
	ReportsRenamed  int64
	StationsRenamed int64
}

// Done reports whether every step completed.
func (p RenameProgress) Done() bool { return p.Next == StepDone }

func (s *Service) loadUser(ctx context.Context, userID string) (domain.UserDoc, error) {
	var doc domain.UserDoc
	if err := s.store.FindOne(ctx, domain.CollectionUsers, bson.D{{Key: "_id", Value: userID}}, nil, &doc); err != nil {
		return domain.UserDoc{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	return doc, nil
}

// RenameOwner changes the display name of an owning user everywhere it is
// embedded: every report (bumping version), every station, then the user
// document itself. The steps are not transactional; on failure the returned
// progress names the step to resume from.
func (s *Service) RenameOwner(ctx context.Context, userID, newName string) (RenameProgress, error) {
	if newName == "" {
		return RenameProgress{}, fmt.Errorf("%w: empty owner name", domain.ErrInvalidArgument)
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return RenameProgress{}, err
	}
	field, err := domain.OwnerNameField(user.UserType)
	if err != nil {
		return RenameProgress{}, fmt.Errorf("rename %s: %w", userID, err)
	}
	return s.ResumeRename(ctx, RenameProgress{
		UserID:    userID,
		NewName:   newName,
		NameField: field,
		Next:      StepReports,
	})
}

// ResumeRename runs the remaining steps of p. Each step only touches
// documents that do not already carry the new name, so repeating a step that
// partially applied is safe and does not bump versions twice.
func (s *Service) ResumeRename(ctx context.Context, p RenameProgress) (RenameProgress, error) {
	pending := bson.D{
		{Key: "owner.user_id", Value: p.UserID},
		{Key: "owner.name", Value: bson.D{{Key: "$ne", Value: p.NewName}}},
	}
	rename := bson.E{Key: "$set", Value: bson.D{{Key: "owner.name", Value: p.NewName}}}

	for p.Next != StepDone {
		if err := ctx.Err(); err != nil {
			return p, err
		}
		switch p.Next {
		case StepReports:
			update := bson.D{rename, versionBump(), lastModifiedAtLeast(domain.Now(s.clock))}
			n, err := s.store.UpdateMany(ctx, domain.CollectionWeatherReports, pending, update)
			if err != nil {
				return p, fmt.Errorf("rename %s in reports: %w", p.UserID, err)
			}
			p.ReportsRenamed += n
			s.metrics.VersionBumps.WithLabelValues("rename_owner").Add(float64(n))
			p.Next = StepStations
		case StepStations:
			n, err := s.store.UpdateMany(ctx, domain.CollectionWeatherStations, pending, bson.D{rename})
			if err != nil {
				return p, fmt.Errorf("rename %s in stations: %w", p.UserID, err)
			}
			p.StationsRenamed += n
			s.stations.Purge()
			p.Next = StepUser
		case StepUser:
			field := p.NameField
			if field == "" {
				return p, fmt.Errorf("rename %s: progress has no name field", p.UserID)
			}
			update := bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: p.NewName}}}}
			if _, err := s.store.UpdateOne(ctx, domain.CollectionUsers, bson.D{{Key: "_id", Value: p.UserID}}, update); err != nil {
				return p, fmt.Errorf("rename %s in users: %w", p.UserID, err)
			}
			p.Next = StepDone
		default:
			return p, fmt.Errorf("rename %s: unknown step %q", p.UserID, p.Next)
		}
	}

	s.logger.Info("owner renamed",
		"user_id", p.UserID,
		"reports", p.ReportsRenamed,
		"stations", p.StationsRenamed,
	)
	return p, nil
}

// OwnerNames lists the names an owner appears under in each collection.
type OwnerNames struct {
	UserID    string   `json:"user_id"`
	Canonical string   `json:"canonical"`
	Reports   []string `json:"reports"`
	Stations  []string `json:"stations"`
}

// Divergent lists the collections holding a name other than the canonical
// one. A non-empty result after a rename means propagation stopped partway.
func (n OwnerNames) Divergent() []string {
	var out []string
	differs := func(names []string) bool {
		return slices.ContainsFunc(names, func(s string) bool { return s != n.Canonical })
	}
	if differs(n.Reports) {
		out = append(out, domain.CollectionWeatherReports)
	}
	if differs(n.Stations) {
		out = append(out, domain.CollectionWeatherStations)
	}
	return out
}

// Consistent reports whether every embedded copy matches the user document.
func (n OwnerNames) Consistent() bool { return len(n.Divergent()) == 0 }

// OwnerNameConsistency collects the distinct embedded names of userID next to
// the canonical name in the users collection.
func (s *Service) OwnerNameConsistency(ctx context.Context, userID string) (OwnerNames, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return OwnerNames{}, err
	}
	names := OwnerNames{UserID: userID, Canonical: user.OwnerName()}
	filter := bson.D{{Key: "owner.user_id", Value: userID}}

	if names.Reports, err = s.distinctNames(ctx, domain.CollectionWeatherReports, filter); err != nil {
		return OwnerNames{}, err
	}
	if names.Stations, err = s.distinctNames(ctx, domain.CollectionWeatherStations, filter); err != nil {
		return OwnerNames{}, err
	}
	return names, nil
}

func (s *Service) distinctNames(ctx context.Context, collection string, filter bson.D) ([]string, error) {
	values, err := s.store.Distinct(ctx, collection, "owner.name", filter)
	if err != nil {
		return nil, fmt.Errorf("distinct owner names in %s: %w", collection, err)
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}
