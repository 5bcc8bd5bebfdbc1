package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/report"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type counter interface {
	Distinct(ctx context.Context, collection, field string, filter any) ([]any, error)
	CountDocuments(ctx context.Context, collection string, filter any) (int64, error)
}

type renamer interface {
	OwnerNameConsistency(ctx context.Context, userID string) (report.OwnerNames, error)
	RenameOwner(ctx context.Context, userID, newName string) (report.RenameProgress, error)
}

type validator struct {
	store   counter
	renames renamer
	resume  bool
	clock   clockwork.Clock
}

// renameTarget picks the name a stalled rename was heading for. Reports are
// renamed first, so a single non-canonical name there is the target.
func renameTarget(n report.OwnerNames) (string, bool) {
	var names []string
	for _, s := range append(slices.Clone(n.Reports), n.Stations...) {
		if s != n.Canonical && !slices.Contains(names, s) {
			names = append(names, s)
		}
	}
	if len(names) != 1 {
		return "", false
	}
	return names[0], true
}

func (v *validator) ownerNames(ctx context.Context) *phase {
	p := &phase{name: "Owner name consistency"}

	ids, err := v.store.Distinct(ctx, domain.CollectionUsers, "_id", bson.D{})
	if err != nil {
		p.errorf("list users: %v", err)
		return p
	}
	for _, raw := range ids {
		userID, ok := raw.(string)
		if !ok {
			continue
		}
		names, err := v.renames.OwnerNameConsistency(ctx, userID)
		if err != nil {
			p.errorf("%s: %v", userID, err)
			continue
		}
		if names.Consistent() {
			continue
		}
		target, ok := renameTarget(names)
		if !v.resume || !ok {
			p.errorf("%s: canonical %q, reports %q, stations %q (divergent in %v)",
				userID, names.Canonical, names.Reports, names.Stations, names.Divergent())
			continue
		}
		progress, err := v.renames.RenameOwner(ctx, userID, target)
		if err != nil {
			p.errorf("%s: resume rename to %q stopped at %s: %v", userID, target, progress.Next, err)
			continue
		}
		fmt.Printf("  resumed rename of %s to %q (%d reports, %d stations)\n",
			userID, target, progress.ReportsRenamed, progress.StationsRenamed)
	}
	return p
}

func (v *validator) reportVersions(ctx context.Context) *phase {
	p := &phase{name: "Report versions"}
	v.expectNone(ctx, p, "reports below the initial version",
		bson.D{{Key: "version", Value: bson.D{{Key: "$lt", Value: domain.InitialVersion}}}})
	v.expectNone(ctx, p, "reports without a version",
		bson.D{{Key: "version", Value: bson.D{{Key: "$exists", Value: false}}}})
	return p
}

func (v *validator) lastModified(ctx context.Context) *phase {
	p := &phase{name: "Report last_modified"}
	v.expectNone(ctx, p, "reports without last_modified",
		bson.D{{Key: "last_modified", Value: bson.D{{Key: "$exists", Value: false}}}})
	v.expectNone(ctx, p, "reports modified before their own day",
		bson.D{{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$last_modified", "$date"}}}}})
	v.expectNone(ctx, p, "reports modified in the future",
		bson.D{{Key: "last_modified", Value: bson.D{{Key: "$gt", Value: domain.Now(v.clock)}}}})
	return p
}

func (v *validator) expectNone(ctx context.Context, p *phase, what string, filter bson.D) {
	n, err := v.store.CountDocuments(ctx, domain.CollectionWeatherReports, filter)
	if err != nil {
		p.errorf("count %s: %v", what, err)
		return
	}
	if n > 0 {
		p.errorf("%d %s", n, what)
	}
}
