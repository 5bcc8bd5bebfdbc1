// Package aggregate describes the analytical and materializing queries over
// the weather store as pipelines-as-data: ordered lists of typed stages that
// can be inspected, logged, and compared before they are sent to the store.
package aggregate

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stage is one pipeline operation, such as "$match" with its specification.
type Stage struct {
	Op   string
	Spec any
}

// BSON renders the stage as a single-key document.
func (s Stage) BSON() bson.D {
	return bson.D{{Key: s.Op, Value: s.Spec}}
}

func Match(filter bson.D) Stage   { return Stage{Op: "$match", Spec: filter} }
func Unwind(path string) Stage    { return Stage{Op: "$unwind", Spec: path} }
func Group(spec bson.D) Stage     { return Stage{Op: "$group", Spec: spec} }
func Project(spec bson.D) Stage   { return Stage{Op: "$project", Spec: spec} }
func AddFields(spec bson.D) Stage { return Stage{Op: "$addFields", Spec: spec} }
func Sort(spec bson.D) Stage      { return Stage{Op: "$sort", Spec: spec} }
func Skip(n int64) Stage          { return Stage{Op: "$skip", Spec: n} }
func Limit(n int64) Stage         { return Stage{Op: "$limit", Spec: n} }
func Count(field string) Stage    { return Stage{Op: "$count", Spec: field} }
func Out(collection string) Stage { return Stage{Op: "$out", Spec: collection} }
func GeoNear(spec bson.D) Stage   { return Stage{Op: "$geoNear", Spec: spec} }
func Facet(branches bson.D) Stage { return Stage{Op: "$facet", Spec: branches} }
func Lookup(from, local, foreign, as string) Stage {
	return Stage{Op: "$lookup", Spec: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: local},
		{Key: "foreignField", Value: foreign},
		{Key: "as", Value: as},
	}}
}

// Merge upserts the pipeline output into collection keyed by on, replacing
// matched documents.
func Merge(collection, on string) Stage {
	return Stage{Op: "$merge", Spec: bson.D{
		{Key: "into", Value: collection},
		{Key: "on", Value: on},
		{Key: "whenMatched", Value: "replace"},
		{Key: "whenNotMatched", Value: "insert"},
	}}
}

// Pipeline is a named, ordered list of stages run against one collection.
type Pipeline struct {
	Name       string
	Collection string
	Stages     []Stage
}

// BSON renders the pipeline in the form the driver accepts.
func (p Pipeline) BSON() mongo.Pipeline {
	out := make(mongo.Pipeline, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = s.BSON()
	}
	return out
}

// Ops lists the stage operators in order.
func (p Pipeline) Ops() []string {
	ops := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		ops[i] = s.Op
	}
	return ops
}

// Materializes reports whether the pipeline writes its output to a
// collection instead of returning rows.
func (p Pipeline) Materializes() bool {
	if len(p.Stages) == 0 {
		return false
	}
	op := p.Stages[len(p.Stages)-1].Op
	return op == "$out" || op == "$merge"
}

// String renders the stages as relaxed extended JSON for logging.
func (p Pipeline) String() string {
	data, err := bson.MarshalExtJSON(bson.D{{Key: "pipeline", Value: p.BSON()}}, false, false)
	if err != nil {
		return p.Name + ": <unprintable pipeline: " + err.Error() + ">"
	}
	return string(data)
}
