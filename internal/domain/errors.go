package domain

import "errors"

var (
	// ErrMalformedSource marks a structurally invalid input file or section.
	ErrMalformedSource = errors.New("malformed source")

	// ErrMalformedGeometry marks a geometry with the wrong coordinate arity or
	// an unsupported geometry type.
	ErrMalformedGeometry = errors.New("malformed geometry")

	// ErrAggregationFailure marks a pipeline stage error surfaced by the store.
	ErrAggregationFailure = errors.New("aggregation failure")

	// ErrStoreUnavailable marks a connectivity failure at the store boundary.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a lookup by identity matches no document.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument marks a caller-supplied parameter outside its domain,
	// such as a zero page size or an empty hour window.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotAnOwner is returned when a user variant that cannot own stations or
	// reports is asked for an owner subset.
	ErrNotAnOwner = errors.New("user cannot own stations or reports")
)
