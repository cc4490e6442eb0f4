package domain

import "fmt"

// ValidationError indicates bad input shape: an unknown asset class, a
// negative quantity, a custom period missing its bounds. Surfaced to the
// caller immediately with no partial effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NotFoundError indicates a query range with no data at all.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ExternalFetchError indicates an unavailable external feed (benchmark or
// holdings). Callers absorb it and degrade: a missing benchmark close becomes
// a null field, never a failed aggregation.
type ExternalFetchError struct {
	Source string
	Err    error
}

func (e *ExternalFetchError) Error() string {
	return fmt.Sprintf("external fetch from %s failed: %v", e.Source, e.Err)
}

func (e *ExternalFetchError) Unwrap() error {
	return e.Err
}

// ConsistencyError indicates a snapshot referencing an instrument that does
// not exist. This is a caller bug: ids must come from the registry.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string {
	return "consistency violation: " + e.Detail
}
