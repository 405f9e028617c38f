package plan

import "errors"

// Errors reported while a query is being built, before any backend contact.
var (
	// ErrInvalidPredicate is returned for a structurally broken predicate:
	// a dangling negation, an unknown operator, or a missing column.
	ErrInvalidPredicate = errors.New("invalid predicate composition")

	// ErrTypeMismatch is returned when a dynamically built predicate's
	// operand cannot be compared against the column's declared type.
	ErrTypeMismatch = errors.New("predicate operand type mismatch")
)
