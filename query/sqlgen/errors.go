package sqlgen

import "errors"

var (
	// ErrUnsupportedClause is returned when a plan uses a construct the
	// target dialect cannot render, like DISTINCT ON outside Postgres.
	ErrUnsupportedClause = errors.New("clause not supported by dialect")

	// ErrUnknownAssociation is returned when a join names an association
	// that is not registered on the parent table.
	ErrUnknownAssociation = errors.New("unknown association")
)
