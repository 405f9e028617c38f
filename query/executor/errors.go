package executor

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by First, Last, and Find when no row
// matches. The OrNil variants return nil instead.
var ErrRecordNotFound = errors.New("record not found")

// QueryError wraps a backend failure with the operation and table it
// happened on. The driver error is carried verbatim and reachable
// through errors.Is and errors.As.
type QueryError struct {
	Op    string
	Table string
	SQL   string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, ErrRecordNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

func (s *Session) wrapErr(op, table, sqlText string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Op: op, Table: table, SQL: sqlText, Err: err}
}
