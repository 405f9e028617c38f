// Package plan defines the immutable description of a query: the predicate
// conjunction, ordering, pagination, joins, and preload requests that the
// compiler turns into SQL and the dispatcher executes.
package plan

import "fmt"

// Op is a comparison operator applied to a single column.
type Op string

const (
	OpEq        Op = "="
	OpNeq       Op = "!="
	OpGt        Op = ">"
	OpGte       Op = ">="
	OpLt        Op = "<"
	OpLte       Op = "<="
	OpLike      Op = "LIKE"
	OpILike     Op = "ILIKE"
	OpIn        Op = "IN"
	OpNotIn     Op = "NOT IN"
	OpIsNull    Op = "IS NULL"
	OpIsNotNull Op = "IS NOT NULL"
)

// Predicate is one conjunct of a WHERE clause. Predicates combine by
// conjunction only; there is no disjunction or grouping.
type Predicate struct {
	Table  string
	Column string
	Op     Op
	Args   []any
}

// Pred builds a predicate for the dynamic path. Callers using generated
// column sets get the same value from typed constructors instead.
func Pred(table, column string, op Op, args ...any) Predicate {
	return Predicate{Table: table, Column: column, Op: op, Args: args}
}

// Validate reports whether the predicate is structurally well formed:
// a known operator, a column name, and the operator's argument arity.
// IN and NOT IN accept any arity including zero.
func (p Predicate) Validate() error {
	if p.Column == "" {
		return fmt.Errorf("%w: empty column", ErrInvalidPredicate)
	}
	switch p.Op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike:
		if len(p.Args) != 1 {
			return fmt.Errorf("%w: %s %s wants one operand, got %d", ErrInvalidPredicate, p.Column, p.Op, len(p.Args))
		}
	case OpIn, OpNotIn:
	case OpIsNull, OpIsNotNull:
		if len(p.Args) != 0 {
			return fmt.Errorf("%w: %s %s takes no operand", ErrInvalidPredicate, p.Column, p.Op)
		}
	default:
		return fmt.Errorf("%w: unknown operator %q on %s", ErrInvalidPredicate, string(p.Op), p.Column)
	}
	return nil
}

// Qualified returns the table-qualified column name for error messages.
func (p Predicate) Qualified() string {
	if p.Table == "" {
		return p.Column
	}
	return p.Table + "." + p.Column
}
