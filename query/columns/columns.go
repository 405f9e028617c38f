// Package columns provides the typed column handles used to build
// predicates. Each handle knows its table, its column name, and its Go
// operand type, so a mismatched operand is a compile error rather than a
// runtime one. Generated column sets construct these once per model.
package columns

import (
	"cmp"
	"time"

	"github.com/quarrydb/quarry/query/plan"
)

// Column is the base handle shared by every column type. It offers the
// operators that make sense for any operand type.
type Column[T any] struct {
	table string
	name  string
}

// Table returns the owning table name.
func (c Column[T]) Table() string { return c.table }

// Name returns the column name.
func (c Column[T]) Name() string { return c.name }

// Eq compares for equality.
func (c Column[T]) Eq(v T) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpEq, v)
}

// In matches any of the given values. An empty list compiles to an
// always-false clause.
func (c Column[T]) In(vs ...T) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpIn, anySlice(vs)...)
}

// IsNull matches SQL NULL.
func (c Column[T]) IsNull() plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpIsNull)
}

// IsNotNull matches anything but SQL NULL.
func (c Column[T]) IsNotNull() plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpIsNotNull)
}

// Not starts a negated predicate. The returned handle is not itself a
// predicate; it must be completed with Eq or In, so a dangling negation
// cannot be passed to a builder.
func (c Column[T]) Not() Negated[T] {
	return Negated[T]{col: c}
}

// Asc orders by this column ascending.
func (c Column[T]) Asc() plan.Ordering {
	return plan.Ordering{Table: c.table, Column: c.name, Dir: plan.Asc}
}

// Desc orders by this column descending.
func (c Column[T]) Desc() plan.Ordering {
	return plan.Ordering{Table: c.table, Column: c.name, Dir: plan.Desc}
}

// Negated is the intermediate state produced by Not.
type Negated[T any] struct {
	col Column[T]
}

// Eq compiles to an inequality test.
func (n Negated[T]) Eq(v T) plan.Predicate {
	return plan.Pred(n.col.table, n.col.name, plan.OpNeq, v)
}

// In compiles to NOT IN. An empty list compiles to an always-true clause.
func (n Negated[T]) In(vs ...T) plan.Predicate {
	return plan.Pred(n.col.table, n.col.name, plan.OpNotIn, anySlice(vs)...)
}

// OrderedColumn adds range comparisons for operand types with a total
// order.
type OrderedColumn[T cmp.Ordered] struct {
	Column[T]
}

// Gt compares strictly greater.
func (c OrderedColumn[T]) Gt(v T) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpGt, v)
}

// Gte compares greater or equal.
func (c OrderedColumn[T]) Gte(v T) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpGte, v)
}

// Lt compares strictly less.
func (c OrderedColumn[T]) Lt(v T) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpLt, v)
}

// Lte compares less or equal.
func (c OrderedColumn[T]) Lte(v T) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpLte, v)
}

// StringColumn adds pattern matching on top of the ordered operators.
type StringColumn struct {
	OrderedColumn[string]
}

// Like matches against a SQL LIKE pattern as given.
func (c StringColumn) Like(pattern string) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpLike, pattern)
}

// ILike matches case-insensitively. Only Postgres renders ILIKE natively;
// other dialects reject it at compile time.
func (c StringColumn) ILike(pattern string) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpILike, pattern)
}

// Contains matches values containing the substring.
func (c StringColumn) Contains(sub string) plan.Predicate {
	return c.Like("%" + sub + "%")
}

// StartsWith matches values beginning with the prefix.
func (c StringColumn) StartsWith(prefix string) plan.Predicate {
	return c.Like(prefix + "%")
}

// EndsWith matches values ending with the suffix.
func (c StringColumn) EndsWith(suffix string) plan.Predicate {
	return c.Like("%" + suffix)
}

// TimeColumn names its range operators after time rather than magnitude.
type TimeColumn struct {
	Column[time.Time]
}

// Before matches strictly earlier instants.
func (c TimeColumn) Before(t time.Time) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpLt, t)
}

// After matches strictly later instants.
func (c TimeColumn) After(t time.Time) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpGt, t)
}

// AtOrBefore matches t and anything earlier.
func (c TimeColumn) AtOrBefore(t time.Time) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpLte, t)
}

// AtOrAfter matches t and anything later.
func (c TimeColumn) AtOrAfter(t time.Time) plan.Predicate {
	return plan.Pred(c.table, c.name, plan.OpGte, t)
}

// Int32 builds a handle for an int32 column.
func Int32(table, name string) OrderedColumn[int32] {
	return OrderedColumn[int32]{Column[int32]{table: table, name: name}}
}

// Int64 builds a handle for an int64 column.
func Int64(table, name string) OrderedColumn[int64] {
	return OrderedColumn[int64]{Column[int64]{table: table, name: name}}
}

// Float64 builds a handle for a float64 column.
func Float64(table, name string) OrderedColumn[float64] {
	return OrderedColumn[float64]{Column[float64]{table: table, name: name}}
}

// Bool builds a handle for a bool column.
func Bool(table, name string) Column[bool] {
	return Column[bool]{table: table, name: name}
}

// String builds a handle for a string column.
func String(table, name string) StringColumn {
	return StringColumn{OrderedColumn[string]{Column[string]{table: table, name: name}}}
}

// Time builds a handle for a timestamp column.
func Time(table, name string) TimeColumn {
	return TimeColumn{Column[time.Time]{table: table, name: name}}
}

// Bytes builds a handle for a byte blob column.
func Bytes(table, name string) Column[[]byte] {
	return Column[[]byte]{table: table, name: name}
}

func anySlice[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
