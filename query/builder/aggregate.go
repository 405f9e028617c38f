package builder

import (
	"cmp"
	"context"
	"time"

	"github.com/quarrydb/quarry/query/columns"
	"github.com/quarrydb/quarry/query/executor"
	"github.com/quarrydb/quarry/query/plan"
)

// Typed aggregates live at package level because methods cannot add type
// parameters. Each reports ok=false when the backend returned NULL,
// which is what SUM, AVG, MIN and MAX do over an empty set; a none query
// reports the same without a backend call.

// Number constrains the summable column types.
type Number interface {
	~int32 | ~int64 | ~float64
}

// Sum totals a numeric column over the matching rows.
func Sum[N Number, T any](ctx context.Context, q Query[T], col columns.OrderedColumn[N]) (N, bool, error) {
	return scalar[N](ctx, q, plan.AggSum, col.Table(), col.Name())
}

// Avg averages a numeric column. The result is always float64.
func Avg[N Number, T any](ctx context.Context, q Query[T], col columns.OrderedColumn[N]) (float64, bool, error) {
	return scalar[float64](ctx, q, plan.AggAvg, col.Table(), col.Name())
}

// Min returns the smallest value of an ordered column.
func Min[V cmp.Ordered, T any](ctx context.Context, q Query[T], col columns.OrderedColumn[V]) (V, bool, error) {
	return scalar[V](ctx, q, plan.AggMin, col.Table(), col.Name())
}

// Max returns the largest value of an ordered column.
func Max[V cmp.Ordered, T any](ctx context.Context, q Query[T], col columns.OrderedColumn[V]) (V, bool, error) {
	return scalar[V](ctx, q, plan.AggMax, col.Table(), col.Name())
}

// MinTime returns the earliest value of a timestamp column.
func MinTime[T any](ctx context.Context, q Query[T], col columns.TimeColumn) (time.Time, bool, error) {
	return scalar[time.Time](ctx, q, plan.AggMin, col.Table(), col.Name())
}

// MaxTime returns the latest value of a timestamp column.
func MaxTime[T any](ctx context.Context, q Query[T], col columns.TimeColumn) (time.Time, bool, error) {
	return scalar[time.Time](ctx, q, plan.AggMax, col.Table(), col.Name())
}

// CountBy counts rows per value of the grouping column. The query's
// GroupBy is replaced by the given column; Having applies as chained.
func CountBy[K comparable, T any](ctx context.Context, q Query[T], col ColumnRef) (map[K]int64, error) {
	if q.err != nil {
		return nil, q.err
	}
	p := q.p.Clone()
	p.Aggregate = &plan.Aggregate{Fn: plan.AggCount}
	p.GroupBy = []string{col.Name()}
	return executor.CountBy[K](ctx, q.s, q.t, p)
}

func scalar[V any, T any](ctx context.Context, q Query[T], fn plan.AggregateFunc, table, column string) (V, bool, error) {
	var zero V
	if q.err != nil {
		return zero, false, q.err
	}
	p := q.p.Clone()
	p.Aggregate = &plan.Aggregate{Fn: fn, Table: table, Column: column}
	return executor.ScalarNull[V](ctx, q.s, q.t, p)
}
