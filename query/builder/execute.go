package builder

import (
	"context"
	"fmt"

	"github.com/quarrydb/quarry/query/executor"
	"github.com/quarrydb/quarry/query/plan"
)

// All executes the query and returns every matching row in backend
// order, with requested preloads resolved.
func (q Query[T]) All(ctx context.Context) ([]T, error) {
	if q.err != nil {
		return nil, q.err
	}
	return executor.All[T](ctx, q.s, q.t, q.p)
}

// First returns the first matching row under the query's ordering,
// compiled with LIMIT 1. No match is ErrRecordNotFound.
func (q Query[T]) First(ctx context.Context) (T, error) {
	var zero T
	ptr, err := q.one(ctx, false)
	if err != nil {
		return zero, err
	}
	if ptr == nil {
		return zero, executor.ErrRecordNotFound
	}
	return *ptr, nil
}

// FirstOrNil is First with no-match reported as (nil, nil).
func (q Query[T]) FirstOrNil(ctx context.Context) (*T, error) {
	return q.one(ctx, false)
}

// Last returns the last matching row. When no explicit ordering was
// chained, a descending primary-key order is injected; an explicit
// ordering is honored as given.
func (q Query[T]) Last(ctx context.Context) (T, error) {
	var zero T
	ptr, err := q.one(ctx, true)
	if err != nil {
		return zero, err
	}
	if ptr == nil {
		return zero, executor.ErrRecordNotFound
	}
	return *ptr, nil
}

// LastOrNil is Last with no-match reported as (nil, nil).
func (q Query[T]) LastOrNil(ctx context.Context) (*T, error) {
	return q.one(ctx, true)
}

// Find returns the row whose primary key equals key. No match is
// ErrRecordNotFound; a key of the wrong type is ErrTypeMismatch.
func (q Query[T]) Find(ctx context.Context, key any) (T, error) {
	var zero T
	if q.err != nil {
		return zero, q.err
	}
	pk := q.t.PrimaryKey()
	if !pk.Accepts(key) {
		return zero, fmt.Errorf("%w: primary key %s.%s wants %s, got %T",
			plan.ErrTypeMismatch, q.t.Name(), pk.Name, pk.Type, key)
	}
	return q.Where(plan.Pred(q.t.Name(), pk.Name, plan.OpEq, key)).First(ctx)
}

// Count runs SELECT COUNT(*) honoring the chained predicates. A none
// query counts zero without a backend call.
func (q Query[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	p := q.p.Clone()
	p.Aggregate = &plan.Aggregate{Fn: plan.AggCount}
	n, ok, err := executor.ScalarNull[int64](ctx, q.s, q.t, p)
	if err != nil || !ok {
		return 0, err
	}
	return n, nil
}

// DestroyAll deletes every row of the table. Chained predicates are NOT
// applied: the statement compiles with no restriction whatsoever. Scope
// with care before reaching for it.
func (q Query[T]) DestroyAll(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.s.DeleteAll(ctx, q.t)
}

// ToSQL compiles the query without executing it. Compilation is pure:
// calling it any number of times yields byte-identical SQL and equal
// arguments, and the placeholder count always matches len(args).
func (q Query[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	st, err := q.s.Compiler().Compile(q.t, q.p)
	if err != nil {
		return "", nil, err
	}
	return st.SQL, st.Args, nil
}

func (q Query[T]) one(ctx context.Context, last bool) (*T, error) {
	if q.err != nil {
		return nil, q.err
	}
	p := q.p.Clone()
	p.Limit = ptrInt(1)
	if last && len(p.Order) == 0 {
		pk := q.t.PrimaryKey()
		p.Order = []plan.Ordering{{Table: q.t.Name(), Column: pk.Name, Dir: plan.Desc}}
	}
	rows, err := executor.All[T](ctx, q.s, q.t, p)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func ptrInt(n int) *int { return &n }
