// Package builder provides the chainable, lazily evaluated query type.
// A Query is an immutable value: every mutator clones the underlying plan
// and returns a new Query, so a shared prefix can be refined in different
// directions without interference. Nothing talks to the backend until one
// of the terminal methods in execute.go runs.
package builder

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/query/executor"
	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/registry"
)

// ColumnRef is satisfied by every typed column handle.
type ColumnRef interface {
	Table() string
	Name() string
}

// Query describes a pending read of T rows. The zero value is not
// usable; construct with New.
type Query[T any] struct {
	s *executor.Session
	t *registry.Table
	p plan.Plan

	// err holds the first construction-time failure. Terminal methods
	// return it before any backend contact.
	err error
}

// New starts an unrestricted query over t's rows.
func New[T any](s *executor.Session, t *registry.Table) Query[T] {
	return Query[T]{s: s, t: t, p: plan.Plan{Table: t.Name()}}
}

// Session returns the session the query will execute on.
func (q Query[T]) Session() *executor.Session { return q.s }

// Table returns the table descriptor the query reads from.
func (q Query[T]) Table() *registry.Table { return q.t }

// Err returns the stashed construction error, if any.
func (q Query[T]) Err() error { return q.err }

// Plan returns a deep copy of the current plan.
func (q Query[T]) Plan() plan.Plan { return q.p.Clone() }

// Where appends predicates to the conjunction. Each predicate is checked
// structurally and, when its column is registered, for operand type
// compatibility; the first failure is stashed and surfaces from any
// terminal method.
func (q Query[T]) Where(preds ...plan.Predicate) Query[T] {
	q.p = q.p.Clone()
	for _, pr := range preds {
		if pr.Table == "" {
			pr.Table = q.t.Name()
		}
		if err := q.checkPredicate(pr); err != nil {
			return q.fail(err)
		}
		q.p.Where = append(q.p.Where, pr)
	}
	return q
}

// Order appends ordering terms, kept in the order given.
func (q Query[T]) Order(terms ...plan.Ordering) Query[T] {
	q.p = q.p.Clone()
	q.p.Order = append(q.p.Order, terms...)
	return q
}

// Limit caps the number of rows.
func (q Query[T]) Limit(n int) Query[T] {
	q.p = q.p.Clone()
	if n < 0 {
		return q.fail(fmt.Errorf("negative limit %d", n))
	}
	q.p.Limit = &n
	return q
}

// Offset skips the first n rows.
func (q Query[T]) Offset(n int) Query[T] {
	q.p = q.p.Clone()
	if n < 0 {
		return q.fail(fmt.Errorf("negative offset %d", n))
	}
	q.p.Offset = &n
	return q
}

// Distinct deduplicates result rows.
func (q Query[T]) Distinct() Query[T] {
	q.p = q.p.Clone()
	q.p.Distinct = true
	return q
}

// DistinctOn keeps the first row per combination of the given columns.
// Postgres only; other dialects reject it at compile time.
func (q Query[T]) DistinctOn(cols ...ColumnRef) Query[T] {
	q.p = q.p.Clone()
	for _, c := range cols {
		q.p.DistinctOn = append(q.p.DistinctOn, c.Name())
	}
	return q
}

// GroupBy groups rows for aggregate queries such as CountBy.
func (q Query[T]) GroupBy(cols ...ColumnRef) Query[T] {
	q.p = q.p.Clone()
	for _, c := range cols {
		q.p.GroupBy = append(q.p.GroupBy, c.Name())
	}
	return q
}

// Having restricts grouped rows. Only meaningful with GroupBy.
func (q Query[T]) Having(preds ...plan.Predicate) Query[T] {
	q.p = q.p.Clone()
	for _, pr := range preds {
		if pr.Table == "" {
			pr.Table = q.t.Name()
		}
		if err := pr.Validate(); err != nil {
			return q.fail(err)
		}
		q.p.Having = append(q.p.Having, pr)
	}
	return q
}

// InnerJoin joins the named association. Extra predicates are rendered
// into the ON clause after the key equality.
func (q Query[T]) InnerJoin(assoc string, on ...plan.Predicate) Query[T] {
	return q.join(plan.InnerJoin, assoc, on)
}

// LeftJoin left-joins the named association.
func (q Query[T]) LeftJoin(assoc string, on ...plan.Predicate) Query[T] {
	return q.join(plan.LeftJoin, assoc, on)
}

func (q Query[T]) join(kind plan.JoinKind, assoc string, on []plan.Predicate) Query[T] {
	q.p = q.p.Clone()
	if _, ok := q.t.Association(assoc); !ok {
		return q.fail(fmt.Errorf("unknown association %q on table %q", assoc, q.t.Name()))
	}
	for _, pr := range on {
		if err := pr.Validate(); err != nil {
			return q.fail(err)
		}
	}
	q.p.Joins = append(q.p.Joins, plan.Join{Kind: kind, Assoc: assoc, On: on})
	return q
}

// None marks the query contradictory. Every later read yields the empty
// result shape without a backend call, and refinements stay none.
func (q Query[T]) None() Query[T] {
	q.p = q.p.Clone()
	q.p.None = true
	return q
}

// PreloadOption scopes the batched child query of one preload.
type PreloadOption func(*plan.Preload)

// PreloadWhere restricts the loaded children.
func PreloadWhere(preds ...plan.Predicate) PreloadOption {
	return func(pl *plan.Preload) {
		pl.Where = append(pl.Where, preds...)
	}
}

// PreloadOrder orders the loaded children.
func PreloadOrder(terms ...plan.Ordering) PreloadOption {
	return func(pl *plan.Preload) {
		pl.Order = append(pl.Order, terms...)
	}
}

// PreloadLimit caps the batched child query as a whole, not per parent.
func PreloadLimit(n int) PreloadOption {
	return func(pl *plan.Preload) {
		pl.Limit = &n
	}
}

// Preload requests eager loading of an association path. Dots descend
// into nested associations: "posts.comments" loads posts for every row,
// then comments for every loaded post, one query per edge. Options apply
// to the last path segment. Repeating a path merges its options.
func (q Query[T]) Preload(path string, opts ...PreloadOption) Query[T] {
	q.p = q.p.Clone()
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return q.fail(fmt.Errorf("bad preload path %q", path))
		}
	}
	var scope plan.Preload
	for _, opt := range opts {
		opt(&scope)
	}
	for _, pr := range scope.Where {
		if err := pr.Validate(); err != nil {
			return q.fail(err)
		}
	}
	q.p.Preloads = mergePreload(q.p.Preloads, segs, scope)
	return q
}

func mergePreload(list []plan.Preload, segs []string, scope plan.Preload) []plan.Preload {
	name := segs[0]
	idx := -1
	for i := range list {
		if list[i].Assoc == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		list = append(list, plan.Preload{Assoc: name})
		idx = len(list) - 1
	}
	if len(segs) > 1 {
		list[idx].Children = mergePreload(list[idx].Children, segs[1:], scope)
		return list
	}
	list[idx].Where = append(list[idx].Where, scope.Where...)
	list[idx].Order = append(list[idx].Order, scope.Order...)
	if scope.Limit != nil {
		list[idx].Limit = scope.Limit
	}
	return list
}

// checkPredicate validates structure and, for registered columns, the
// operand types. Failing here keeps a bad predicate from ever reaching
// the backend.
func (q Query[T]) checkPredicate(pr plan.Predicate) error {
	if err := pr.Validate(); err != nil {
		return err
	}
	t, ok := registry.Lookup(pr.Table)
	if !ok {
		return nil
	}
	col, ok := t.Column(pr.Column)
	if !ok {
		return fmt.Errorf("unknown column %q on table %q", pr.Column, pr.Table)
	}
	switch pr.Op {
	case plan.OpIsNull, plan.OpIsNotNull:
		return nil
	}
	for _, arg := range pr.Args {
		if !col.Accepts(arg) {
			return fmt.Errorf("%w: %s wants %s, got %T", plan.ErrTypeMismatch, pr.Qualified(), col.Type, arg)
		}
	}
	return nil
}

func (q Query[T]) fail(err error) Query[T] {
	if q.err == nil {
		q.err = err
	}
	return q
}
