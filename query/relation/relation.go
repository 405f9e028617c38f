// Package relation provides the typed cells that hold association data on
// entity structs. The dispatcher binds every cell during row
// materialization; preloading attaches data in batch. What an unloaded
// cell does when read is decided by the policy injected at bind time, not
// by a global flag.
package relation

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotLoaded is returned when an unloaded cell is read under the
// fail-hard policy. Preload the association or use Force.
var ErrNotLoaded = errors.New("association not loaded")

// Policy decides how an unloaded cell behaves when read.
type Policy int

const (
	// PolicyError fails reads of unloaded cells with ErrNotLoaded. The
	// development and test modes use it so missing preloads surface
	// before they ship.
	PolicyError Policy = iota

	// PolicyFetch lazily loads the association with one scoped query and
	// caches the result on the cell. Production mode uses it.
	PolicyFetch
)

// Loader fetches a cell's value on demand. The dispatcher binds one per
// cell, scoped to the owning row.
type Loader func(ctx context.Context) (any, error)

// Cell is the untyped surface the dispatcher drives. Application code
// reads through the typed accessors instead.
type Cell interface {
	// Bind wires the cell to its association, policy, and loader.
	Bind(name string, policy Policy, loader Loader)
	// Attach marks the cell loaded with the given value: a []T for
	// has-many cells, a *T (possibly nil) otherwise.
	Attach(value any)
	// Loaded reports whether the cell holds data.
	Loaded() bool
}

// HasMany holds the children of a has-many association.
type HasMany[T any] struct {
	name   string
	items  []T
	loaded bool
	policy Policy
	loader Loader
}

// Bind implements Cell.
func (c *HasMany[T]) Bind(name string, policy Policy, loader Loader) {
	c.name = name
	c.policy = policy
	c.loader = loader
}

// Attach implements Cell.
func (c *HasMany[T]) Attach(value any) {
	if value == nil {
		c.items = nil
	} else {
		items, ok := value.([]T)
		if !ok {
			panic(fmt.Sprintf("relation: attach %T to HasMany[%T]", value, *new(T)))
		}
		c.items = items
	}
	c.loaded = true
}

// Loaded implements Cell.
func (c *HasMany[T]) Loaded() bool { return c.loaded }

// Get returns the children. Unloaded cells follow the bound policy:
// fail with ErrNotLoaded, or fetch once and cache.
func (c *HasMany[T]) Get(ctx context.Context) ([]T, error) {
	if c.loaded {
		return c.items, nil
	}
	if c.policy == PolicyFetch && c.loader != nil {
		return c.fetch(ctx)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotLoaded, c.label())
}

// Force fetches an unloaded cell regardless of policy. A cell that was
// never bound by a dispatcher has nothing to fetch with and fails.
func (c *HasMany[T]) Force(ctx context.Context) ([]T, error) {
	if c.loaded {
		return c.items, nil
	}
	if c.loader == nil {
		return nil, fmt.Errorf("%w: %s is not bound", ErrNotLoaded, c.label())
	}
	return c.fetch(ctx)
}

func (c *HasMany[T]) fetch(ctx context.Context) ([]T, error) {
	v, err := c.loader(ctx)
	if err != nil {
		return nil, err
	}
	c.Attach(v)
	return c.items, nil
}

func (c *HasMany[T]) label() string {
	if c.name == "" {
		return "association"
	}
	return c.name
}

// single is the shared implementation for the to-one cells.
type single[T any] struct {
	name   string
	item   *T
	loaded bool
	policy Policy
	loader Loader
}

// Bind implements Cell.
func (c *single[T]) Bind(name string, policy Policy, loader Loader) {
	c.name = name
	c.policy = policy
	c.loader = loader
}

// Attach implements Cell.
func (c *single[T]) Attach(value any) {
	if value == nil {
		c.item = nil
	} else {
		item, ok := value.(*T)
		if !ok {
			panic(fmt.Sprintf("relation: attach %T to to-one cell of %T", value, *new(T)))
		}
		c.item = item
	}
	c.loaded = true
}

// Loaded implements Cell.
func (c *single[T]) Loaded() bool { return c.loaded }

// Get returns the related entity, or nil when loaded and absent.
// Unloaded cells follow the bound policy.
func (c *single[T]) Get(ctx context.Context) (*T, error) {
	if c.loaded {
		return c.item, nil
	}
	if c.policy == PolicyFetch && c.loader != nil {
		return c.fetch(ctx)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotLoaded, c.label())
}

// Force fetches an unloaded cell regardless of policy.
func (c *single[T]) Force(ctx context.Context) (*T, error) {
	if c.loaded {
		return c.item, nil
	}
	if c.loader == nil {
		return nil, fmt.Errorf("%w: %s is not bound", ErrNotLoaded, c.label())
	}
	return c.fetch(ctx)
}

func (c *single[T]) fetch(ctx context.Context) (*T, error) {
	v, err := c.loader(ctx)
	if err != nil {
		return nil, err
	}
	c.Attach(v)
	return c.item, nil
}

func (c *single[T]) label() string {
	if c.name == "" {
		return "association"
	}
	return c.name
}

// HasOne holds the single child of a has-one association.
type HasOne[T any] struct {
	single[T]
}

// BelongsTo holds the parent of a belongs-to association.
type BelongsTo[T any] struct {
	single[T]
}
