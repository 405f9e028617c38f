package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/query/relation"
	"github.com/quarrydb/quarry/registry"
)

// queryRows compiles and executes a row plan, returning an addressable
// slice of the table's entity type with every relation cell bound and
// the plan's preloads resolved. A none plan returns the empty slice
// without touching the backend.
func (s *Session) queryRows(ctx context.Context, t *registry.Table, p plan.Plan) (reflect.Value, error) {
	sliceType := reflect.SliceOf(t.GoType())
	if p.None {
		return reflect.MakeSlice(sliceType, 0, 0), nil
	}

	st, err := s.comp.Compile(t, p)
	if err != nil {
		return reflect.Value{}, err
	}
	rows, err := s.run(ctx, "select", t.Name(), st)
	if err != nil {
		return reflect.Value{}, err
	}
	defer rows.Close()

	slice := reflect.MakeSlice(sliceType, 0, 8)
	for rows.Next() {
		entity := reflect.New(t.GoType()).Elem()
		if err := rows.Scan(scanDests(entity, t)...); err != nil {
			return reflect.Value{}, s.wrapErr("select", t.Name(), st.SQL, err)
		}
		slice = reflect.Append(slice, entity)
	}
	if err := rows.Err(); err != nil {
		return reflect.Value{}, s.wrapErr("select", t.Name(), st.SQL, err)
	}
	s.stats.rows.Add(int64(slice.Len()))

	// Cells bind after the scan loop so their loaders capture the final
	// element addresses; reflect.Append may reallocate mid-loop.
	for i := 0; i < slice.Len(); i++ {
		if err := s.bindCells(slice.Index(i).Addr(), t); err != nil {
			return reflect.Value{}, err
		}
	}

	if len(p.Preloads) > 0 {
		if err := s.resolvePreloads(ctx, t, slice, p.Preloads); err != nil {
			return reflect.Value{}, err
		}
	}
	return slice, nil
}

// scanDests builds the Scan destinations for one row: the address of
// each column's struct field, in registry order. Nullable columns scan
// through their pointer fields, so NULL becomes nil.
func scanDests(entity reflect.Value, t *registry.Table) []any {
	cols := t.Columns()
	dests := make([]any, len(cols))
	for i, c := range cols {
		dests[i] = entity.FieldByIndex(c.FieldIndex()).Addr().Interface()
	}
	return dests
}

// bindCells wires every association cell on the entity to the session's
// policy and a loader scoped to this row.
func (s *Session) bindCells(entityPtr reflect.Value, t *registry.Table) error {
	for _, a := range t.Associations() {
		field := entityPtr.Elem().FieldByIndex(a.FieldIndex())
		cell, ok := field.Addr().Interface().(relation.Cell)
		if !ok {
			return fmt.Errorf("table %s: field %s does not hold a relation cell", t.Name(), a.Field)
		}
		cell.Bind(a.Name, s.mode.policy(), s.lazyLoader(t, a, entityPtr))
	}
	return nil
}

// lazyLoader builds the one-row fallback loader used when an unloaded
// cell is touched under the lazy policy, or forced.
func (s *Session) lazyLoader(t *registry.Table, a registry.Association, entityPtr reflect.Value) relation.Loader {
	return func(ctx context.Context) (any, error) {
		target, err := a.TargetTable()
		if err != nil {
			return nil, err
		}
		switch a.Kind {
		case registry.BelongsTo:
			fkCol, ok := t.Column(a.ForeignKey)
			if !ok {
				return nil, fmt.Errorf("table %s: foreign key %q is not a column", t.Name(), a.ForeignKey)
			}
			key, ok := fieldScalar(entityPtr.Elem().FieldByIndex(fkCol.FieldIndex()))
			if !ok {
				return nil, nil
			}
			p := plan.Plan{
				Table: target.Name(),
				Where: []plan.Predicate{plan.Pred(target.Name(), a.References, plan.OpEq, key)},
				Limit: ptrInt(1),
			}
			return s.firstPtr(ctx, target, p)

		default:
			refCol, ok := t.Column(a.References)
			if !ok {
				return nil, fmt.Errorf("table %s: referenced column %q is not a column", t.Name(), a.References)
			}
			key, ok := fieldScalar(entityPtr.Elem().FieldByIndex(refCol.FieldIndex()))
			if !ok {
				if a.Kind == registry.HasOne {
					return nil, nil
				}
				return reflect.MakeSlice(reflect.SliceOf(target.GoType()), 0, 0).Interface(), nil
			}
			p := plan.Plan{
				Table: target.Name(),
				Where: []plan.Predicate{plan.Pred(target.Name(), a.ForeignKey, plan.OpEq, key)},
			}
			if a.Kind == registry.HasOne {
				p.Limit = ptrInt(1)
				return s.firstPtr(ctx, target, p)
			}
			children, err := s.queryRows(ctx, target, p)
			if err != nil {
				return nil, err
			}
			return children.Interface(), nil
		}
	}
}

// firstPtr runs p and returns a pointer to the first row, or nil when
// there is none.
func (s *Session) firstPtr(ctx context.Context, t *registry.Table, p plan.Plan) (any, error) {
	rows, err := s.queryRows(ctx, t, p)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, nil
	}
	return rows.Index(0).Addr().Interface(), nil
}

// fieldScalar reads a key column's value, dereferencing nullable fields.
// ok is false for a NULL key.
func fieldScalar(v reflect.Value) (any, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	return v.Interface(), true
}

func ptrInt(n int) *int { return &n }
