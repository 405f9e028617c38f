package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/query/relation"
	"github.com/quarrydb/quarry/query/sqlgen"
	"github.com/quarrydb/quarry/registry"
)

// resolvePreloads eagerly loads the requested associations for every
// parent. Each association edge costs exactly one child query no matter
// how many parents there are; an empty parent set costs none.
func (s *Session) resolvePreloads(ctx context.Context, t *registry.Table, parents reflect.Value, preloads []plan.Preload) error {
	if parents.Len() == 0 {
		return nil
	}
	for _, pl := range preloads {
		if err := s.resolvePreload(ctx, t, parents, pl); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) resolvePreload(ctx context.Context, t *registry.Table, parents reflect.Value, pl plan.Preload) error {
	assoc, ok := t.Association(pl.Assoc)
	if !ok {
		return fmt.Errorf("%w: %q on table %q", sqlgen.ErrUnknownAssociation, pl.Assoc, t.Name())
	}
	target, err := assoc.TargetTable()
	if err != nil {
		return err
	}
	if assoc.Kind == registry.BelongsTo {
		return s.preloadParents(ctx, t, target, parents, assoc, pl)
	}
	return s.preloadChildren(ctx, t, target, parents, assoc, pl)
}

// preloadChildren handles has-many and has-one: one query over the
// children whose foreign key is in the parents' referenced key set.
func (s *Session) preloadChildren(ctx context.Context, t, target *registry.Table, parents reflect.Value, assoc registry.Association, pl plan.Preload) error {
	refCol, ok := t.Column(assoc.References)
	if !ok {
		return fmt.Errorf("table %s: referenced column %q is not a column", t.Name(), assoc.References)
	}
	fkCol, ok := target.Column(assoc.ForeignKey)
	if !ok {
		return fmt.Errorf("table %s: foreign key %q is not a column", target.Name(), assoc.ForeignKey)
	}

	keys, perParent := collectKeys(parents, refCol)
	children, err := s.batch(ctx, target, assoc.ForeignKey, keys, pl)
	if err != nil {
		return err
	}
	groups := groupByColumn(children, fkCol)

	childType := target.GoType()
	for i := 0; i < parents.Len(); i++ {
		cell := parents.Index(i).FieldByIndex(assoc.FieldIndex()).Addr().Interface().(relation.Cell)
		k := perParent[i]
		if assoc.Kind == registry.HasOne {
			if idx, ok := firstOf(groups, k); ok {
				cell.Attach(children.Index(idx).Addr().Interface())
			} else {
				cell.Attach(nil)
			}
			continue
		}
		sub := reflect.MakeSlice(reflect.SliceOf(childType), 0, len(groups[k]))
		if k != nil {
			for _, ci := range groups[k] {
				sub = reflect.Append(sub, children.Index(ci))
			}
		}
		cell.Attach(sub.Interface())
	}
	return nil
}

// preloadParents handles belongs-to: one query over the targets whose
// referenced column is in the parents' distinct foreign key set.
func (s *Session) preloadParents(ctx context.Context, t, target *registry.Table, parents reflect.Value, assoc registry.Association, pl plan.Preload) error {
	fkCol, ok := t.Column(assoc.ForeignKey)
	if !ok {
		return fmt.Errorf("table %s: foreign key %q is not a column", t.Name(), assoc.ForeignKey)
	}
	refCol, ok := target.Column(assoc.References)
	if !ok {
		return fmt.Errorf("table %s: referenced column %q is not a column", target.Name(), assoc.References)
	}

	keys, perParent := collectKeys(parents, fkCol)
	owners, err := s.batch(ctx, target, assoc.References, keys, pl)
	if err != nil {
		return err
	}
	groups := groupByColumn(owners, refCol)

	for i := 0; i < parents.Len(); i++ {
		cell := parents.Index(i).FieldByIndex(assoc.FieldIndex()).Addr().Interface().(relation.Cell)
		if idx, ok := firstOf(groups, perParent[i]); ok {
			cell.Attach(owners.Index(idx).Addr().Interface())
		} else {
			cell.Attach(nil)
		}
	}
	return nil
}

// batch runs the single child query for one association edge. The key
// restriction renders first, then the preload's own scope predicates.
// With no keys there is nothing to fetch and no query is issued.
func (s *Session) batch(ctx context.Context, target *registry.Table, keyColumn string, keys []any, pl plan.Preload) (reflect.Value, error) {
	if len(keys) == 0 {
		return reflect.MakeSlice(reflect.SliceOf(target.GoType()), 0, 0), nil
	}
	where := make([]plan.Predicate, 0, 1+len(pl.Where))
	where = append(where, plan.Pred(target.Name(), keyColumn, plan.OpIn, keys...))
	where = append(where, pl.Where...)
	p := plan.Plan{
		Table:    target.Name(),
		Where:    where,
		Order:    append([]plan.Ordering(nil), pl.Order...),
		Preloads: pl.Children,
	}
	if pl.Limit != nil {
		v := *pl.Limit
		p.Limit = &v
	}
	return s.queryRows(ctx, target, p)
}

// collectKeys walks the parents' key column, returning the distinct raw
// values in first-seen order and each parent's normalized key. NULL keys
// normalize to nil and never enter the batch.
func collectKeys(parents reflect.Value, keyCol registry.Column) ([]any, []any) {
	keys := make([]any, 0, parents.Len())
	seen := make(map[any]bool, parents.Len())
	perParent := make([]any, parents.Len())
	for i := 0; i < parents.Len(); i++ {
		v, ok := fieldScalar(parents.Index(i).FieldByIndex(keyCol.FieldIndex()))
		if !ok {
			continue
		}
		k := normalizeKey(v)
		perParent[i] = k
		if !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}
	return keys, perParent
}

func groupByColumn(rows reflect.Value, col registry.Column) map[any][]int {
	groups := make(map[any][]int)
	for i := 0; i < rows.Len(); i++ {
		v, ok := fieldScalar(rows.Index(i).FieldByIndex(col.FieldIndex()))
		if !ok {
			continue
		}
		groups[normalizeKey(v)] = append(groups[normalizeKey(v)], i)
	}
	return groups
}

func firstOf(groups map[any][]int, key any) (int, bool) {
	if key == nil {
		return 0, false
	}
	idxs := groups[key]
	if len(idxs) == 0 {
		return 0, false
	}
	return idxs[0], true
}

// normalizeKey widens integer and float keys so the same key read from
// differently typed columns lands in one map bucket.
func normalizeKey(v any) any {
	switch k := v.(type) {
	case int:
		return int64(k)
	case int8:
		return int64(k)
	case int16:
		return int64(k)
	case int32:
		return int64(k)
	case float32:
		return float64(k)
	}
	return v
}
