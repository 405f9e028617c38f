// Package sqlgen compiles query plans into SQL statements for the
// supported dialects. Compilation is pure and deterministic: the same
// plan compiles to byte-identical SQL with equal arguments, predicates
// render in insertion order, and projections follow registry order.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/registry"
)

// Statement is compiled SQL plus positionally aligned arguments. The
// number of placeholders in SQL always equals len(Args).
type Statement struct {
	SQL  string
	Args []any
}

// Compiler turns plans into statements for one dialect.
type Compiler struct {
	dialect Dialect
}

// NewCompiler returns a compiler for the given dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect { return c.dialect }

// Compile renders a read plan. Plans carrying an aggregate compile to an
// aggregate select; everything else compiles to a row select. The plan is
// never mutated.
func (c *Compiler) Compile(t *registry.Table, p plan.Plan) (Statement, error) {
	if p.Aggregate != nil {
		return c.compileAggregate(t, p)
	}
	return c.compileSelect(t, p)
}

// CompileDeleteAll renders an unconditional DELETE for the whole table.
// No predicate clause is ever attached; callers own the consequences.
func (c *Compiler) CompileDeleteAll(t *registry.Table) Statement {
	return Statement{SQL: "DELETE FROM " + c.dialect.QuoteIdent(t.Name())}
}

func (c *Compiler) compileSelect(t *registry.Table, p plan.Plan) (Statement, error) {
	b := &build{dialect: c.dialect}

	sel := "SELECT "
	switch {
	case len(p.DistinctOn) > 0:
		if !c.dialect.SupportsDistinctOn() {
			return Statement{}, fmt.Errorf("%w: DISTINCT ON on %s", ErrUnsupportedClause, c.dialect.Name())
		}
		on := make([]string, len(p.DistinctOn))
		for i, col := range p.DistinctOn {
			on[i] = b.qualify(p.Table, col)
		}
		sel += "DISTINCT ON (" + strings.Join(on, ", ") + ") "
	case p.Distinct:
		sel += "DISTINCT "
	}
	sel += strings.Join(b.projection(t), ", ")
	b.parts = append(b.parts, sel)
	b.parts = append(b.parts, "FROM "+c.dialect.QuoteIdent(t.Name()))

	if err := b.joins(t, p.Joins); err != nil {
		return Statement{}, err
	}
	if err := b.where(p); err != nil {
		return Statement{}, err
	}
	if err := b.grouping(p); err != nil {
		return Statement{}, err
	}
	if len(p.Order) > 0 {
		b.parts = append(b.parts, "ORDER BY "+b.ordering(p.Order))
	}
	b.limitOffset(p.Limit, p.Offset)

	return b.statement(), nil
}

func (c *Compiler) compileAggregate(t *registry.Table, p plan.Plan) (Statement, error) {
	b := &build{dialect: c.dialect}

	agg := *p.Aggregate
	expr := string(agg.Fn) + "(*)"
	if agg.Column != "" {
		expr = string(agg.Fn) + "(" + b.qualify(agg.Table, agg.Column) + ")"
	}
	sel := []string{expr}
	for _, col := range p.GroupBy {
		sel = append(sel, b.qualify(p.Table, col))
	}
	b.parts = append(b.parts, "SELECT "+strings.Join(sel, ", "))
	b.parts = append(b.parts, "FROM "+c.dialect.QuoteIdent(t.Name()))

	if err := b.joins(t, p.Joins); err != nil {
		return Statement{}, err
	}
	if err := b.where(p); err != nil {
		return Statement{}, err
	}
	if err := b.grouping(p); err != nil {
		return Statement{}, err
	}

	// Ordering and pagination only make sense over grouped rows. A plain
	// aggregate returns one row, so those clauses are dropped.
	if len(p.GroupBy) > 0 {
		if len(p.Order) > 0 {
			b.parts = append(b.parts, "ORDER BY "+b.ordering(p.Order))
		}
		b.limitOffset(p.Limit, p.Offset)
	}

	return b.statement(), nil
}

// build accumulates clause parts and arguments for one compilation.
type build struct {
	dialect Dialect
	parts   []string
	args    []any
}

func (b *build) statement() Statement {
	return Statement{SQL: strings.Join(b.parts, " "), Args: b.args}
}

// placeholder appends v to the arguments and returns its marker.
func (b *build) placeholder(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *build) qualify(table, column string) string {
	if table == "" {
		return b.dialect.QuoteIdent(column)
	}
	return b.dialect.QuoteIdent(table) + "." + b.dialect.QuoteIdent(column)
}

// projection lists the table's columns, qualified, in registry order.
// SELECT * is never emitted.
func (b *build) projection(t *registry.Table) []string {
	cols := t.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = b.qualify(t.Name(), c.Name)
	}
	return out
}

func (b *build) where(p plan.Plan) error {
	if p.None {
		b.parts = append(b.parts, "WHERE 1=0")
		return nil
	}
	if len(p.Where) == 0 {
		return nil
	}
	rendered, err := b.conjunction(p.Where)
	if err != nil {
		return err
	}
	b.parts = append(b.parts, "WHERE "+rendered)
	return nil
}

func (b *build) grouping(p plan.Plan) error {
	if len(p.GroupBy) == 0 {
		return nil
	}
	cols := make([]string, len(p.GroupBy))
	for i, col := range p.GroupBy {
		cols[i] = b.qualify(p.Table, col)
	}
	b.parts = append(b.parts, "GROUP BY "+strings.Join(cols, ", "))
	if len(p.Having) > 0 {
		rendered, err := b.conjunction(p.Having)
		if err != nil {
			return err
		}
		b.parts = append(b.parts, "HAVING "+rendered)
	}
	return nil
}

func (b *build) ordering(terms []plan.Ordering) string {
	out := make([]string, len(terms))
	for i, o := range terms {
		out[i] = b.qualify(o.Table, o.Column) + " " + string(o.Dir)
	}
	return strings.Join(out, ", ")
}

func (b *build) limitOffset(limit, offset *int) {
	if limit != nil {
		b.parts = append(b.parts, "LIMIT "+b.placeholder(*limit))
	}
	if offset != nil {
		b.parts = append(b.parts, "OFFSET "+b.placeholder(*offset))
	}
}
