package sqlgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/query/relation"
	"github.com/quarrydb/quarry/registry"
)

type author struct {
	ID    int64   `db:"id"`
	Name  string  `db:"name"`
	Email *string `db:"email"`

	Books relation.HasMany[book] `db:"-"`
}

type book struct {
	ID       int64  `db:"id"`
	AuthorID int64  `db:"author_id"`
	Title    string `db:"title"`
	Pages    int32  `db:"pages"`

	Author relation.BelongsTo[author] `db:"-"`
}

var authorsTable = registry.MustRegister[author](registry.TableSpec{
	Name: "authors",
	Columns: []registry.Column{
		{Name: "id", Type: registry.Int64},
		{Name: "name", Type: registry.String},
		{Name: "email", Type: registry.String, Nullable: true},
	},
	PrimaryKey: "id",
	Associations: []registry.Association{
		{Name: "books", Kind: registry.HasMany, Target: "books", ForeignKey: "author_id", References: "id", Field: "Books"},
	},
})

var booksTable = registry.MustRegister[book](registry.TableSpec{
	Name: "books",
	Columns: []registry.Column{
		{Name: "id", Type: registry.Int64},
		{Name: "author_id", Type: registry.Int64},
		{Name: "title", Type: registry.String},
		{Name: "pages", Type: registry.Int32},
	},
	PrimaryKey: "id",
	Associations: []registry.Association{
		{Name: "author", Kind: registry.BelongsTo, Target: "authors", ForeignKey: "author_id", References: "id", Field: "Author"},
	},
})

var placeholderRe = regexp.MustCompile(`\$\d+|\?`)

func mustCompile(t *testing.T, d Dialect, tbl *registry.Table, p plan.Plan) Statement {
	t.Helper()
	st, err := NewCompiler(d).Compile(tbl, p)
	require.NoError(t, err)
	require.Len(t, st.Args, len(placeholderRe.FindAllString(st.SQL, -1)),
		"placeholder count must match argument count")
	return st
}

func TestSelectProjection(t *testing.T) {
	t.Run("postgres qualifies and quotes in registry order", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{Table: "authors"})
		assert.Equal(t, `SELECT "authors"."id", "authors"."name", "authors"."email" FROM "authors"`, st.SQL)
		assert.Empty(t, st.Args)
	})

	t.Run("mysql uses backticks", func(t *testing.T) {
		st := mustCompile(t, MySQL(), authorsTable, plan.Plan{Table: "authors"})
		assert.Equal(t, "SELECT `authors`.`id`, `authors`.`name`, `authors`.`email` FROM `authors`", st.SQL)
	})

	t.Run("sqlite uses double quotes", func(t *testing.T) {
		st := mustCompile(t, SQLite(), authorsTable, plan.Plan{Table: "authors"})
		assert.Equal(t, `SELECT "authors"."id", "authors"."name", "authors"."email" FROM "authors"`, st.SQL)
	})
}

func TestWhereConjunction(t *testing.T) {
	p := plan.Plan{
		Table: "authors",
		Where: []plan.Predicate{
			plan.Pred("authors", "name", plan.OpEq, "Ann"),
			plan.Pred("authors", "id", plan.OpGt, int64(3)),
		},
	}

	t.Run("postgres numbers placeholders", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, p)
		assert.Contains(t, st.SQL, `WHERE "authors"."name" = $1 AND "authors"."id" > $2`)
		assert.Equal(t, []any{"Ann", int64(3)}, st.Args)
	})

	t.Run("mysql repeats the question mark", func(t *testing.T) {
		st := mustCompile(t, MySQL(), authorsTable, p)
		assert.Contains(t, st.SQL, "WHERE `authors`.`name` = ? AND `authors`.`id` > ?")
		assert.Equal(t, []any{"Ann", int64(3)}, st.Args)
	})

	t.Run("predicates render in insertion order", func(t *testing.T) {
		flipped := plan.Plan{Table: "authors", Where: []plan.Predicate{p.Where[1], p.Where[0]}}
		st := mustCompile(t, Postgres(), authorsTable, flipped)
		assert.Contains(t, st.SQL, `WHERE "authors"."id" > $1 AND "authors"."name" = $2`)
		assert.Equal(t, []any{int64(3), "Ann"}, st.Args)
	})
}

func TestOperatorRendering(t *testing.T) {
	tests := []struct {
		name string
		pred plan.Predicate
		want string
		args int
	}{
		{"neq", plan.Pred("authors", "id", plan.OpNeq, int64(1)), `"authors"."id" != $1`, 1},
		{"gte", plan.Pred("authors", "id", plan.OpGte, int64(1)), `"authors"."id" >= $1`, 1},
		{"lt", plan.Pred("authors", "id", plan.OpLt, int64(1)), `"authors"."id" < $1`, 1},
		{"lte", plan.Pred("authors", "id", plan.OpLte, int64(1)), `"authors"."id" <= $1`, 1},
		{"like", plan.Pred("authors", "name", plan.OpLike, "A%"), `"authors"."name" LIKE $1`, 1},
		{"ilike", plan.Pred("authors", "name", plan.OpILike, "a%"), `"authors"."name" ILIKE $1`, 1},
		{"in", plan.Pred("authors", "id", plan.OpIn, int64(1), int64(2)), `"authors"."id" IN ($1, $2)`, 2},
		{"not in", plan.Pred("authors", "id", plan.OpNotIn, int64(1), int64(2)), `"authors"."id" NOT IN ($1, $2)`, 2},
		{"is null", plan.Pred("authors", "email", plan.OpIsNull), `"authors"."email" IS NULL`, 0},
		{"is not null", plan.Pred("authors", "email", plan.OpIsNotNull), `"authors"."email" IS NOT NULL`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mustCompile(t, Postgres(), authorsTable, plan.Plan{Table: "authors", Where: []plan.Predicate{tt.pred}})
			assert.Contains(t, st.SQL, "WHERE "+tt.want)
			assert.Len(t, st.Args, tt.args)
		})
	}
}

func TestEmptyMembership(t *testing.T) {
	t.Run("empty IN is always false", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table: "authors",
			Where: []plan.Predicate{plan.Pred("authors", "id", plan.OpIn)},
		})
		assert.Contains(t, st.SQL, "WHERE 1=0")
		assert.Empty(t, st.Args)
	})

	t.Run("empty NOT IN is always true", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table: "authors",
			Where: []plan.Predicate{plan.Pred("authors", "id", plan.OpNotIn)},
		})
		assert.Contains(t, st.SQL, "WHERE 1=1")
		assert.Empty(t, st.Args)
	})

	t.Run("empty membership still conjoins", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table: "authors",
			Where: []plan.Predicate{
				plan.Pred("authors", "id", plan.OpIn),
				plan.Pred("authors", "name", plan.OpEq, "Ann"),
			},
		})
		assert.Contains(t, st.SQL, `WHERE 1=0 AND "authors"."name" = $1`)
		assert.Equal(t, []any{"Ann"}, st.Args)
	})
}

func TestNonePlan(t *testing.T) {
	st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
		Table: "authors",
		// Accumulated predicates are dropped once the plan is contradictory.
		Where: []plan.Predicate{plan.Pred("authors", "name", plan.OpEq, "Ann")},
		None:  true,
	})
	assert.Equal(t, `SELECT "authors"."id", "authors"."name", "authors"."email" FROM "authors" WHERE 1=0`, st.SQL)
	assert.Empty(t, st.Args)
}

func TestDialectRestrictions(t *testing.T) {
	ilike := plan.Plan{
		Table: "authors",
		Where: []plan.Predicate{plan.Pred("authors", "name", plan.OpILike, "a%")},
	}
	distinctOn := plan.Plan{Table: "authors", DistinctOn: []string{"name"}}

	t.Run("ilike requires postgres", func(t *testing.T) {
		_, err := NewCompiler(MySQL()).Compile(authorsTable, ilike)
		assert.ErrorIs(t, err, ErrUnsupportedClause)

		_, err = NewCompiler(SQLite()).Compile(authorsTable, ilike)
		assert.ErrorIs(t, err, ErrUnsupportedClause)

		_, err = NewCompiler(Postgres()).Compile(authorsTable, ilike)
		assert.NoError(t, err)
	})

	t.Run("distinct on requires postgres", func(t *testing.T) {
		_, err := NewCompiler(MySQL()).Compile(authorsTable, distinctOn)
		assert.ErrorIs(t, err, ErrUnsupportedClause)

		st := mustCompile(t, Postgres(), authorsTable, distinctOn)
		assert.Contains(t, st.SQL, `SELECT DISTINCT ON ("authors"."name") "authors"."id"`)
	})
}

func TestDistinct(t *testing.T) {
	st := mustCompile(t, Postgres(), authorsTable, plan.Plan{Table: "authors", Distinct: true})
	assert.Contains(t, st.SQL, `SELECT DISTINCT "authors"."id"`)
}

func TestOrderingClause(t *testing.T) {
	st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
		Table: "authors",
		Order: []plan.Ordering{
			{Table: "authors", Column: "name", Dir: plan.Asc},
			{Table: "authors", Column: "id", Dir: plan.Desc},
		},
	})
	assert.Contains(t, st.SQL, `ORDER BY "authors"."name" ASC, "authors"."id" DESC`)
}

func TestLimitOffsetArePlaceholders(t *testing.T) {
	limit, offset := 10, 20
	st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
		Table:  "authors",
		Where:  []plan.Predicate{plan.Pred("authors", "name", plan.OpEq, "Ann")},
		Limit:  &limit,
		Offset: &offset,
	})
	assert.Contains(t, st.SQL, "LIMIT $2 OFFSET $3")
	assert.Equal(t, []any{"Ann", 10, 20}, st.Args)
}

func TestGroupByHaving(t *testing.T) {
	st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
		Table:   "authors",
		GroupBy: []string{"name"},
		Having:  []plan.Predicate{plan.Pred("authors", "id", plan.OpGt, int64(5))},
	})
	assert.Contains(t, st.SQL, `GROUP BY "authors"."name" HAVING "authors"."id" > $1`)
	assert.Equal(t, []any{int64(5)}, st.Args)
}

func TestJoins(t *testing.T) {
	t.Run("has many joins on the target foreign key", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table: "authors",
			Joins: []plan.Join{{Kind: plan.InnerJoin, Assoc: "books"}},
		})
		assert.Contains(t, st.SQL, `INNER JOIN "books" ON "books"."author_id" = "authors"."id"`)
	})

	t.Run("belongs to joins on the parent foreign key", func(t *testing.T) {
		st := mustCompile(t, Postgres(), booksTable, plan.Plan{
			Table: "books",
			Joins: []plan.Join{{Kind: plan.LeftJoin, Assoc: "author"}},
		})
		assert.Contains(t, st.SQL, `LEFT JOIN "authors" ON "books"."author_id" = "authors"."id"`)
	})

	t.Run("extra conditions number before the where clause", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table: "authors",
			Where: []plan.Predicate{plan.Pred("authors", "name", plan.OpEq, "Ann")},
			Joins: []plan.Join{{
				Kind:  plan.InnerJoin,
				Assoc: "books",
				On:    []plan.Predicate{plan.Pred("books", "pages", plan.OpGt, int32(100))},
			}},
		})
		assert.Contains(t, st.SQL, `ON "books"."author_id" = "authors"."id" AND "books"."pages" > $1`)
		assert.Contains(t, st.SQL, `WHERE "authors"."name" = $2`)
		assert.Equal(t, []any{int32(100), "Ann"}, st.Args)
	})

	t.Run("unknown association fails", func(t *testing.T) {
		_, err := NewCompiler(Postgres()).Compile(authorsTable, plan.Plan{
			Table: "authors",
			Joins: []plan.Join{{Kind: plan.InnerJoin, Assoc: "ghost"}},
		})
		assert.ErrorIs(t, err, ErrUnknownAssociation)
	})
}

func TestAggregates(t *testing.T) {
	t.Run("count star", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table:     "authors",
			Aggregate: &plan.Aggregate{Fn: plan.AggCount},
		})
		assert.Equal(t, `SELECT COUNT(*) FROM "authors"`, st.SQL)
	})

	t.Run("sum of a column", func(t *testing.T) {
		st := mustCompile(t, Postgres(), booksTable, plan.Plan{
			Table:     "books",
			Aggregate: &plan.Aggregate{Fn: plan.AggSum, Table: "books", Column: "pages"},
		})
		assert.Equal(t, `SELECT SUM("books"."pages") FROM "books"`, st.SQL)
	})

	t.Run("predicates still apply", func(t *testing.T) {
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table:     "authors",
			Where:     []plan.Predicate{plan.Pred("authors", "name", plan.OpEq, "Ann")},
			Aggregate: &plan.Aggregate{Fn: plan.AggCount},
		})
		assert.Equal(t, `SELECT COUNT(*) FROM "authors" WHERE "authors"."name" = $1`, st.SQL)
	})

	t.Run("ordering and pagination drop without grouping", func(t *testing.T) {
		limit := 5
		st := mustCompile(t, Postgres(), authorsTable, plan.Plan{
			Table:     "authors",
			Order:     []plan.Ordering{{Table: "authors", Column: "id", Dir: plan.Desc}},
			Limit:     &limit,
			Aggregate: &plan.Aggregate{Fn: plan.AggCount},
		})
		assert.Equal(t, `SELECT COUNT(*) FROM "authors"`, st.SQL)
		assert.Empty(t, st.Args)
	})

	t.Run("grouping keeps the key column and pagination", func(t *testing.T) {
		limit := 5
		st := mustCompile(t, Postgres(), booksTable, plan.Plan{
			Table:     "books",
			GroupBy:   []string{"author_id"},
			Order:     []plan.Ordering{{Table: "books", Column: "author_id", Dir: plan.Asc}},
			Limit:     &limit,
			Aggregate: &plan.Aggregate{Fn: plan.AggCount},
		})
		assert.Equal(t, `SELECT COUNT(*), "books"."author_id" FROM "books" GROUP BY "books"."author_id" ORDER BY "books"."author_id" ASC LIMIT $1`, st.SQL)
		assert.Equal(t, []any{5}, st.Args)
	})
}

func TestCompileDeleteAll(t *testing.T) {
	st := NewCompiler(Postgres()).CompileDeleteAll(authorsTable)
	assert.Equal(t, `DELETE FROM "authors"`, st.SQL)
	assert.Empty(t, st.Args)

	st = NewCompiler(MySQL()).CompileDeleteAll(authorsTable)
	assert.Equal(t, "DELETE FROM `authors`", st.SQL)
}

func TestCompilationIsPure(t *testing.T) {
	limit := 3
	p := plan.Plan{
		Table: "authors",
		Where: []plan.Predicate{
			plan.Pred("authors", "name", plan.OpLike, "A%"),
			plan.Pred("authors", "id", plan.OpIn, int64(1), int64(2)),
		},
		Order: []plan.Ordering{{Table: "authors", Column: "id", Dir: plan.Asc}},
		Limit: &limit,
	}
	before := p.Clone()

	c := NewCompiler(Postgres())
	first, err := c.Compile(authorsTable, p)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Compile(authorsTable, p)
		require.NoError(t, err)
		assert.Equal(t, first.SQL, again.SQL)
		assert.Equal(t, first.Args, again.Args)
	}
	assert.Equal(t, before, p, "compilation must not mutate the plan")
}

func TestInvalidPredicateFailsCompilation(t *testing.T) {
	_, err := NewCompiler(Postgres()).Compile(authorsTable, plan.Plan{
		Table: "authors",
		Where: []plan.Predicate{plan.Pred("authors", "id", plan.OpEq)},
	})
	assert.ErrorIs(t, err, plan.ErrInvalidPredicate)
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"postgres", "postgres"},
		{"postgresql", "postgres"},
		{"mysql", "mysql"},
		{"sqlite", "sqlite"},
		{"sqlite3", "sqlite"},
	}
	for _, tt := range tests {
		d, err := DialectFor(tt.provider)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Name())
	}

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}
