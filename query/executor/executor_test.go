package executor

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/query/executor/drivertest"
	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/query/relation"
	"github.com/quarrydb/quarry/query/sqlgen"
	"github.com/quarrydb/quarry/registry"
)

type writer struct {
	ID    int64   `db:"id"`
	Name  string  `db:"name"`
	Genre *string `db:"genre"`

	Articles relation.HasMany[article] `db:"-"`
	Profile  relation.HasOne[profile]  `db:"-"`
}

type article struct {
	ID       int64  `db:"id"`
	WriterID *int64 `db:"writer_id"`
	Title    string `db:"title"`

	Writer  relation.BelongsTo[writer] `db:"-"`
	Remarks relation.HasMany[remark]   `db:"-"`
}

type remark struct {
	ID        int64  `db:"id"`
	ArticleID int64  `db:"article_id"`
	Body      string `db:"body"`
}

type profile struct {
	ID       int64  `db:"id"`
	WriterID int64  `db:"writer_id"`
	Slug     string `db:"slug"`
}

var writersTable = registry.MustRegister[writer](registry.TableSpec{
	Name: "writers",
	Columns: []registry.Column{
		{Name: "id", Type: registry.Int64},
		{Name: "name", Type: registry.String},
		{Name: "genre", Type: registry.String, Nullable: true},
	},
	PrimaryKey: "id",
	Associations: []registry.Association{
		{Name: "articles", Kind: registry.HasMany, Target: "articles", ForeignKey: "writer_id", References: "id", Field: "Articles"},
		{Name: "profile", Kind: registry.HasOne, Target: "profiles", ForeignKey: "writer_id", References: "id", Field: "Profile"},
	},
})

var articlesTable = registry.MustRegister[article](registry.TableSpec{
	Name: "articles",
	Columns: []registry.Column{
		{Name: "id", Type: registry.Int64},
		{Name: "writer_id", Type: registry.Int64, Nullable: true},
		{Name: "title", Type: registry.String},
	},
	PrimaryKey: "id",
	Associations: []registry.Association{
		{Name: "writer", Kind: registry.BelongsTo, Target: "writers", ForeignKey: "writer_id", References: "id", Field: "Writer"},
		{Name: "remarks", Kind: registry.HasMany, Target: "remarks", ForeignKey: "article_id", References: "id", Field: "Remarks"},
	},
})

var _ = registry.MustRegister[remark](registry.TableSpec{
	Name: "remarks",
	Columns: []registry.Column{
		{Name: "id", Type: registry.Int64},
		{Name: "article_id", Type: registry.Int64},
		{Name: "body", Type: registry.String},
	},
	PrimaryKey: "id",
})

var _ = registry.MustRegister[profile](registry.TableSpec{
	Name: "profiles",
	Columns: []registry.Column{
		{Name: "id", Type: registry.Int64},
		{Name: "writer_id", Type: registry.Int64},
		{Name: "slug", Type: registry.String},
	},
	PrimaryKey: "id",
})

func newSession(t *testing.T, d *drivertest.DB, opts ...Option) *Session {
	t.Helper()
	db := d.Open()
	t.Cleanup(func() { db.Close() })
	return New(db, append([]Option{WithMode(ModeDevelopment)}, opts...)...)
}

func writerRow(id int64, name string, genre any) []driver.Value {
	return []driver.Value{id, name, genre}
}

func articleRow(id int64, writerID any, title string) []driver.Value {
	return []driver.Value{id, writerID, title}
}

var writerCols = []string{"id", "name", "genre"}
var articleCols = []string{"id", "writer_id", "title"}

func TestAllScansRows(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols,
		writerRow(1, "Ann", "essay"),
		writerRow(2, "Bob", nil),
	)

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Ann", got[0].Name)
	require.NotNil(t, got[0].Genre)
	assert.Equal(t, "essay", *got[0].Genre)
	assert.Nil(t, got[1].Genre)

	log := d.Log()
	require.Len(t, log, 1)
	assert.Equal(t, `SELECT "writers"."id", "writers"."name", "writers"."genre" FROM "writers"`, log[0].SQL)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Queries)
	assert.Equal(t, int64(2), stats.Rows)
}

func TestAllNonePlanSkipsBackend(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers", None: true})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, d.QueryCount())
	assert.Equal(t, int64(0), s.Stats().Queries)
}

func TestAllCompileErrorSkipsBackend(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d, WithDialect(sqlgen.MySQL()))

	_, err := All[writer](context.Background(), s, writersTable, plan.Plan{
		Table: "writers",
		Where: []plan.Predicate{plan.Pred("writers", "name", plan.OpILike, "a%")},
	})
	require.ErrorIs(t, err, sqlgen.ErrUnsupportedClause)
	assert.Equal(t, 0, d.QueryCount())
}

func TestQueryErrorWrapsDriverFailure(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)

	_, err := All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers"})
	require.Error(t, err)

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "select", qe.Op)
	assert.Equal(t, "writers", qe.Table)
	assert.NotEmpty(t, qe.SQL)
	assert.False(t, IsNotFound(err))
}

func TestScalarNull(t *testing.T) {
	countPlan := plan.Plan{Table: "writers", Aggregate: &plan.Aggregate{Fn: plan.AggCount}}

	t.Run("value", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d)
		d.QueueRows([]string{"count"}, []driver.Value{int64(5)})

		n, ok, err := ScalarNull[int64](context.Background(), s, writersTable, countPlan)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(5), n)
	})

	t.Run("null reads as absent", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d)
		d.QueueRows([]string{"sum"}, []driver.Value{nil})

		_, ok, err := ScalarNull[int64](context.Background(), s, writersTable, plan.Plan{
			Table:     "writers",
			Aggregate: &plan.Aggregate{Fn: plan.AggSum, Table: "writers", Column: "id"},
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no rows reads as absent", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d)
		d.QueueRows([]string{"count"})

		_, ok, err := ScalarNull[int64](context.Background(), s, writersTable, countPlan)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("none plan skips the backend", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d)

		none := countPlan
		none.None = true
		_, ok, err := ScalarNull[int64](context.Background(), s, writersTable, none)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, d.QueryCount())
	})
}

func TestDeleteAll(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueExec(4)

	n, err := s.DeleteAll(context.Background(), writersTable)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	log := d.Log()
	require.Len(t, log, 1)
	assert.Equal(t, `DELETE FROM "writers"`, log[0].SQL)
	assert.Empty(t, log[0].Args)
	assert.Equal(t, int64(1), s.Stats().Queries)
}

func TestStatementCache(t *testing.T) {
	t.Run("repeat statements hit the cache", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d)
		d.QueueRows(writerCols, writerRow(1, "Ann", nil))
		d.QueueRows(writerCols, writerRow(1, "Ann", nil))

		p := plan.Plan{Table: "writers"}
		_, err := All[writer](context.Background(), s, writersTable, p)
		require.NoError(t, err)
		_, err = All[writer](context.Background(), s, writersTable, p)
		require.NoError(t, err)

		stats := s.Stats()
		assert.Equal(t, int64(1), stats.StmtMisses)
		assert.Equal(t, int64(1), stats.StmtHits)
		assert.Equal(t, int64(2), stats.Queries)
	})

	t.Run("size zero disables preparation", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d, WithStatementCacheSize(0))
		d.QueueRows(writerCols, writerRow(1, "Ann", nil))
		d.QueueRows(writerCols, writerRow(1, "Ann", nil))

		p := plan.Plan{Table: "writers"}
		_, err := All[writer](context.Background(), s, writersTable, p)
		require.NoError(t, err)
		_, err = All[writer](context.Background(), s, writersTable, p)
		require.NoError(t, err)

		stats := s.Stats()
		assert.Equal(t, int64(0), stats.StmtMisses)
		assert.Equal(t, int64(0), stats.StmtHits)
	})
}

func TestQueryHook(t *testing.T) {
	type seen struct {
		sql  string
		args int
		err  error
	}
	var calls []seen
	hook := func(sqlText string, args []any, _ time.Duration, err error) {
		calls = append(calls, seen{sql: sqlText, args: len(args), err: err})
	}

	d := drivertest.New()
	s := newSession(t, d, WithQueryHook(hook))
	d.QueueRows(writerCols, writerRow(1, "Ann", nil))

	_, err := All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers"})
	require.NoError(t, err)

	// A second, unscripted query reports its failure to the hook too.
	_, err = All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers"})
	require.Error(t, err)

	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].sql, `FROM "writers"`)
	assert.Equal(t, 0, calls[0].args)
	assert.NoError(t, calls[0].err)
	assert.Error(t, calls[1].err)
}

func TestCountBy(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows([]string{"count", "genre"},
		[]driver.Value{int64(3), "essay"},
		[]driver.Value{int64(2), "poetry"},
	)

	got, err := CountBy[string](context.Background(), s, writersTable, plan.Plan{
		Table:     "writers",
		GroupBy:   []string{"genre"},
		Aggregate: &plan.Aggregate{Fn: plan.AggCount},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"essay": 3, "poetry": 2}, got)

	t.Run("none plan skips the backend", func(t *testing.T) {
		got, err := CountBy[string](context.Background(), s, writersTable, plan.Plan{
			Table:     "writers",
			GroupBy:   []string{"genre"},
			Aggregate: &plan.Aggregate{Fn: plan.AggCount},
			None:      true,
		})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 1, d.QueryCount())
	})
}

func TestPreloadHasMany(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols,
		writerRow(1, "Ann", nil),
		writerRow(2, "Bob", nil),
		writerRow(3, "Cyn", nil),
	)
	d.QueueRows(articleCols,
		articleRow(10, int64(1), "first"),
		articleRow(11, int64(1), "second"),
		articleRow(12, int64(2), "third"),
	)

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{
		Table:    "writers",
		Preloads: []plan.Preload{{Assoc: "articles"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// One parent query plus one batched child query, regardless of the
	// number of parents.
	assert.Equal(t, 2, d.QueryCount())

	log := d.Log()
	assert.Equal(t, `SELECT "articles"."id", "articles"."writer_id", "articles"."title" FROM "articles" WHERE "articles"."writer_id" IN ($1, $2, $3)`, log[1].SQL)
	assert.Equal(t, []driver.Value{int64(1), int64(2), int64(3)}, log[1].Args)

	ctx := context.Background()
	ann, err := got[0].Articles.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, ann, 2)
	assert.Equal(t, "first", ann[0].Title)

	bob, err := got[1].Articles.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, bob, 1)

	cyn, err := got[2].Articles.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, cyn, "a parent without children still reads as loaded")
}

func TestPreloadBelongsTo(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(articleCols,
		articleRow(10, int64(7), "first"),
		articleRow(11, int64(7), "second"),
		articleRow(12, nil, "orphan"),
	)
	d.QueueRows(writerCols, writerRow(7, "Ann", nil))

	got, err := All[article](context.Background(), s, articlesTable, plan.Plan{
		Table:    "articles",
		Preloads: []plan.Preload{{Assoc: "writer"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2, d.QueryCount())

	log := d.Log()
	assert.Equal(t, `SELECT "writers"."id", "writers"."name", "writers"."genre" FROM "writers" WHERE "writers"."id" IN ($1)`, log[1].SQL)
	assert.Equal(t, []driver.Value{int64(7)}, log[1].Args)

	ctx := context.Background()
	w0, err := got[0].Writer.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, w0)
	assert.Equal(t, "Ann", w0.Name)

	w1, err := got[1].Writer.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, w0, w1, "duplicate keys share one loaded parent")

	// A NULL foreign key loads as absent, not as an error.
	w2, err := got[2].Writer.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, w2)
}

func TestPreloadHasOne(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols,
		writerRow(1, "Ann", nil),
		writerRow(2, "Bob", nil),
	)
	d.QueueRows([]string{"id", "writer_id", "slug"},
		[]driver.Value{int64(20), int64(1), "ann-writes"},
	)

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{
		Table:    "writers",
		Preloads: []plan.Preload{{Assoc: "profile"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, d.QueryCount())

	ctx := context.Background()
	p0, err := got[0].Profile.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, p0)
	assert.Equal(t, "ann-writes", p0.Slug)

	p1, err := got[1].Profile.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, p1)
}

func TestPreloadNestedPath(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols, writerRow(1, "Ann", nil))
	d.QueueRows(articleCols,
		articleRow(10, int64(1), "first"),
		articleRow(11, int64(1), "second"),
	)
	d.QueueRows([]string{"id", "article_id", "body"},
		[]driver.Value{int64(100), int64(10), "nice"},
		[]driver.Value{int64(101), int64(10), "agreed"},
	)

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{
		Table: "writers",
		Preloads: []plan.Preload{{
			Assoc:    "articles",
			Children: []plan.Preload{{Assoc: "remarks"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	// One query per edge: writers, articles, remarks.
	assert.Equal(t, 3, d.QueryCount())

	ctx := context.Background()
	arts, err := got[0].Articles.Get(ctx)
	require.NoError(t, err)
	require.Len(t, arts, 2)

	r0, err := arts[0].Remarks.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, r0, 2)

	r1, err := arts[1].Remarks.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, r1)
}

func TestPreloadZeroParents(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols)

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{
		Table:    "writers",
		Preloads: []plan.Preload{{Assoc: "articles"}},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, d.QueryCount(), "no parents means no child query")
}

func TestPreloadAllKeysNull(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(articleCols,
		articleRow(10, nil, "orphan one"),
		articleRow(11, nil, "orphan two"),
	)

	got, err := All[article](context.Background(), s, articlesTable, plan.Plan{
		Table:    "articles",
		Preloads: []plan.Preload{{Assoc: "writer"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.QueryCount(), "no usable keys means no child query")

	w, err := got[0].Writer.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestPreloadScope(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols, writerRow(1, "Ann", nil))
	d.QueueRows(articleCols, articleRow(10, int64(1), "Alpha"))

	limit := 5
	_, err := All[writer](context.Background(), s, writersTable, plan.Plan{
		Table: "writers",
		Preloads: []plan.Preload{{
			Assoc: "articles",
			Where: []plan.Predicate{plan.Pred("articles", "title", plan.OpLike, "A%")},
			Order: []plan.Ordering{{Table: "articles", Column: "id", Dir: plan.Desc}},
			Limit: &limit,
		}},
	})
	require.NoError(t, err)

	log := d.Log()
	require.Len(t, log, 2)
	assert.Equal(t, `SELECT "articles"."id", "articles"."writer_id", "articles"."title" FROM "articles" WHERE "articles"."writer_id" IN ($1) AND "articles"."title" LIKE $2 ORDER BY "articles"."id" DESC LIMIT $3`, log[1].SQL)
	assert.Equal(t, []driver.Value{int64(1), "A%", int64(5)}, log[1].Args)
}

func TestPreloadUnknownAssociation(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols, writerRow(1, "Ann", nil))

	_, err := All[writer](context.Background(), s, writersTable, plan.Plan{
		Table:    "writers",
		Preloads: []plan.Preload{{Assoc: "ghost"}},
	})
	assert.ErrorIs(t, err, sqlgen.ErrUnknownAssociation)
}

func TestUnloadedAccessFailsInDevelopment(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols, writerRow(1, "Ann", nil))

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers"})
	require.NoError(t, err)

	_, err = got[0].Articles.Get(context.Background())
	require.ErrorIs(t, err, relation.ErrNotLoaded)
	assert.Equal(t, 1, d.QueryCount())
}

func TestLazyLoadInProduction(t *testing.T) {
	t.Run("has many fetches once and caches", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d, WithMode(ModeProduction))
		d.QueueRows(writerCols, writerRow(1, "Ann", nil))
		d.QueueRows(articleCols, articleRow(10, int64(1), "first"))

		got, err := All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers"})
		require.NoError(t, err)

		ctx := context.Background()
		arts, err := got[0].Articles.Get(ctx)
		require.NoError(t, err)
		assert.Len(t, arts, 1)
		assert.Equal(t, 2, d.QueryCount())

		log := d.Log()
		assert.Equal(t, `SELECT "articles"."id", "articles"."writer_id", "articles"."title" FROM "articles" WHERE "articles"."writer_id" = $1`, log[1].SQL)

		_, err = got[0].Articles.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, d.QueryCount(), "second read must not query again")
	})

	t.Run("belongs to fetches one row", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d, WithMode(ModeProduction))
		d.QueueRows(articleCols, articleRow(10, int64(7), "first"))
		d.QueueRows(writerCols, writerRow(7, "Ann", nil))

		got, err := All[article](context.Background(), s, articlesTable, plan.Plan{Table: "articles"})
		require.NoError(t, err)

		w, err := got[0].Writer.Get(context.Background())
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, "Ann", w.Name)

		log := d.Log()
		assert.Equal(t, `SELECT "writers"."id", "writers"."name", "writers"."genre" FROM "writers" WHERE "writers"."id" = $1 LIMIT $2`, log[1].SQL)
		assert.Equal(t, []driver.Value{int64(7), int64(1)}, log[1].Args)
	})

	t.Run("belongs to with null key skips the backend", func(t *testing.T) {
		d := drivertest.New()
		s := newSession(t, d, WithMode(ModeProduction))
		d.QueueRows(articleCols, articleRow(10, nil, "orphan"))

		got, err := All[article](context.Background(), s, articlesTable, plan.Plan{Table: "articles"})
		require.NoError(t, err)

		w, err := got[0].Writer.Get(context.Background())
		require.NoError(t, err)
		assert.Nil(t, w)
		assert.Equal(t, 1, d.QueryCount())
	})
}

func TestForceLoadsInDevelopment(t *testing.T) {
	d := drivertest.New()
	s := newSession(t, d)
	d.QueueRows(writerCols, writerRow(1, "Ann", nil))
	d.QueueRows(articleCols, articleRow(10, int64(1), "first"))

	got, err := All[writer](context.Background(), s, writersTable, plan.Plan{Table: "writers"})
	require.NoError(t, err)

	arts, err := got[0].Articles.Force(context.Background())
	require.NoError(t, err)
	assert.Len(t, arts, 1)
	assert.Equal(t, 2, d.QueryCount())
}

func TestModeFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want Mode
	}{
		{"", ModeDevelopment},
		{"development", ModeDevelopment},
		{"production", ModeProduction},
		{"prod", ModeProduction},
		{"test", ModeTest},
		{"staging", ModeDevelopment},
	}
	for _, tt := range tests {
		t.Run("QUARRY_ENV="+tt.env, func(t *testing.T) {
			t.Setenv("QUARRY_ENV", tt.env)
			assert.Equal(t, tt.want, ModeFromEnv())
		})
	}
}

func TestSessionDefaults(t *testing.T) {
	t.Setenv("QUARRY_ENV", "")
	d := drivertest.New()
	db := d.Open()
	t.Cleanup(func() { db.Close() })

	s := New(db)
	assert.Equal(t, "postgres", s.Dialect().Name())
	assert.Equal(t, ModeDevelopment, s.Mode())
	assert.NotNil(t, s.Compiler())
	assert.Same(t, db, s.DB())
	assert.Equal(t, Stats{}, s.Stats())
}

func TestOpenRejectsUnknownProvider(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn://nope")
	assert.Error(t, err)
}
