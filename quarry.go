// Package quarry generates type-safe, lazily-evaluated query builders
// from a schema file and executes them over database/sql.
//
// The real API lives in the generated packages and in query/builder,
// query/executor and query/relation. This package re-exports the types
// an application touches every day so most files need a single import:
//
//	session, err := quarry.Open(ctx, "postgres", dsn)
//	if err != nil { ... }
//	defer session.Close()
//
//	users, err := blogdb.Users(session).
//		Where(blogdb.UserColumns.Name.Like("a%")).
//		PreloadPosts().
//		All(ctx)
package quarry

import (
	"context"
	"database/sql"

	"github.com/quarrydb/quarry/query/builder"
	"github.com/quarrydb/quarry/query/executor"
	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/query/relation"
	"github.com/quarrydb/quarry/query/sqlgen"
	"github.com/quarrydb/quarry/registry"
)

// Re-export key types for convenience.
type (
	Session       = executor.Session
	SessionOption = executor.Option
	Mode          = executor.Mode
	Stats         = executor.Stats
	Dialect       = sqlgen.Dialect
	Predicate     = plan.Predicate
	Ordering      = plan.Ordering
	PreloadOption = builder.PreloadOption
	Table         = registry.Table
)

// Session modes. The mode decides how unloaded associations behave.
const (
	ModeDevelopment = executor.ModeDevelopment
	ModeTest        = executor.ModeTest
	ModeProduction  = executor.ModeProduction
)

var (
	// ErrRecordNotFound is returned by First, Last and Find when no row
	// matches.
	ErrRecordNotFound = executor.ErrRecordNotFound
	// ErrNotLoaded is returned when an unloaded association is read in
	// a fail-hard mode.
	ErrNotLoaded = relation.ErrNotLoaded
)

// Session options.
var (
	WithDialect            = executor.WithDialect
	WithMode               = executor.WithMode
	WithLogger             = executor.WithLogger
	WithStatementCacheSize = executor.WithStatementCacheSize
	WithQueryHook          = executor.WithQueryHook
)

// Preload options.
var (
	PreloadWhere = builder.PreloadWhere
	PreloadOrder = builder.PreloadOrder
	PreloadLimit = builder.PreloadLimit
)

// Open connects to the database for the given provider and returns a
// session wired with the matching dialect.
func Open(ctx context.Context, provider, dsn string, opts ...SessionOption) (*Session, error) {
	return executor.Open(ctx, provider, dsn, opts...)
}

// NewSession wraps an existing database handle. The default dialect is
// postgres, use WithDialect to override.
func NewSession(db *sql.DB, opts ...SessionOption) *Session {
	return executor.New(db, opts...)
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool { return executor.IsNotFound(err) }
