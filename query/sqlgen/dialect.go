package sqlgen

import (
	"fmt"
	"strconv"
)

// Dialect abstracts the differences between supported backends:
// placeholder style, identifier quoting, and feature support.
type Dialect interface {
	// Name returns the provider name ("postgres", "mysql", "sqlite").
	Name() string
	// Placeholder renders the n-th parameter marker, 1-based.
	Placeholder(n int) string
	// QuoteIdent quotes a single identifier.
	QuoteIdent(ident string) string
	// SupportsDistinctOn reports DISTINCT ON support.
	SupportsDistinctOn() bool
	// SupportsILike reports native ILIKE support.
	SupportsILike() bool
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgresDialect) QuoteIdent(s string) string { return `"` + s + `"` }
func (postgresDialect) SupportsDistinctOn() bool { return true }
func (postgresDialect) SupportsILike() bool { return true }

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }
func (mysqlDialect) Placeholder(int) string { return "?" }
func (mysqlDialect) QuoteIdent(s string) string { return "`" + s + "`" }
func (mysqlDialect) SupportsDistinctOn() bool { return false }
func (mysqlDialect) SupportsILike() bool { return false }

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) QuoteIdent(s string) string { return `"` + s + `"` }
func (sqliteDialect) SupportsDistinctOn() bool { return false }
func (sqliteDialect) SupportsILike() bool { return false }

// Postgres returns the PostgreSQL dialect ($N placeholders, double quotes).
func Postgres() Dialect { return postgresDialect{} }

// MySQL returns the MySQL dialect (? placeholders, backticks).
func MySQL() Dialect { return mysqlDialect{} }

// SQLite returns the SQLite dialect (? placeholders, double quotes).
func SQLite() Dialect { return sqliteDialect{} }

// DialectFor maps a provider name from configuration to its dialect.
func DialectFor(provider string) (Dialect, error) {
	switch provider {
	case "postgres", "postgresql":
		return Postgres(), nil
	case "mysql":
		return MySQL(), nil
	case "sqlite", "sqlite3":
		return SQLite(), nil
	}
	return nil, fmt.Errorf("unsupported provider %q", provider)
}
