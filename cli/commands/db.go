package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quarrydb/quarry/cli/internal/config"
	"github.com/quarrydb/quarry/cli/internal/ui"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the configured database connection",
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the database is reachable",
	Long: `Resolve the provider and connection string from the schema file,
QUARRY_* environment variables and .env files, then open a connection
and ping the server.`,
	RunE: runDBPing,
}

var dbPingTimeout time.Duration

func init() {
	dbPingCmd.Flags().DurationVar(&dbPingTimeout, "timeout", 5*time.Second, "Connection timeout")

	dbCmd.AddCommand(dbPingCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBPing(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	provider := cfg.Provider
	dsn := cfg.DatabaseURL

	// The schema file wins over config when present.
	if _, err := os.Stat(cfg.SchemaPath); err == nil {
		s, err := loadSchema(cfg.SchemaPath)
		if err != nil {
			return err
		}
		provider = s.Database.Provider
		resolved, err := s.Database.URL.Resolve()
		if err != nil {
			return err
		}
		dsn = resolved
	}

	if provider == "" {
		return fmt.Errorf("no provider configured: run quarry init or set QUARRY_PROVIDER")
	}
	if dsn == "" {
		return fmt.Errorf("no connection string configured: set DATABASE_URL")
	}

	driver := driverName(provider)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), dbPingTimeout)
	defer cancel()

	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database is not reachable: %w", err)
	}

	ui.PrintSuccess("Database is reachable (%s, %s)", driver, time.Since(start).Round(time.Millisecond))
	return nil
}
