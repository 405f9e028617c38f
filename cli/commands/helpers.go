package commands

import (
	"fmt"
	"os"

	"github.com/quarrydb/quarry/cli/internal/config"
	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/schema"
)

// resolveSchemaPath picks the schema file: flag first, then positional
// argument, then the configured default.
func resolveSchemaPath(flagValue string, args []string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.SchemaPath, nil
}

// loadSchema reads, parses and resolves a schema file. Errors are
// pretty-printed to stderr with source context, warnings are printed
// but do not fail the load.
func loadSchema(schemaPath string) (*schema.Schema, error) {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("schema file not found: %s", schemaPath)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	source := string(content)

	s, diags := schema.Load(schemaPath, source)
	if diags.HasErrors() {
		ui.PrintError("Schema validation failed:")
		fmt.Fprintf(os.Stderr, "\n%s\n", diags.ToPrettyString(schemaPath, source))
		return nil, diags.ToResult()
	}
	if len(diags.Warnings()) > 0 {
		ui.PrintWarning("Schema has warnings:")
		fmt.Fprintf(os.Stderr, "\n%s\n", diags.WarningsToPrettyString(schemaPath, source))
	}
	return s, nil
}

// driverName maps a schema provider to its database/sql driver name.
// The postgres driver registers as "postgres" and the sqlite driver as
// "sqlite3".
func driverName(provider string) string {
	switch provider {
	case "postgres", "postgresql":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return provider
	}
}
