// Package commands implements the quarry CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/internal/debug"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Type-safe relational query builders for Go",
	Long: `Quarry generates type-safe, lazily-evaluated query builders from a
schema file.

Define your models in schema.quarry, run quarry generate, and query your
database through compile-time checked column handles instead of SQL
strings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			debug.Init(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
