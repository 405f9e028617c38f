package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/config"
	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/cli/internal/watch"
	"github.com/quarrydb/quarry/generator"
)

var generateCmd = &cobra.Command{
	Use:   "generate [schema-path]",
	Short: "Generate query builders from a schema",
	Long: `Generate type-safe query builders from your schema.

This command will:
- Parse and validate the schema file
- Generate model structs, column handles and table descriptors
- Generate per-model query builders with preload and join helpers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var (
	generateSchemaPath string
	generateWatch      bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateSchemaPath, "schema", "s", "", "Path to schema file")
	generateCmd.Flags().BoolVarP(&generateWatch, "watch", "w", false, "Regenerate on schema changes")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	schemaPath, err := resolveSchemaPath(generateSchemaPath, args)
	if err != nil {
		return err
	}

	if generateWatch {
		return runGenerateWatch(schemaPath)
	}

	ui.PrintHeader("Quarry", "Generate")
	return generateOnce(schemaPath, true)
}

func generateOnce(schemaPath string, verbose bool) error {
	s, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}

	// Relative output paths resolve against the schema file, not the
	// working directory.
	outputDir := s.Generate.Output
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(filepath.Dir(schemaPath), outputDir)
	}

	if verbose {
		info := pterm.Info.WithPrefix(pterm.Prefix{
			Text:  "INFO",
			Style: pterm.NewStyle(pterm.FgBlue),
		})
		info.Println(fmt.Sprintf("Schema:   %s", schemaPath))
		info.Println(fmt.Sprintf("Package:  %s", s.Generate.Package))
		info.Println(fmt.Sprintf("Output:   %s", outputDir))
		info.Println(fmt.Sprintf("Provider: %s", s.Database.Provider))
		fmt.Println()
	}

	spinner, _ := ui.PrintSpinner("Generating query builders...")
	if err := generator.New(s, config.AppFs).Generate(outputDir); err != nil {
		spinner.Fail("Generation failed")
		return fmt.Errorf("code generation failed: %w", err)
	}
	spinner.Stop()

	absPath, _ := filepath.Abs(outputDir)
	ui.PrintSuccess("Generated package %s at %s", s.Generate.Package, absPath)

	if verbose {
		fmt.Println()
		ui.PrintSection("Generated Files")
		ui.PrintList([]string{
			"models.go  - Model structs with relation cells",
			"columns.go - Typed column handles",
			"tables.go  - Table descriptors",
			"query.go   - Per-model query builders",
		})

		fmt.Println()
		ui.PrintSection("Next Steps")
		ui.PrintList([]string{
			fmt.Sprintf("Import the %s package in your code", s.Generate.Package),
			"Open a session: session, _ := executor.Open(ctx, provider, dsn)",
			fmt.Sprintf("Query: rows, _ := %s.Users(session).All(ctx)", s.Generate.Package),
		})
	}

	return nil
}

func runGenerateWatch(schemaPath string) error {
	ui.PrintHeader("Quarry", "Watch Mode")

	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", schemaPath)
	}

	regenerate := func() error {
		ui.PrintInfo("Schema changed, regenerating...")
		// Schema errors keep the watcher alive so they can be fixed.
		if err := generateOnce(schemaPath, false); err != nil {
			ui.PrintError("%v", err)
		}
		return nil
	}

	if err := generateOnce(schemaPath, false); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(schemaPath, regenerate)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.Start()

	ui.PrintSuccess("Watching %s for changes... (Press Ctrl+C to stop)", schemaPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ui.PrintInfo("\nStopping watch mode...")
	return nil
}
