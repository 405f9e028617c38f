package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/schema"
)

var fmtCmd = &cobra.Command{
	Use:     "fmt [schema-path]",
	Aliases: []string{"format"},
	Short:   "Format a schema file",
	Long: `Rewrite a schema file in canonical form.

Fields are aligned in columns, attribute spacing is normalized and
blank-line groupings are preserved. With --check the file is left
untouched and the command fails if it is not already formatted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFmt,
}

var (
	fmtSchemaPath string
	fmtCheck      bool
)

func init() {
	fmtCmd.Flags().StringVarP(&fmtSchemaPath, "schema", "s", "", "Path to schema file")
	fmtCmd.Flags().BoolVar(&fmtCheck, "check", false, "Fail if the file is not formatted, without writing")

	rootCmd.AddCommand(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	schemaPath, err := resolveSchemaPath(fmtSchemaPath, args)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(schemaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", schemaPath)
		}
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	source := string(content)

	formatted, err := schema.Format(schemaPath, source)
	if err != nil {
		return fmt.Errorf("failed to format schema: %w", err)
	}

	absPath, _ := filepath.Abs(schemaPath)

	if fmtCheck {
		if formatted == source {
			ui.PrintSuccess("%s is formatted", absPath)
			return nil
		}
		ui.PrintDiff(source, formatted)
		return fmt.Errorf("%s is not formatted", schemaPath)
	}

	if formatted == source {
		ui.PrintSuccess("%s already formatted", absPath)
		return nil
	}

	if err := os.WriteFile(schemaPath, []byte(formatted), 0o644); err != nil {
		return fmt.Errorf("failed to write formatted schema: %w", err)
	}

	ui.PrintSuccess("Formatted %s", absPath)
	return nil
}
