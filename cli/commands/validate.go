package commands

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema-path]",
	Short: "Validate a schema file",
	Long: `Validate a schema file for syntax and semantic errors.

This command will:
- Parse the schema file
- Resolve models, fields and relations
- Display diagnostics with source context`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

var validateSchemaPath string

func init() {
	validateCmd.Flags().StringVarP(&validateSchemaPath, "schema", "s", "", "Path to schema file")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	schemaPath, err := resolveSchemaPath(validateSchemaPath, args)
	if err != nil {
		return err
	}

	ui.PrintHeader("Quarry", "Validate Schema")

	s, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}

	absPath, _ := filepath.Abs(schemaPath)
	ui.PrintSuccess("Schema is valid: %s", absPath)

	fmt.Println()
	ui.PrintSection("Schema Summary")
	ui.PrintList([]string{
		fmt.Sprintf("provider %s", s.Database.Provider),
		fmt.Sprintf("package %s", s.Generate.Package),
		fmt.Sprintf("%d model(s)", len(s.Models)),
	})

	if len(s.Models) > 0 {
		fmt.Println()
		rows := make([][]string, 0, len(s.Models))
		for _, m := range s.Models {
			rows = append(rows, []string{
				m.Name,
				m.Table,
				strconv.Itoa(len(m.Fields)),
				strconv.Itoa(len(m.Relations)),
			})
		}
		ui.PrintTable([]string{"Model", "Table", "Fields", "Relations"}, rows)
	}

	return nil
}
