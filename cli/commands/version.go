package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/update"
	"github.com/quarrydb/quarry/cli/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

var versionFull bool

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "Print build details")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	if versionFull {
		fmt.Println(info.FullString())
	} else {
		fmt.Println(info.String())
	}
	return update.CheckForUpdates(info.Version)
}
