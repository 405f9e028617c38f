// Package update compares the running version against the latest known
// release and prints an upgrade hint when the binary is out of date.
package update

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-version"

	"github.com/quarrydb/quarry/cli/internal/ui"
)

// LatestKnown is the newest release the binary knows about. Release
// builds stamp this via -ldflags alongside the version package.
var LatestKnown = "0.1.0"

// CheckForUpdates compares currentVersion against the latest known
// release and prints an upgrade hint when a newer one exists.
func CheckForUpdates(currentVersion string) error {
	current, err := version.NewVersion(currentVersion)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}

	latest, err := version.NewVersion(LatestKnown)
	if err != nil {
		return fmt.Errorf("invalid latest version format: %w", err)
	}

	if current.LessThan(latest) {
		ui.PrintWarning("A new version is available!")
		fmt.Printf("Current version: %s\n", currentVersion)
		fmt.Printf("Latest version:  %s\n", LatestKnown)
		fmt.Printf("\nUpdate with: go install github.com/quarrydb/quarry/cli@latest\n")
	}

	return nil
}

// DownloadURL returns the release asset URL for the current platform.
func DownloadURL(ver string) string {
	return fmt.Sprintf("https://github.com/quarrydb/quarry/releases/download/v%s/quarry-%s-%s", ver, runtime.GOOS, runtime.GOARCH)
}
