// ABOUTME: version subcommand printing the build stamp injected by main
// ABOUTME: Also reports the Go runtime and the embedding encoding used for chunking
package commands

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/harper/storybrief/internal/tokenizer"
	"github.com/spf13/cobra"
)

var versionInfo = VersionInfo{
	Version: "dev",
	Commit:  "none",
	Date:    "unknown",
}

// VersionInfo is the build stamp set through -ldflags
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Encoding  string `json:"encoding"`
}

// SetVersion records the build stamp
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

func currentVersion() VersionInfo {
	v := versionInfo
	v.GoVersion = runtime.Version()
	v.Encoding = tokenizer.DefaultEncoding
	return v
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Print the storybrief release, commit and build date. Use --format json for machine-readable output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion()
			out := cmd.OutOrStdout()
			if wantJSON() {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			fmt.Fprintf(out, "storybrief %s\n", v.Version)
			fmt.Fprintf(out, "Commit: %s\n", v.Commit)
			fmt.Fprintf(out, "Built:  %s\n", v.Date)
			fmt.Fprintf(out, "Go:     %s (%s)\n", v.GoVersion, v.Encoding)
			return nil
		},
	}
}
