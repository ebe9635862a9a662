// ABOUTME: Root command with global flags shared by every subcommand
// ABOUTME: Handles verbosity, output format and the optional config file path
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
 ███████╗████████╗ ██████╗ ██████╗ ██╗   ██╗
 ██╔════╝╚══██╔══╝██╔═══██╗██╔══██╗╚██╗ ██╔╝
 ███████╗   ██║   ██║   ██║██████╔╝ ╚████╔╝
 ╚════██║   ██║   ██║   ██║██╔══██╗  ╚██╔╝
 ███████║   ██║   ╚██████╔╝██║  ██║   ██║
 ╚══════╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝   ╚═╝   brief`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storybrief",
		Short: "Chronological summaries for multi-article news stories",
		Long: banner + `

storybrief indexes the articles of each news story, retrieves
time-ordered evidence for queries, and writes event summaries and
influence reports with an OpenAI-compatible model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			switch outputFormat {
			case "auto", "json", "table":
			default:
				return fmt.Errorf("--format must be auto, json or table, got %q", outputFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors and results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json, table")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")

	cmd.AddCommand(
		NewVersionCmd(),
		NewIndexCmd(),
		NewRetrieveCmd(),
		NewReportCmd(),
		NewMCPCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
