// ABOUTME: CLI command to generate summaries and reports for dataset stories
// ABOUTME: Builds missing indexes and runs stories on a bounded worker pool
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/storybrief/internal/app"
	"github.com/harper/storybrief/internal/dataset"
	"github.com/harper/storybrief/internal/pipeline"
)

var (
	reportIDs         string
	reportOutput      string
	reportFull        string
	reportSummaryOnly bool
)

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <dataset>",
		Short: "Generate event summaries for dataset stories",
		Long: `Generate a chronological event summary for each selected story.

Indexes are built first when missing. Stories run concurrently (WORKERS,
default 5); a failed story gets an empty summary and is listed as failed.
The output file holds [{id, summary}] in the requested order; use a .yaml
extension for YAML.

Examples:
  storybrief report data/valid.json
  storybrief report --ids 1-5 data/valid.json
  storybrief report --ids 1,3,7 --reports output/reports.json data/valid.json`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().StringVar(&reportIDs, "ids", "all", "Stories to process: all, 1-5 or 1,3,7")
	cmd.Flags().StringVarP(&reportOutput, "output", "o", "output/results/result.json", "Summary output file")
	cmd.Flags().StringVar(&reportFull, "reports", "", "Also write full reports (topic, queries, influence, evidence) to this file")
	cmd.Flags().BoolVar(&reportSummaryOnly, "summary-only", false, "Skip influence analysis and answer merging")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	stories, err := dataset.LoadStories(args[0])
	if err != nil {
		return err
	}
	ids, err := pipeline.ParseIDs(reportIDs, dataset.IDs(stories))
	if err != nil {
		return err
	}

	rt, ctx, err := openRuntime(cmd.Context(), cmd, app.WithSummaryOnly(reportSummaryOnly))
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Config.RequireLLM(); err != nil {
		return err
	}
	gen, err := rt.RequireGenerator()
	if err != nil {
		return err
	}

	runner := pipeline.NewBatchRunner(rt.Builder, gen, rt.Config.Workers, rt.Logger)
	batch, runErr := runner.Run(ctx, ids, dataset.ByID(stories))
	if batch == nil {
		return runErr
	}

	if err := pipeline.WriteResults(reportOutput, batch); err != nil {
		return err
	}
	if reportFull != "" {
		if err := pipeline.WriteReports(reportFull, batch); err != nil {
			return err
		}
	}

	if wantJSON() {
		if err := pipeline.Encode(cmd.OutOrStdout(), batch.BatchResult, pipeline.FormatJSON); err != nil {
			return err
		}
	} else if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d result(s) to %s\n", len(batch.Results), reportOutput)
		if len(batch.FailedIDs) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Failed ids (%d): %v\n", len(batch.FailedIDs), batch.FailedIDs)
		}
	}
	return runErr
}
