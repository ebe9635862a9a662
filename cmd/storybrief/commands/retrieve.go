// ABOUTME: CLI command to retrieve time-ordered evidence from a story index
// ABOUTME: Prints merged documents as a table or JSON
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/storybrief/internal/core"
	"github.com/harper/storybrief/internal/dataset"
	"github.com/harper/storybrief/internal/pipeline"
)

var (
	retrieveK int
)

// NewRetrieveCmd creates the retrieve command
func NewRetrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve <story-id> <query> [query...]",
		Short: "Retrieve chronological evidence for queries",
		Long: `Retrieve evidence for one or more query variants from a story index.

Results from all queries are deduplicated, reranked against the combined
query, merged per source document and ordered by earliest date.

Examples:
  storybrief retrieve 42 "地震发生时间" "救援进展"
  storybrief retrieve --k 10 --format json 42 "伤亡人数"`,
		Args: cobra.MinimumNArgs(2),
		RunE: runRetrieve,
	}

	cmd.Flags().IntVar(&retrieveK, "k", core.DefaultRetrievalK, "Results per query before reranking")

	return cmd
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(retrieveK, "k"); err != nil {
		return err
	}
	storyID, queries := args[0], args[1:]

	rt, ctx, err := openRuntime(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	docs, err := rt.Orchestrator.Orchestrate(ctx, storyID, queries, retrieveK)
	if err != nil {
		return err
	}

	if wantJSON() {
		return pipeline.Encode(cmd.OutOrStdout(), map[string]interface{}{
			"story_id":        storyID,
			"documents":       docs,
			"time_statistics": core.Statistics(docs),
		}, pipeline.FormatJSON)
	}

	if len(docs) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No evidence found for story %s\n", storyID)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tEARLIEST\tLATEST\tDOC ID\tCHUNKS\tPREVIEW\n")
	fmt.Fprintf(w, "----\t--------\t------\t------\t------\t-------\n")
	for _, d := range docs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			d.TimeRank,
			formatDate(d.EarliestDate),
			formatDate(d.LatestDate),
			truncate(d.Metadata.DocID, 20),
			d.ChunkCount,
			truncate(dataset.Compact(d.Content), 60))
	}
	w.Flush()

	if !quiet {
		stats := core.Statistics(docs)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d document(s), %.0f%% dated\n",
			stats.TotalDocuments, stats.TimeCoverageRatio*100)
	}
	return nil
}
