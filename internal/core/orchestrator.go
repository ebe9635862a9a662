// ABOUTME: Orchestrator turns query variants into chronologically ranked evidence documents
// ABOUTME: Retrieves per variant, dedupes by content, reranks, then time-sorts
package core

import (
	"context"
	"log/slog"
	"strings"

	"github.com/harper/storybrief/internal/models"
)

// DefaultRetrievalK is how many chunks each query variant retrieves
const DefaultRetrievalK = 5

// Searcher retrieves the nearest chunks of one story for several queries.
// Results for each query are concatenated in query order.
type Searcher interface {
	SearchMany(ctx context.Context, storyID string, queries []string, k int) ([]models.RetrievedChunk, error)
}

// Orchestrator assembles time-ordered evidence for a story
type Orchestrator struct {
	searcher Searcher
	reranker *Reranker
	sorter   *TimeSorter
	rerankK  int
	sortBy   models.SortBy
	logger   *slog.Logger
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithRerankK sets how many chunks survive reranking
func WithRerankK(k int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.rerankK = k
	}
}

// WithSortBy sets the date key used for ordering
func WithSortBy(sortBy models.SortBy) OrchestratorOption {
	return func(o *Orchestrator) {
		if sortBy.IsValid() {
			o.sortBy = sortBy
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates a new Orchestrator over searcher
func NewOrchestrator(searcher Searcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		searcher: searcher,
		reranker: NewReranker(),
		sorter:   NewTimeSorter(),
		rerankK:  DefaultRerankK,
		sortBy:   models.SortByEarliest,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Orchestrate retrieves evidence for every query variant and returns merged
// documents in chronological order. No matches yields an empty list.
func (o *Orchestrator) Orchestrate(ctx context.Context, storyID string, queries []string, k int) ([]models.MergedDocument, error) {
	chunks, err := o.Evidence(ctx, storyID, queries, k)
	if err != nil {
		return nil, err
	}
	return o.sorter.Annotate(chunks, o.sortBy), nil
}

// Evidence returns the deduplicated, reranked chunks before time sorting
func (o *Orchestrator) Evidence(ctx context.Context, storyID string, queries []string, k int) ([]models.RetrievedChunk, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultRetrievalK
	}

	all, err := o.searcher.SearchMany(ctx, storyID, queries, k)
	if err != nil {
		return nil, err
	}

	unique := Deduplicate(all)
	ranked := o.reranker.Rerank(unique, CombineQueries(queries), o.rerankK)

	o.logger.Debug("evidence assembled",
		"story_id", storyID,
		"queries", len(queries),
		"retrieved", len(all),
		"unique", len(unique),
		"kept", len(ranked))

	return ranked, nil
}

// Deduplicate drops chunks whose content exactly matches an earlier chunk
func Deduplicate(chunks []models.RetrievedChunk) []models.RetrievedChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]models.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.Content]; ok {
			continue
		}
		seen[c.Content] = struct{}{}
		out = append(out, c)
	}
	return out
}

// CombineQueries joins the query variants into one rerank query
func CombineQueries(queries []string) string {
	return strings.TrimSpace(strings.Join(queries, " "))
}
