// ABOUTME: Report generator running the topic, query, summary, influence and merge stages
// ABOUTME: Stages run sequentially per story; any stage failure aborts that story's report
package report

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/core"
	"github.com/harper/storybrief/internal/llm"
	"github.com/harper/storybrief/internal/models"
)

// Generator produces a Report for one story
type Generator struct {
	topics      *TopicExtractor
	planner     *QueryPlanner
	summarizer  *EventSummarizer
	influence   *InfluenceAnalyzer
	merger      *AnswerMerger
	summaryOnly bool
	logger      *slog.Logger
}

type settings struct {
	retrievalK  int
	attempts    int
	summaryOnly bool
	logger      *slog.Logger
}

// Option configures a Generator
type Option func(*settings)

// WithRetrievalK sets the per-query retrieval depth
func WithRetrievalK(k int) Option {
	return func(s *settings) {
		if k > 0 {
			s.retrievalK = k
		}
	}
}

// WithParseAttempts sets how many times a stage asks when the reply is unusable
func WithParseAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithSummaryOnly skips the influence and merge stages
func WithSummaryOnly(on bool) Option {
	return func(s *settings) {
		s.summaryOnly = on
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewGenerator wires the stages over one completer, searcher and orchestrator
func NewGenerator(completer llm.Completer, searcher core.Searcher, orchestrator *core.Orchestrator, opts ...Option) *Generator {
	s := settings{
		retrievalK: core.DefaultRetrievalK,
		attempts:   DefaultParseAttempts,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Generator{
		topics:      &TopicExtractor{completer: completer, searcher: searcher, k: s.retrievalK, attempts: s.attempts},
		planner:     &QueryPlanner{completer: completer, attempts: s.attempts},
		summarizer:  &EventSummarizer{completer: completer, orchestrator: orchestrator, k: s.retrievalK, attempts: s.attempts},
		influence:   &InfluenceAnalyzer{completer: completer, orchestrator: orchestrator, k: s.retrievalK, attempts: s.attempts},
		merger:      &AnswerMerger{completer: completer, attempts: s.attempts},
		summaryOnly: s.summaryOnly,
		logger:      s.logger,
	}
}

// Generate runs every stage for storyID
func (g *Generator) Generate(ctx context.Context, storyID string) (*models.Report, error) {
	if storyID == "" {
		return nil, goerr.New("story id is required", goerr.T(models.TagInvalidInput))
	}
	logger := g.logger.With("story_id", storyID)

	topic, err := g.topics.Extract(ctx, storyID)
	if err != nil {
		return nil, goerr.Wrap(err, "topic extraction failed", goerr.V("story_id", storyID))
	}
	logger.Debug("topic extracted", "topic", topic)

	queries, err := g.planner.Plan(ctx, topic)
	if err != nil {
		return nil, goerr.Wrap(err, "query planning failed", goerr.V("story_id", storyID))
	}
	logger.Debug("queries planned", "queries", queries)

	summary, evidence, err := g.summarizer.Summarize(ctx, storyID, topic, queries)
	if err != nil {
		return nil, goerr.Wrap(err, "summary generation failed", goerr.V("story_id", storyID))
	}

	rep := &models.Report{
		ID:             storyID,
		Topic:          topic,
		QueryWords:     queries,
		Summary:        summary,
		Evidence:       evidence,
		TimeStatistics: core.Statistics(evidence),
	}

	if g.summaryOnly {
		logger.Info("report generated", "evidence", len(evidence), "summary_only", true)
		return rep, nil
	}

	influence, influenceQueries, err := g.influence.Analyze(ctx, storyID, topic, summary)
	if err != nil {
		return nil, goerr.Wrap(err, "influence analysis failed", goerr.V("story_id", storyID))
	}
	rep.Influence = influence
	rep.InfluenceQuery = influenceQueries

	merged, err := g.merger.Merge(ctx, topic, summary, influence)
	if err != nil {
		return nil, goerr.Wrap(err, "answer merge failed", goerr.V("story_id", storyID))
	}
	rep.MergedContent = merged

	logger.Info("report generated", "evidence", len(evidence))
	return rep, nil
}
