// ABOUTME: Batch runner that builds missing indexes and generates reports per story
// ABOUTME: Stories run on a bounded worker pool; one story's failure never aborts the batch
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/harper/storybrief/internal/models"
)

// DefaultWorkers is the number of stories processed concurrently
const DefaultWorkers = 5

// IndexBuilder creates a story index when it is missing
type IndexBuilder interface {
	EnsureBuilt(ctx context.Context, storyID string, docs []models.Document, force bool) (bool, error)
}

// ReportGenerator produces the report for an indexed story
type ReportGenerator interface {
	Generate(ctx context.Context, storyID string) (*models.Report, error)
}

// Batch is the outcome of one run. Results and Reports follow the requested id order.
type Batch struct {
	models.BatchResult
	Reports []*models.Report `json:"-" yaml:"-"`
}

// BatchRunner processes many stories with a bounded worker pool
type BatchRunner struct {
	builder   IndexBuilder
	generator ReportGenerator
	workers   int
	logger    *slog.Logger
}

// NewBatchRunner creates a runner; workers <= 0 uses DefaultWorkers
func NewBatchRunner(builder IndexBuilder, generator ReportGenerator, workers int, logger *slog.Logger) *BatchRunner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{
		builder:   builder,
		generator: generator,
		workers:   workers,
		logger:    logger,
	}
}

// Run processes ids against stories. Failed or unknown ids get an empty summary
// and are listed in FailedIDs. The returned error is non-nil only when ctx ends.
func (r *BatchRunner) Run(ctx context.Context, ids []string, stories map[string]models.Story) (*Batch, error) {
	reports := make([]*models.Report, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(r.workers)

	for i, id := range ids {
		g.Go(func() error {
			rep, err := r.runOne(ctx, id, stories)
			if err != nil {
				errs[i] = err
				r.logger.Error("story failed",
					"story_id", id,
					"kind", models.KindOf(err),
					"error", err.Error())
				return nil
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()

	batch := &Batch{
		BatchResult: models.BatchResult{
			Results:   make([]models.StoryResult, len(ids)),
			FailedIDs: []string{},
		},
		Reports: reports,
	}
	for i, id := range ids {
		batch.Results[i] = models.StoryResult{ID: id}
		if errs[i] != nil {
			batch.FailedIDs = append(batch.FailedIDs, id)
			if batch.Errors == nil {
				batch.Errors = make(map[string]string)
			}
			batch.Errors[id] = errs[i].Error()
			continue
		}
		batch.Results[i].Summary = reports[i].Summary
	}

	r.logger.Info("batch finished",
		"stories", len(ids),
		"failed", len(batch.FailedIDs))

	if err := ctx.Err(); err != nil {
		return batch, goerr.Wrap(err, "batch interrupted")
	}
	return batch, nil
}

func (r *BatchRunner) runOne(ctx context.Context, id string, stories map[string]models.Story) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	story, ok := stories[id]
	if !ok {
		return nil, goerr.New("story not found in dataset",
			goerr.T(models.TagInvalidInput), goerr.V("story_id", id))
	}

	built, err := r.builder.EnsureBuilt(ctx, id, story.Documents, false)
	if err != nil {
		return nil, err
	}
	if built {
		r.logger.Info("index built", "story_id", id)
	}

	return r.generator.Generate(ctx, id)
}

// BuildSummary reports the outcome of BuildAll
type BuildSummary struct {
	Built   []string          `json:"built"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// BuildAll ensures an index exists for every story, force rebuilding when asked.
// Stories are processed on a bounded worker pool and listed in input order.
func BuildAll(ctx context.Context, builder IndexBuilder, stories []models.Story, force bool, workers int, logger *slog.Logger) (*BuildSummary, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}

	built := make([]bool, len(stories))
	errs := make([]error, len(stories))
	var done int
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range stories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			s := stories[i]
			b, err := builder.EnsureBuilt(ctx, s.ID, s.Documents, force)
			built[i], errs[i] = b, err

			mu.Lock()
			done++
			logger.Debug("index progress", "done", done, "total", len(stories), "story_id", s.ID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sum := &BuildSummary{Built: []string{}, Skipped: []string{}}
	for i, s := range stories {
		switch {
		case errs[i] != nil:
			if sum.Failed == nil {
				sum.Failed = make(map[string]string)
			}
			sum.Failed[s.ID] = errs[i].Error()
			logger.Error("index build failed", "story_id", s.ID, "error", errs[i].Error())
		case built[i]:
			sum.Built = append(sum.Built, s.ID)
		default:
			sum.Skipped = append(sum.Skipped, s.ID)
		}
	}

	if err := ctx.Err(); err != nil {
		return sum, goerr.Wrap(err, "index build interrupted")
	}
	return sum, nil
}
