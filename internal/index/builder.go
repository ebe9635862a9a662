// ABOUTME: Builder chunks and embeds a story's documents into a persisted VectorIndex
// ABOUTME: Embedding runs in sequential fixed-size batches; one writer per story at a time
package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/core"
	"github.com/harper/storybrief/internal/llm"
	"github.com/harper/storybrief/internal/models"
)

// DefaultBatchSize is how many chunks go into one embedding request
const DefaultBatchSize = 16

// Builder creates and persists story indexes
type Builder struct {
	store     Store
	embedder  llm.Embedder
	chunker   *core.ChunkEngine
	batchSize int
	metric    Metric
	locks     *KeyedMutex
	logger    *slog.Logger
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithBatchSize sets the embedding batch size
func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithMetric sets the similarity metric recorded in built indexes
func WithMetric(m Metric) BuilderOption {
	return func(b *Builder) {
		if m == MetricCosine || m == MetricL2 {
			b.metric = m
		}
	}
}

// WithBuilderLogger sets the logger
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder writing to store
func NewBuilder(store Store, embedder llm.Embedder, chunker *core.ChunkEngine, opts ...BuilderOption) *Builder {
	b := &Builder{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		batchSize: DefaultBatchSize,
		metric:    MetricCosine,
		locks:     NewKeyedMutex(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build indexes documents for storyID, replacing any previous index. Returns
// nil without error when no document has both a doc_id and text.
func (b *Builder) Build(ctx context.Context, storyID string, docs []models.Document) (*VectorIndex, error) {
	unlock := b.locks.Lock(storyID)
	defer unlock()
	return b.build(ctx, storyID, docs)
}

// EnsureBuilt builds the index unless one already exists and force is false.
// The check and the build happen under the story's lock.
func (b *Builder) EnsureBuilt(ctx context.Context, storyID string, docs []models.Document, force bool) (bool, error) {
	unlock := b.locks.Lock(storyID)
	defer unlock()

	if !force {
		exists, err := b.store.Exists(ctx, storyID)
		if err != nil {
			return false, goerr.Wrap(err, "failed to check index", goerr.V("story_id", storyID))
		}
		if exists {
			b.logger.Debug("index exists, skipping build", "story_id", storyID)
			return false, nil
		}
	}

	idx, err := b.build(ctx, storyID, docs)
	if err != nil {
		return false, err
	}
	return idx != nil, nil
}

func (b *Builder) build(ctx context.Context, storyID string, docs []models.Document) (*VectorIndex, error) {
	if storyID == "" {
		return nil, goerr.New("story id is required", goerr.T(models.TagInvalidInput))
	}

	valid := models.UniqueDocuments(docs)
	if len(valid) == 0 {
		b.logger.Warn("no valid documents, index not built", "story_id", storyID, "documents", len(docs))
		return nil, nil
	}

	var chunks []models.Chunk
	for _, doc := range valid {
		chunks = append(chunks, b.chunker.ChunkDocument(doc)...)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := b.embedAll(ctx, storyID, texts)
	if err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, goerr.New("embedding service returned empty vectors",
			goerr.T(models.TagEmbeddingFailure), goerr.V("story_id", storyID))
	}
	idx := &VectorIndex{
		StoryID: storyID,
		BuildID: uuid.NewString(),
		Dim:     dim,
		Metric:  b.metric,
		BuiltAt: time.Now().UTC(),
		Entries: make([]Entry, len(chunks)),
	}

	perDoc := make(map[string][][]float32, len(valid))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return nil, goerr.New("embedding width is not uniform",
				goerr.T(models.TagEmbeddingFailure),
				goerr.V("story_id", storyID),
				goerr.V("chunk_id", c.ChunkID),
				goerr.V("dim", dim),
				goerr.V("got", len(vectors[i])))
		}
		idx.Entries[i] = Entry{
			ChunkID:    c.ChunkID,
			DocID:      c.SourceDocID,
			Position:   c.Position,
			Text:       c.Text,
			TokenStart: c.Span.Start,
			TokenEnd:   c.Span.End,
			Vector:     vectors[i],
		}
		perDoc[c.SourceDocID] = append(perDoc[c.SourceDocID], vectors[i])
	}

	for _, doc := range valid {
		vec, err := core.Aggregate(perDoc[doc.DocID])
		if err != nil {
			return nil, goerr.Wrap(err, "failed to aggregate document vector", goerr.V("doc_id", doc.DocID))
		}
		idx.Documents = append(idx.Documents, DocumentVector{
			DocID:      doc.DocID,
			Text:       doc.Text,
			Vector:     vec,
			ChunkCount: len(perDoc[doc.DocID]),
		})
	}

	if err := b.store.Save(ctx, idx); err != nil {
		return nil, goerr.Wrap(err, "failed to save index", goerr.V("story_id", storyID))
	}

	b.logger.Info("index built",
		"story_id", storyID,
		"build_id", idx.BuildID,
		"documents", len(idx.Documents),
		"chunks", len(idx.Entries),
		"dim", dim)

	return idx, nil
}

// embedAll embeds texts in sequential batches, preserving order
func (b *Builder) embedAll(ctx context.Context, storyID string, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := b.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed chunks",
				goerr.T(models.TagEmbeddingFailure),
				goerr.V("story_id", storyID),
				goerr.V("batch_start", start))
		}
		if len(vecs) != end-start {
			return nil, goerr.New("embedding service returned wrong number of vectors",
				goerr.T(models.TagEmbeddingFailure),
				goerr.V("story_id", storyID),
				goerr.V("want", end-start),
				goerr.V("got", len(vecs)))
		}
		out = append(out, vecs...)

		b.logger.Debug("embedded batch", "story_id", storyID, "start", start, "size", end-start)
	}
	return out, nil
}
