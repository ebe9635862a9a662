// ABOUTME: Retriever answers similarity queries against persisted story indexes
// ABOUTME: Missing or unreadable indexes give an empty result and a warning
package index

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/llm"
	"github.com/harper/storybrief/internal/models"
)

// DefaultK is the number of chunks returned per query
const DefaultK = 5

// Retriever embeds queries and searches a story's index
type Retriever struct {
	store    Store
	embedder llm.Embedder
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. A nil logger uses slog.Default.
func NewRetriever(store Store, embedder llm.Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, embedder: embedder, logger: logger}
}

// Search returns up to k chunks of storyID nearest to query.
// Only embedding failures are returned as errors.
func (r *Retriever) Search(ctx context.Context, storyID, query string, k int) ([]models.RetrievedChunk, error) {
	return r.SearchMany(ctx, storyID, []string{query}, k)
}

// SearchMany runs every query against the same loaded index and concatenates
// the results in query order.
func (r *Retriever) SearchMany(ctx context.Context, storyID string, queries []string, k int) ([]models.RetrievedChunk, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultK
	}

	idx := r.load(ctx, storyID)
	if idx == nil {
		return nil, nil
	}

	vectors, err := r.embedQueries(ctx, storyID, idx.Dim, queries)
	if err != nil {
		return nil, err
	}

	var out []models.RetrievedChunk
	for i, vec := range vectors {
		if len(vec) != idx.Dim {
			r.logger.Warn("query embedding width does not match index",
				"story_id", storyID, "query", queries[i], "dim", idx.Dim, "got", len(vec))
			continue
		}
		for _, h := range idx.Search(vec, k) {
			out = append(out, idx.Chunk(h))
		}
	}
	return out, nil
}

// SearchDocuments ranks whole documents by their aggregated embeddings.
// Each result carries the full document text.
func (r *Retriever) SearchDocuments(ctx context.Context, storyID, query string, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		k = DefaultK
	}

	idx := r.load(ctx, storyID)
	if idx == nil {
		return nil, nil
	}

	vectors, err := r.embedQueries(ctx, storyID, idx.Dim, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors[0]) != idx.Dim {
		r.logger.Warn("query embedding width does not match index", "story_id", storyID)
		return nil, nil
	}

	hits := idx.SearchDocuments(vectors[0], k)
	out := make([]models.RetrievedChunk, len(hits))
	for i, h := range hits {
		out[i] = models.RetrievedChunk{
			Content:  h.Document.Text,
			Metadata: models.ChunkMetadata{ID: storyID, DocID: h.Document.DocID},
			Score:    h.Score,
		}
	}
	return out, nil
}

// load returns nil after logging when the index is missing or unreadable
func (r *Retriever) load(ctx context.Context, storyID string) *VectorIndex {
	idx, err := r.store.Load(ctx, storyID)
	if err != nil {
		if errors.Is(err, models.ErrIndexNotFound) {
			r.logger.Warn("index not found", "story_id", storyID)
		} else {
			r.logger.Warn("failed to load index", "story_id", storyID, "error", err)
		}
		return nil
	}
	if err := idx.Validate(); err != nil {
		r.logger.Warn("index is corrupt", "story_id", storyID, "error", err)
		return nil
	}
	return idx
}

// embedQueries embeds the non-empty queries in one call; empty queries map to the zero vector
func (r *Retriever) embedQueries(ctx context.Context, storyID string, dim int, queries []string) ([][]float32, error) {
	out := make([][]float32, len(queries))
	var (
		texts []string
		slots []int
	)
	for i, q := range queries {
		if q == "" {
			out[i] = make([]float32, dim)
			continue
		}
		texts = append(texts, q)
		slots = append(slots, i)
	}
	if len(texts) == 0 {
		return out, nil
	}

	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query",
			goerr.T(models.TagEmbeddingFailure),
			goerr.V("story_id", storyID))
	}
	if len(vecs) != len(texts) {
		return nil, goerr.New("embedding service returned wrong number of vectors",
			goerr.T(models.TagEmbeddingFailure),
			goerr.V("story_id", storyID))
	}
	for j, slot := range slots {
		out[slot] = vecs[j]
	}
	return out, nil
}
