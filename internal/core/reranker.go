// ABOUTME: Reranker orders retrieved chunks by sequence similarity to the query
// ABOUTME: A fast lexical proxy applied after semantic retrieval
package core

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/harper/storybrief/internal/models"
)

// DefaultRerankK is how many chunks survive reranking
const DefaultRerankK = 5

// Reranker scores chunks against a query with a difflib match ratio
type Reranker struct{}

// NewReranker creates a new Reranker
func NewReranker() *Reranker {
	return &Reranker{}
}

// Rerank returns the top k chunks by similarity to query, highest first.
// Ties keep their input order. k <= 0 means no limit. The input slice is not modified.
func (r *Reranker) Rerank(chunks []models.RetrievedChunk, query string, k int) []models.RetrievedChunk {
	if len(chunks) == 0 || query == "" {
		return truncate(append([]models.RetrievedChunk(nil), chunks...), k)
	}

	type scored struct {
		chunk models.RetrievedChunk
		score float64
	}
	items := make([]scored, len(chunks))
	for i, c := range chunks {
		items[i] = scored{chunk: c, score: SimilarityRatio(query, c.Content)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	out := make([]models.RetrievedChunk, len(items))
	for i, it := range items {
		out[i] = it.chunk
	}
	return truncate(out, k)
}

// SimilarityRatio is the case-insensitive character-level match ratio of a and b, in [0, 1]
func SimilarityRatio(a, b string) float64 {
	m := difflib.NewMatcher(runeStrings(strings.ToLower(a)), runeStrings(strings.ToLower(b)))
	return m.Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func truncate(chunks []models.RetrievedChunk, k int) []models.RetrievedChunk {
	if k > 0 && len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}
