// ABOUTME: In-memory vector index for one story with brute-force nearest neighbour search
// ABOUTME: Ties are broken by insertion order so results are deterministic
package index

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/models"
)

// Metric selects how vectors are compared
type Metric string

const (
	// MetricCosine ranks by cosine similarity, highest first
	MetricCosine Metric = "cosine"
	// MetricL2 ranks by euclidean distance, lowest first
	MetricL2 Metric = "l2"
)

// Entry is one embedded chunk inside an index
type Entry struct {
	ChunkID    string    `json:"chunk_id"`
	DocID      string    `json:"doc_id"`
	Position   int       `json:"position"`
	Text       string    `json:"text"`
	TokenStart int       `json:"token_start"`
	TokenEnd   int       `json:"token_end"`
	Vector     []float32 `json:"-"`
}

// DocumentVector is the aggregated embedding of a whole document
type DocumentVector struct {
	DocID      string    `json:"doc_id"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"-"`
	ChunkCount int       `json:"chunk_count"`
}

// VectorIndex holds every chunk embedding for a single story
type VectorIndex struct {
	StoryID   string           `json:"story_id"`
	BuildID   string           `json:"build_id"`
	Dim       int              `json:"dim"`
	Metric    Metric           `json:"metric"`
	BuiltAt   time.Time        `json:"built_at"`
	Entries   []Entry          `json:"entries"`
	Documents []DocumentVector `json:"documents"`
}

// Validate checks that every stored vector has the index width
func (vi *VectorIndex) Validate() error {
	if vi.StoryID == "" {
		return goerr.New("index has no story id", goerr.T(models.TagInvalidInput))
	}
	for _, e := range vi.Entries {
		if len(e.Vector) != vi.Dim {
			return goerr.New("entry vector width mismatch",
				goerr.T(models.TagInvalidInput),
				goerr.V("story_id", vi.StoryID),
				goerr.V("chunk_id", e.ChunkID),
				goerr.V("dim", vi.Dim),
				goerr.V("got", len(e.Vector)))
		}
	}
	for _, d := range vi.Documents {
		if len(d.Vector) != vi.Dim {
			return goerr.New("document vector width mismatch",
				goerr.T(models.TagInvalidInput),
				goerr.V("story_id", vi.StoryID),
				goerr.V("doc_id", d.DocID))
		}
	}
	return nil
}

// Hit is one search result with its score
type Hit struct {
	Entry Entry
	Score float64
}

// Search returns up to k entries nearest to query. A zero query vector, or
// one whose width does not match the index, yields entries in insertion order.
func (vi *VectorIndex) Search(query []float32, k int) []Hit {
	order, scores := vi.rank(query, len(vi.Entries), func(i int) []float32 { return vi.Entries[i].Vector }, k)
	hits := make([]Hit, len(order))
	for i, j := range order {
		hits[i] = Hit{Entry: vi.Entries[j], Score: scores[i]}
	}
	return hits
}

// DocumentHit is one document-level search result
type DocumentHit struct {
	Document DocumentVector
	Score    float64
}

// SearchDocuments ranks whole documents by their aggregated vectors
func (vi *VectorIndex) SearchDocuments(query []float32, k int) []DocumentHit {
	order, scores := vi.rank(query, len(vi.Documents), func(i int) []float32 { return vi.Documents[i].Vector }, k)
	hits := make([]DocumentHit, len(order))
	for i, j := range order {
		hits[i] = DocumentHit{Document: vi.Documents[j], Score: scores[i]}
	}
	return hits
}

// rank returns the positions of the k best items and their scores
func (vi *VectorIndex) rank(query []float32, n int, vector func(int) []float32, k int) ([]int, []float64) {
	order := make([]int, n)
	scores := make([]float64, n)
	for i := range order {
		order[i] = i
	}

	if len(query) == vi.Dim && !isZero(query) {
		for i := range scores {
			scores[i] = vi.score(query, vector(i))
		}
		sort.SliceStable(order, func(a, b int) bool {
			sa, sb := scores[order[a]], scores[order[b]]
			if vi.Metric == MetricL2 {
				return sa < sb
			}
			return sa > sb
		})
		sorted := make([]float64, n)
		for i, j := range order {
			sorted[i] = scores[j]
		}
		scores = sorted
	}

	if k > 0 && n > k {
		order, scores = order[:k], scores[:k]
	}
	return order, scores
}

func (vi *VectorIndex) score(a, b []float32) float64 {
	if vi.Metric == MetricL2 {
		return l2Distance(a, b)
	}
	return cosineSimilarity(a, b)
}

// Chunk converts an entry into the retrieval result shape
func (vi *VectorIndex) Chunk(h Hit) models.RetrievedChunk {
	return models.RetrievedChunk{
		Content: h.Entry.Text,
		Metadata: models.ChunkMetadata{
			ID:       vi.StoryID,
			DocID:    h.Entry.DocID,
			ChunkID:  h.Entry.ChunkID,
			Position: h.Entry.Position,
		},
		Score: h.Score,
	}
}

// Store persists one index per story
type Store interface {
	Save(ctx context.Context, idx *VectorIndex) error
	// Load returns models.ErrIndexNotFound when the story has no index
	Load(ctx context.Context, storyID string) (*VectorIndex, error)
	Exists(ctx context.Context, storyID string) (bool, error)
	Delete(ctx context.Context, storyID string) error
}

// cosineSimilarity returns 0 when either vector is zero or widths differ
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func l2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
