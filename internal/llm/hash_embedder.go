// ABOUTME: Deterministic offline embedder using hashed character n-grams
// ABOUTME: Used for tests and for running the pipeline without an embedding service
package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultHashDim is the vector width used when none is configured
const DefaultHashDim = 256

// HashEmbedder maps rune unigrams and bigrams into a fixed number of signed
// buckets and L2-normalises the result. Texts that share characters get a
// positive cosine similarity. The empty text maps to the zero vector.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder producing dim-wide vectors
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector width
func (h *HashEmbedder) Dimension() int {
	return h.dim
}

// EmbedBatch embeds each text independently
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	runes := []rune(strings.ToLower(text))
	for i := range runes {
		h.add(vec, string(runes[i]), 1)
		if i+1 < len(runes) {
			h.add(vec, string(runes[i:i+2]), 2)
		}
	}
	return normalize(vec)
}

func (h *HashEmbedder) add(vec []float32, gram string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(gram))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
