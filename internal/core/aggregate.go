// ABOUTME: Embedding aggregation from chunk vectors to one document vector
// ABOUTME: Element-wise mean; a single vector passes through unchanged
package core

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/models"
)

// Aggregate returns the element-wise mean of vectors. An empty input yields
// an empty vector. All vectors must share one dimensionality.
func Aggregate(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return []float32{}, nil
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, goerr.New("embedding dimension mismatch",
				goerr.T(models.TagInvalidInput),
				goerr.V("index", i),
				goerr.V("expected", dim),
				goerr.V("got", len(v)))
		}
	}

	out := make([]float32, dim)
	if len(vectors) == 1 {
		copy(out, vectors[0])
		return out, nil
	}

	acc := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			acc[i] += float64(x)
		}
	}
	n := float64(len(vectors))
	for i := range acc {
		out[i] = float32(acc[i] / n)
	}
	return out, nil
}
