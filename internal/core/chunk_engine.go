// ABOUTME: ChunkEngine splits document text into overlapping token windows for embedding
// ABOUTME: Windows advance by chunkSize-overlap tokens and the last window may be short
package core

import (
	"fmt"
	"strings"

	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/tokenizer"
)

const (
	// DefaultChunkSize is the window length in tokens
	DefaultChunkSize = 1024
	// DefaultChunkOverlap is the number of tokens repeated between adjacent windows
	DefaultChunkOverlap = 128
)

// ChunkEngine handles token-bounded text chunking
type ChunkEngine struct {
	tok       tokenizer.Tokenizer
	chunkSize int
	overlap   int
}

// ChunkOption configures a ChunkEngine
type ChunkOption func(*ChunkEngine)

// WithChunkSize sets the window length in tokens
func WithChunkSize(size int) ChunkOption {
	return func(ce *ChunkEngine) {
		if size > 0 {
			ce.chunkSize = size
		}
	}
}

// WithOverlap sets how many tokens adjacent windows share
func WithOverlap(overlap int) ChunkOption {
	return func(ce *ChunkEngine) {
		if overlap >= 0 {
			ce.overlap = overlap
		}
	}
}

// NewChunkEngine creates a new ChunkEngine instance
func NewChunkEngine(tok tokenizer.Tokenizer, opts ...ChunkOption) *ChunkEngine {
	ce := &ChunkEngine{
		tok:       tok,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(ce)
	}
	return ce
}

// ChunkSize returns the configured window length
func (ce *ChunkEngine) ChunkSize() int {
	return ce.chunkSize
}

// Overlap returns the configured overlap
func (ce *ChunkEngine) Overlap() int {
	return ce.overlap
}

// ChunkText returns the ordered chunk texts for text
func (ce *ChunkEngine) ChunkText(text string) []string {
	chunks := ce.chunk(text, "")
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// ChunkDocument splits a document into chunks tagged with its doc_id.
// Chunk ids are derived from the doc_id and position so rebuilds are stable.
func (ce *ChunkEngine) ChunkDocument(doc models.Document) []models.Chunk {
	return ce.chunk(doc.Text, doc.DocID)
}

func (ce *ChunkEngine) chunk(text, docID string) []models.Chunk {
	tokens := ce.tok.Encode(text)
	spans := Windows(len(tokens), ce.chunkSize, ce.overlap)

	chunks := make([]models.Chunk, 0, len(spans))
	for i, span := range spans {
		content := text
		// A text that fits in one window is kept verbatim rather than re-decoded
		if len(spans) > 1 {
			// BPE window edges can split a multi-byte character
			content = strings.ToValidUTF8(ce.tok.Decode(tokens[span.Start:span.End]), "\uFFFD")
		}
		chunks = append(chunks, models.Chunk{
			ChunkID:     chunkID(docID, i),
			Text:        content,
			SourceDocID: docID,
			Position:    i,
			Span:        span,
		})
	}
	return chunks
}

// Windows computes the token spans for a sequence of n tokens.
// A stride below one is clamped to one so the loop always advances.
func Windows(n, size, overlap int) []models.TokenSpan {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if n <= size {
		return []models.TokenSpan{{Start: 0, End: n}}
	}

	step := size - overlap
	if step < 1 {
		step = 1
	}

	spans := make([]models.TokenSpan, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, models.TokenSpan{Start: start, End: end})
		if end >= n {
			break
		}
	}
	return spans
}

func chunkID(docID string, position int) string {
	if docID == "" {
		return fmt.Sprintf("chunk_%d", position)
	}
	return fmt.Sprintf("%s#%d", docID, position)
}
