// ABOUTME: Chunk represents a token-bounded slice of a document
// ABOUTME: Chunks are derived deterministically by the chunker and never mutated
package models

// TokenSpan is a half-open [Start, End) range over a document's token sequence
type TokenSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens covered by the span
func (s TokenSpan) Len() int {
	return s.End - s.Start
}

// Chunk is a piece of document text sized for embedding
type Chunk struct {
	ChunkID     string    `json:"chunk_id"`
	Text        string    `json:"text"`
	SourceDocID string    `json:"source_doc_id"`
	Position    int       `json:"position"`
	Span        TokenSpan `json:"token_span"`
}
