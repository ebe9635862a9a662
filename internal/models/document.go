// ABOUTME: Document and Story models for the per-story corpus
// ABOUTME: Validation happens once at ingestion; consumers trust the fields
package models

import "strings"

// Document is a single news article belonging to exactly one story
type Document struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// Valid reports whether the document can be indexed
func (d Document) Valid() bool {
	return strings.TrimSpace(d.DocID) != "" && d.Text != ""
}

// Story owns a deduplicated set of documents and one vector index
type Story struct {
	ID        string     `json:"id"`
	Documents []Document `json:"documents"`
	// Reference is the human-written summary, present only in evaluation datasets
	Reference string `json:"summarization,omitempty"`
}

// UniqueDocuments drops invalid documents and keeps the first occurrence of each doc_id
func UniqueDocuments(docs []Document) []Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if !d.Valid() {
			continue
		}
		if _, ok := seen[d.DocID]; ok {
			continue
		}
		seen[d.DocID] = struct{}{}
		out = append(out, d)
	}
	return out
}
