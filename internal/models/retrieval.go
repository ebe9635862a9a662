// ABOUTME: Retrieval result models: retrieved chunks and time-merged documents
// ABOUTME: Built fresh for each query response and discarded afterwards
package models

import "time"

// SortBy selects the date key used for chronological ordering
type SortBy string

const (
	SortByEarliest SortBy = "earliest"
	SortByLatest   SortBy = "latest"
)

// IsValid returns true if the sort key is recognised
func (s SortBy) IsValid() bool {
	return s == SortByEarliest || s == SortByLatest
}

// ChunkMetadata is the index metadata attached to every stored chunk
type ChunkMetadata struct {
	ID       string `json:"id"`
	DocID    string `json:"doc_id"`
	ChunkID  string `json:"chunk_id,omitempty"`
	Position int    `json:"position"`
}

// RetrievedChunk is a chunk's content plus metadata as returned by a query
type RetrievedChunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score,omitempty"`
}

// MergedDocument reassembles the retrieved chunks of one source document
type MergedDocument struct {
	Content      string        `json:"content"`
	Metadata     ChunkMetadata `json:"metadata"`
	Dates        []time.Time   `json:"dates"`
	EarliestDate *time.Time    `json:"earliest_date"`
	LatestDate   *time.Time    `json:"latest_date"`
	ChunkCount   int           `json:"chunk_count"`
	TimeRank     int           `json:"time_rank"`
	HasTimeInfo  bool          `json:"has_time_info"`
}

// DateFor returns the sort key for the requested ordering, nil when undated
func (d MergedDocument) DateFor(sortBy SortBy) *time.Time {
	if sortBy == SortByLatest {
		return d.LatestDate
	}
	return d.EarliestDate
}

// TimeStatistics summarises how much of the evidence carries dates
type TimeStatistics struct {
	TotalDocuments       int     `json:"total_documents" yaml:"total_documents"`
	DocumentsWithTime    int     `json:"documents_with_time" yaml:"documents_with_time"`
	DocumentsWithoutTime int     `json:"documents_without_time" yaml:"documents_without_time"`
	TimeCoverageRatio    float64 `json:"time_coverage_ratio" yaml:"time_coverage_ratio"`
}
