// ABOUTME: TimeSorter merges retrieved chunks per document and orders them chronologically
// ABOUTME: Undated documents sort last and keep their first-appearance order
package core

import (
	"sort"
	"strings"
	"time"

	"github.com/harper/storybrief/internal/models"
)

// TimeSorter annotates retrieved evidence with dates and a chronological rank
type TimeSorter struct {
	extractor *DateExtractor
}

// NewTimeSorter creates a new TimeSorter
func NewTimeSorter() *TimeSorter {
	return &TimeSorter{extractor: NewDateExtractor()}
}

// Annotate groups chunks by doc_id, merges each group, sorts by the requested
// date key and assigns 1-based time ranks. Chunks without a doc_id are dropped.
func (ts *TimeSorter) Annotate(chunks []models.RetrievedChunk, sortBy models.SortBy) []models.MergedDocument {
	groups := GroupByDocument(chunks)
	docs := make([]models.MergedDocument, 0, len(groups))
	for _, g := range groups {
		docs = append(docs, ts.Merge(g))
	}
	SortDocuments(docs, sortBy)
	return docs
}

// GroupByDocument buckets chunks by doc_id in order of first appearance
func GroupByDocument(chunks []models.RetrievedChunk) [][]models.RetrievedChunk {
	index := make(map[string]int)
	var groups [][]models.RetrievedChunk
	for _, c := range chunks {
		docID := c.Metadata.DocID
		if docID == "" {
			continue
		}
		i, ok := index[docID]
		if !ok {
			i = len(groups)
			index[docID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// Merge combines the chunks of one document. Content is space-joined in
// retrieval order and metadata is taken from the first chunk.
func (ts *TimeSorter) Merge(group []models.RetrievedChunk) models.MergedDocument {
	if len(group) == 0 {
		return models.MergedDocument{}
	}

	parts := make([]string, len(group))
	var dates []time.Time
	for i, c := range group {
		parts[i] = c.Content
		dates = append(dates, ts.extractor.Extract(c.Content)...)
	}

	doc := models.MergedDocument{
		Content:    strings.Join(parts, " "),
		Metadata:   group[0].Metadata,
		Dates:      dates,
		ChunkCount: len(group),
	}
	if len(dates) > 0 {
		earliest, latest := dates[0], dates[0]
		for _, d := range dates[1:] {
			if d.Before(earliest) {
				earliest = d
			}
			if d.After(latest) {
				latest = d
			}
		}
		doc.EarliestDate = &earliest
		doc.LatestDate = &latest
	}
	doc.HasTimeInfo = doc.EarliestDate != nil
	return doc
}

// SortDocuments orders docs in place by the chosen date key and sets TimeRank
func SortDocuments(docs []models.MergedDocument, sortBy models.SortBy) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i].DateFor(sortBy), docs[j].DateFor(sortBy)
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	for i := range docs {
		docs[i].TimeRank = i + 1
		docs[i].HasTimeInfo = docs[i].EarliestDate != nil
	}
}

// Statistics reports how many documents carry date information
func Statistics(docs []models.MergedDocument) models.TimeStatistics {
	stats := models.TimeStatistics{TotalDocuments: len(docs)}
	for _, d := range docs {
		if d.HasTimeInfo {
			stats.DocumentsWithTime++
		}
	}
	stats.DocumentsWithoutTime = stats.TotalDocuments - stats.DocumentsWithTime
	if stats.TotalDocuments > 0 {
		stats.TimeCoverageRatio = float64(stats.DocumentsWithTime) / float64(stats.TotalDocuments)
	}
	return stats
}
