// ABOUTME: Tests for Orchestrator evidence assembly
// ABOUTME: Uses a scripted Searcher to check dedupe, rerank and time ordering
package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/storybrief/internal/models"
)

type fakeSearcher struct {
	results map[string][]models.RetrievedChunk
	err     error
	calls   [][]string
	gotK    int
}

func (f *fakeSearcher) SearchMany(_ context.Context, _ string, queries []string, k int) ([]models.RetrievedChunk, error) {
	f.calls = append(f.calls, queries)
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RetrievedChunk
	for _, q := range queries {
		out = append(out, f.results[q]...)
	}
	return out, nil
}

func TestOrchestrate_DedupesAndSorts(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.RetrievedChunk{
		"地震": {
			chunk("d2", "2023-06-01 余震 地震"),
			chunk("d1", "2023-01-01 地震"),
		},
		"救援": {
			chunk("d1", "2023-01-01 地震"),
			chunk("d3", "救援仍在继续"),
		},
	}}

	o := NewOrchestrator(searcher)
	docs, err := o.Orchestrate(context.Background(), "s1", []string{"地震", "救援"}, 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultRetrievalK, searcher.gotK)
	require.Len(t, docs, 3)
	assert.Equal(t, "d1", docs[0].Metadata.DocID)
	assert.Equal(t, "d2", docs[1].Metadata.DocID)
	assert.Equal(t, "d3", docs[2].Metadata.DocID)
	assert.False(t, docs[2].HasTimeInfo)
	for _, d := range docs {
		assert.Equal(t, 1, d.ChunkCount)
	}
}

func TestEvidence_NeverReturnsDuplicateContent(t *testing.T) {
	same := chunk("d1", "相同内容")
	searcher := &fakeSearcher{results: map[string][]models.RetrievedChunk{
		"a": {same, same},
		"b": {same, chunk("d2", "其他内容")},
	}}

	chunks, err := NewOrchestrator(searcher).Evidence(context.Background(), "s1", []string{"a", "b"}, 5)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, c := range chunks {
		assert.False(t, seen[c.Content], "duplicate content %q", c.Content)
		seen[c.Content] = true
	}
	assert.Len(t, chunks, 2)
}

func TestEvidence_RerankLimit(t *testing.T) {
	var results []models.RetrievedChunk
	for _, s := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"} {
		results = append(results, chunk(s, s))
	}
	searcher := &fakeSearcher{results: map[string][]models.RetrievedChunk{"a": results}}

	chunks, err := NewOrchestrator(searcher).Evidence(context.Background(), "s1", []string{"a"}, 7)
	require.NoError(t, err)
	assert.Len(t, chunks, DefaultRerankK)

	chunks, err = NewOrchestrator(searcher, WithRerankK(3)).Evidence(context.Background(), "s1", []string{"a"}, 7)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestOrchestrate_NoQueries(t *testing.T) {
	searcher := &fakeSearcher{}
	docs, err := NewOrchestrator(searcher).Orchestrate(context.Background(), "s1", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, searcher.calls)
}

func TestOrchestrate_NoMatches(t *testing.T) {
	docs, err := NewOrchestrator(&fakeSearcher{}).Orchestrate(context.Background(), "s1", []string{"x"}, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestOrchestrate_PropagatesSearchError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("embedding down")}
	_, err := NewOrchestrator(searcher).Orchestrate(context.Background(), "s1", []string{"x"}, 5)
	require.Error(t, err)
}

func TestOrchestrate_SortByLatest(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.RetrievedChunk{
		"q": {
			chunk("wide", "2020-01-01 至 2022-01-01"),
			chunk("narrow", "2021-01-01"),
		},
	}}

	docs, err := NewOrchestrator(searcher, WithSortBy(models.SortByLatest)).
		Orchestrate(context.Background(), "s1", []string{"q"}, 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "narrow", docs[0].Metadata.DocID)
}

func TestCombineQueries(t *testing.T) {
	assert.Equal(t, "地震 救援", CombineQueries([]string{"地震", "救援"}))
	assert.Equal(t, "", CombineQueries(nil))
	assert.Equal(t, "a", CombineQueries([]string{"", "a"}))
}
