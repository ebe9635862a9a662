// ABOUTME: Tests for story, retrieval, and error taxonomy models
// ABOUTME: Covers document deduplication, sort keys, and kind classification
package models

import (
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stretchr/testify/assert"
)

func TestUniqueDocuments(t *testing.T) {
	docs := []Document{
		{DocID: "a", Text: "first"},
		{DocID: "", Text: "no id"},
		{DocID: "b", Text: ""},
		{DocID: "a", Text: "duplicate"},
		{DocID: "c", Text: "third"},
	}

	got := UniqueDocuments(docs)

	assert.Equal(t, []Document{
		{DocID: "a", Text: "first"},
		{DocID: "c", Text: "third"},
	}, got)
}

func TestSortBy_IsValid(t *testing.T) {
	assert.True(t, SortByEarliest.IsValid())
	assert.True(t, SortByLatest.IsValid())
	assert.False(t, SortBy("middle").IsValid())
}

func TestMergedDocument_DateFor(t *testing.T) {
	early := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := MergedDocument{EarliestDate: &early, LatestDate: &late}

	assert.Equal(t, &early, doc.DateFor(SortByEarliest))
	assert.Equal(t, &late, doc.DateFor(SortByLatest))
	assert.Nil(t, MergedDocument{}.DateFor(SortByEarliest))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", goerr.New("boom"), ""},
		{"invalid input", goerr.New("bad", goerr.T(TagInvalidInput)), KindInvalidInput},
		{"wrapped embedding", goerr.Wrap(goerr.New("rpc", goerr.T(TagEmbeddingFailure)), "build"), KindEmbeddingFailure},
		{"index sentinel", goerr.Wrap(ErrIndexNotFound, "load", goerr.V("story_id", "s1")), KindIndexNotFound},
		{"generation", goerr.New("llm", goerr.T(TagGenerationFailure)), KindGenerationFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	err := goerr.Wrap(ErrIndexNotFound, "load")
	assert.True(t, IsKind(err, TagIndexNotFound))
	assert.False(t, IsKind(err, TagGenerationFailure))
}

func TestIsKind_TagsAcrossWraps(t *testing.T) {
	base := goerr.New("rpc timeout", goerr.T(TagEmbeddingFailure))
	err := goerr.Wrap(base, "build index", goerr.V("story_id", "s1"))

	assert.True(t, IsKind(err, TagEmbeddingFailure))
	assert.False(t, IsKind(err, TagInvalidInput))
	assert.False(t, IsKind(nil, TagEmbeddingFailure))
	assert.False(t, IsKind(goerr.New("plain"), TagDateParse))
}

func TestIsKind_TaggedIndexNotFound(t *testing.T) {
	err := goerr.New("no index for story", goerr.T(TagIndexNotFound))
	assert.True(t, IsKind(err, TagIndexNotFound))
	assert.Equal(t, KindIndexNotFound, KindOf(err))
}
