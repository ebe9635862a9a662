// ABOUTME: Tests for the Postgres IndexStore that need no database
// ABOUTME: Checks batch construction and config validation
package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/storybrief/internal/index"
	"github.com/harper/storybrief/internal/models"
)

func TestInsertBatch_QueuesEveryRow(t *testing.T) {
	idx := &index.VectorIndex{
		StoryID: "s1",
		BuildID: "b1",
		Dim:     2,
		BuiltAt: time.Now(),
		Entries: []index.Entry{
			{ChunkID: "d1#0", DocID: "d1", Text: "a", Vector: []float32{1, 0}},
			{ChunkID: "d1#1", DocID: "d1", Position: 1, Text: "b", Vector: []float32{0, 1}},
		},
		Documents: []index.DocumentVector{
			{DocID: "d1", Text: "ab", ChunkCount: 2, Vector: []float32{0.5, 0.5}},
		},
	}

	b := insertBatch(idx)
	assert.Equal(t, 4, b.Len())

	header := b.QueuedQueries[0]
	assert.Contains(t, header.SQL, "story_indexes")
	require.Len(t, header.Arguments, 5)
	assert.Equal(t, "s1", header.Arguments[0])
	assert.Equal(t, string(index.MetricCosine), header.Arguments[3], "empty metric defaults to cosine")

	assert.Contains(t, b.QueuedQueries[1].SQL, "story_chunks")
	assert.Equal(t, 1, b.QueuedQueries[2].Arguments[1], "chunks keep insertion order in seq")
	assert.Contains(t, b.QueuedQueries[3].SQL, "story_documents")
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.TagInvalidInput))
}

func TestSave_RejectsEmptyStory(t *testing.T) {
	s := &IndexStore{}
	err := s.Save(context.Background(), &index.VectorIndex{})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.TagInvalidInput))
}
