// ABOUTME: Tests for the per-story SQLite IndexStore
// ABOUTME: Verifies save/load fidelity, overwrite, not-found and path safety
package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/storybrief/internal/index"
	"github.com/harper/storybrief/internal/models"
)

func sampleIndex(storyID string) *index.VectorIndex {
	return &index.VectorIndex{
		StoryID: storyID,
		BuildID: "build-1",
		Dim:     3,
		Metric:  index.MetricCosine,
		BuiltAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Entries: []index.Entry{
			{ChunkID: "d1#0", DocID: "d1", Position: 0, Text: "地震发生", TokenStart: 0, TokenEnd: 4, Vector: []float32{1, 0, 0}},
			{ChunkID: "d1#1", DocID: "d1", Position: 1, Text: "救援展开", TokenStart: 3, TokenEnd: 7, Vector: []float32{0, 1, 0}},
			{ChunkID: "d2#0", DocID: "d2", Position: 0, Text: "灾后重建", TokenStart: 0, TokenEnd: 4, Vector: []float32{0, 0, 1}},
		},
		Documents: []index.DocumentVector{
			{DocID: "d1", Text: "地震发生救援展开", Vector: []float32{0.5, 0.5, 0}, ChunkCount: 2},
			{DocID: "d2", Text: "灾后重建", Vector: []float32{0, 0, 1}, ChunkCount: 1},
		},
	}
}

func TestIndexStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	want := sampleIndex("s1")
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want.StoryID, got.StoryID)
	assert.Equal(t, want.BuildID, got.BuildID)
	assert.Equal(t, want.Dim, got.Dim)
	assert.Equal(t, want.Metric, got.Metric)
	assert.True(t, want.BuiltAt.Equal(got.BuiltAt))
	assert.Equal(t, want.Entries, got.Entries)
	assert.Equal(t, want.Documents, got.Documents)
	require.NoError(t, got.Validate())
}

func TestIndexStore_Layout(t *testing.T) {
	root := t.TempDir()
	store, err := NewIndexStore(root)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sampleIndex("s1")))

	_, err = os.Stat(filepath.Join(root, "id_s1", IndexFileName))
	require.NoError(t, err)

	// no temporary files are left behind
	entries, err := os.ReadDir(filepath.Join(root, "id_s1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIndexStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleIndex("s1")))

	second := sampleIndex("s1")
	second.BuildID = "build-2"
	second.Entries = second.Entries[:1]
	second.Documents = second.Documents[:1]
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "build-2", got.BuildID)
	assert.Len(t, got.Entries, 1)
	assert.Len(t, got.Documents, 1)
}

func TestIndexStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrIndexNotFound))
	assert.Equal(t, models.KindIndexNotFound, models.KindOf(err))

	exists, err := store.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndexStore_ExistsDeleteList(t *testing.T) {
	ctx := context.Background()
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleIndex("s1")))
	require.NoError(t, store.Save(ctx, sampleIndex("新闻/2")))

	exists, err := store.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "新闻/2"}, ids)

	require.NoError(t, store.Delete(ctx, "s1"))
	exists, err = store.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndexStore_RejectsEmptyStory(t *testing.T) {
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)
	err = store.Save(context.Background(), &index.VectorIndex{})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.TagInvalidInput))
}

func TestSafeID(t *testing.T) {
	assert.Equal(t, "story-1_a.b", SafeID("story-1_a.b"))

	unsafe := SafeID("../etc/passwd")
	assert.NotContains(t, unsafe, "/")
	assert.True(t, strings.HasPrefix(unsafe, ".._etc_passwd_"))

	// ids that sanitise to the same prefix stay distinct
	assert.NotEqual(t, SafeID("a/b"), SafeID("a?b"))
	assert.NotEqual(t, "", SafeID(""))
}

func TestNewIndexStore_RequiresRoot(t *testing.T) {
	_, err := NewIndexStore("")
	assert.Error(t, err)
}
