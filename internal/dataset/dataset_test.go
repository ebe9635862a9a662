// ABOUTME: Tests for dataset loading, grouping and sampling
// ABOUTME: Covers the three file layouts and both record shapes
package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harper/storybrief/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Array(t *testing.T) {
	path := writeFile(t, `[{"id": 1, "doc_id": "a", "text": "x"}, {"id": 2, "doc_id": "b", "text": "y"}, 7]`)
	records, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoad_SingleObject(t *testing.T) {
	path := writeFile(t, `{"id": "s1", "documents": [{"doc_id": "a", "text": "x"}]}`)
	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "s1", records[0]["id"])
}

func TestLoad_JSONLinesSkipsBadLines(t *testing.T) {
	path := writeFile(t, `{"id": 1, "doc_id": "a", "text": "x"}
not json at all

{"id": 1, "doc_id": "b", "text": "y"}
[1, 2]
`)
	records, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.TagInvalidInput))
}

func TestParse_Empty(t *testing.T) {
	assert.Nil(t, Parse([]byte("   \n")))
}

func TestGroup_Nested(t *testing.T) {
	records := Parse([]byte(`[
		{"id": 10, "summarization": "ref", "documents": [
			{"doc_id": "a", "text": "first"},
			{"id": 5, "text": "second"},
			{"doc_id": "c", "text": ""},
			{"text": "no id"}
		]}
	]`))

	stories := Group(records)
	require.Len(t, stories, 1)
	s := stories[0]
	assert.Equal(t, "10", s.ID)
	assert.Equal(t, "ref", s.Reference)
	assert.Equal(t, []models.Document{
		{DocID: "a", Text: "first"},
		{DocID: "5", Text: "second"},
	}, s.Documents)
}

func TestGroup_FlatPreservesOrder(t *testing.T) {
	records := Parse([]byte(`[
		{"id": "b", "docId": "1", "content": "one"},
		{"id": "a", "doc_id": "2", "text": "two"},
		{"id": "b", "doc_id": "3", "text": "three"},
		{"id": "c", "doc_id": "4"},
		{"doc_id": "5", "text": "orphan"}
	]`))

	stories := Group(records)
	assert.Equal(t, []string{"b", "a"}, IDs(stories))
	assert.Len(t, stories[0].Documents, 2)
	assert.Equal(t, "one", stories[0].Documents[0].Text)
	assert.Equal(t, "three", stories[0].Documents[1].Text)
}

func TestGroup_NestedReplacesEarlier(t *testing.T) {
	records := Parse([]byte(`[
		{"id": "s", "doc_id": "old", "text": "old"},
		{"id": "s", "documents": [{"doc_id": "new", "text": "new"}]}
	]`))

	stories := Group(records)
	require.Len(t, stories, 1)
	assert.Equal(t, []models.Document{{DocID: "new", Text: "new"}}, stories[0].Documents)
}

func TestGroup_LargeNumericID(t *testing.T) {
	records := Parse([]byte(`[{"id": 12345678901234, "doc_id": 7, "text": "x"}]`))
	stories := Group(records)
	require.Len(t, stories, 1)
	assert.Equal(t, "12345678901234", stories[0].ID)
	assert.Equal(t, "7", stories[0].Documents[0].DocID)
}

func TestLoadStoriesAndByID(t *testing.T) {
	path := writeFile(t, `{"id": "s1", "doc_id": "a", "text": "x"}
{"id": "s2", "doc_id": "b", "text": "y"}`)
	stories, err := LoadStories(path)
	require.NoError(t, err)

	byID := ByID(stories)
	assert.Len(t, byID, 2)
	assert.Equal(t, "y", byID["s2"].Documents[0].Text)
}

func TestSample(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}

	all := Sample(ids, 0, 42)
	assert.Equal(t, ids, all)
	assert.Equal(t, ids, Sample(ids, 100, 42))

	a := Sample(ids, 3, 42)
	b := Sample(ids, 3, 42)
	assert.Len(t, a, 3)
	assert.Equal(t, a, b, "same seed must give the same sample")

	// Sample keeps source order
	pos := map[string]int{}
	for i, id := range ids {
		pos[id] = i
	}
	for i := 1; i < len(a); i++ {
		assert.Less(t, pos[a[i-1]], pos[a[i]])
	}
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "a b c", Compact("  a\n\tb   c "))
}
