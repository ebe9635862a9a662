// ABOUTME: Loads news-story datasets and groups their records into stories
// ABOUTME: Accepts JSON arrays, single objects and JSON Lines with nested or flat records
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/harper/storybrief/internal/models"
	"github.com/m-mizutani/goerr/v2"
)

// Record is one raw dataset entry
type Record map[string]any

// Load reads path as a JSON array, a single JSON object, or JSON Lines.
// Malformed JSON Lines entries are skipped.
func Load(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read dataset", goerr.V("path", path), goerr.T(models.TagInvalidInput))
	}
	return Parse(raw), nil
}

// Parse decodes dataset bytes using the same rules as Load
func Parse(raw []byte) []Record {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var whole any
	if err := decode(raw, &whole); err == nil {
		switch v := whole.(type) {
		case []any:
			return toRecords(v)
		case map[string]any:
			return []Record{v}
		}
	}

	var out []Record
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var obj map[string]any
		if err := decode(line, &obj); err != nil || obj == nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Trailing content means this was not a single JSON value
	if dec.More() {
		return goerr.New("trailing data after JSON value")
	}
	return nil
}

func toRecords(items []any) []Record {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Group collects records into stories in first-seen order.
// A nested record ({id, documents: [...]}) replaces any documents seen earlier for its id;
// flat records ({id, doc_id, text}) append.
func Group(records []Record) []models.Story {
	var order []string
	stories := make(map[string]*models.Story)

	get := func(id string) *models.Story {
		s, ok := stories[id]
		if !ok {
			s = &models.Story{ID: id}
			stories[id] = s
			order = append(order, id)
		}
		return s
	}

	for _, r := range records {
		id := first(r, "id")
		if id == "" {
			continue
		}

		if docs, ok := r["documents"].([]any); ok {
			s := get(id)
			s.Documents = s.Documents[:0]
			for _, d := range docs {
				dm, ok := d.(map[string]any)
				if !ok {
					continue
				}
				text := first(Record(dm), "text")
				docID := first(Record(dm), "doc_id", "id")
				if text != "" && docID != "" {
					s.Documents = append(s.Documents, models.Document{DocID: docID, Text: text})
				}
			}
			if ref := first(r, "summarization"); ref != "" {
				s.Reference = ref
			}
			continue
		}

		docID := first(r, "doc_id", "docId")
		text := first(r, "text", "content")
		if docID == "" || text == "" {
			continue
		}
		s := get(id)
		s.Documents = append(s.Documents, models.Document{DocID: docID, Text: text})
		if ref := first(r, "summarization"); ref != "" && s.Reference == "" {
			s.Reference = ref
		}
	}

	out := make([]models.Story, 0, len(order))
	for _, id := range order {
		out = append(out, *stories[id])
	}
	return out
}

// LoadStories is Load followed by Group
func LoadStories(path string) ([]models.Story, error) {
	records, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Group(records), nil
}

// ByID indexes stories by id
func ByID(stories []models.Story) map[string]models.Story {
	out := make(map[string]models.Story, len(stories))
	for _, s := range stories {
		out[s.ID] = s
	}
	return out
}

// IDs returns the story ids in order
func IDs(stories []models.Story) []string {
	out := make([]string, len(stories))
	for i, s := range stories {
		out[i] = s.ID
	}
	return out
}

// Sample picks n ids deterministically for seed, preserving their original order.
// n <= 0 or n >= len(ids) returns every id.
func Sample(ids []string, n int, seed int64) []string {
	if n <= 0 || n >= len(ids) {
		return append([]string(nil), ids...)
	}
	rng := rand.New(rand.NewSource(seed))
	picked := rng.Perm(len(ids))[:n]
	sort.Ints(picked)

	out := make([]string, n)
	for i, p := range picked {
		out[i] = ids[p]
	}
	return out
}

// first returns the first key whose value stringifies to something non-empty
func first(r Record, keys ...string) string {
	for _, k := range keys {
		if s := stringify(r[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Compact normalizes whitespace in text; used when printing document previews
func Compact(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
