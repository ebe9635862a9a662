// ABOUTME: Tests for ChunkEngine token window chunking
// ABOUTME: Verifies window coverage, overlap and stride clamping

package core

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/tokenizer"
)

func TestNewChunkEngine(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes())
	if ce == nil {
		t.Fatal("NewChunkEngine() returned nil")
	}
	if ce.ChunkSize() != DefaultChunkSize {
		t.Errorf("ChunkSize() = %d, want %d", ce.ChunkSize(), DefaultChunkSize)
	}
	if ce.Overlap() != DefaultChunkOverlap {
		t.Errorf("Overlap() = %d, want %d", ce.Overlap(), DefaultChunkOverlap)
	}
}

func TestNewChunkEngine_IgnoresInvalidOptions(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes(), WithChunkSize(0), WithOverlap(-3))
	if ce.ChunkSize() != DefaultChunkSize {
		t.Errorf("ChunkSize() = %d, want default", ce.ChunkSize())
	}
	if ce.Overlap() != DefaultChunkOverlap {
		t.Errorf("Overlap() = %d, want default", ce.Overlap())
	}
}

func TestChunkText_ShortTextIsSingleChunk(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes(), WithChunkSize(10), WithOverlap(2))

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"shorter than window", "abc"},
		{"exactly one window", "abcdefghij"},
		{"chinese", "北京发生地震"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ce.ChunkText(tt.text)
			if len(chunks) != 1 {
				t.Fatalf("Expected 1 chunk, got %d", len(chunks))
			}
			if chunks[0] != tt.text {
				t.Errorf("Expected text kept verbatim, got %q", chunks[0])
			}
		})
	}
}

func TestChunkText_SlidingWindow(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes(), WithChunkSize(4), WithOverlap(1))

	chunks := ce.ChunkText("abcdefghij")
	want := []string{"abcd", "defg", "ghij"}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkText_LastWindowMayBeShort(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes(), WithChunkSize(4), WithOverlap(0))

	chunks := ce.ChunkText("abcdefghij")
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2] != "ij" {
		t.Errorf("Expected short final chunk %q, got %q", "ij", chunks[2])
	}
}

func TestChunkText_OverlapRepeatedVerbatim(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes(), WithChunkSize(6), WithOverlap(2))

	chunks := ce.ChunkText("地震发生后救援队伍迅速赶到现场展开搜救")
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-2:])
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d %q does not start with overlap %q", i, chunks[i], tail)
		}
	}
}

func TestChunkDocument_TagsSource(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes(), WithChunkSize(3), WithOverlap(0))

	doc := models.Document{DocID: "d1", Text: "abcdefg"}
	chunks := ce.ChunkDocument(doc)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.SourceDocID != "d1" {
			t.Errorf("chunk %d SourceDocID = %q", i, c.SourceDocID)
		}
		if c.Position != i {
			t.Errorf("chunk %d Position = %d", i, c.Position)
		}
	}
	if chunks[0].ChunkID != "d1#0" || chunks[2].ChunkID != "d1#2" {
		t.Errorf("Unexpected chunk ids: %q, %q", chunks[0].ChunkID, chunks[2].ChunkID)
	}
	if chunks[2].Span != (models.TokenSpan{Start: 6, End: 7}) {
		t.Errorf("Unexpected final span: %+v", chunks[2].Span)
	}
}

func TestChunkDocument_Deterministic(t *testing.T) {
	ce := NewChunkEngine(tokenizer.NewRunes(), WithChunkSize(5), WithOverlap(2))
	doc := models.Document{DocID: "d1", Text: "the quick brown fox jumps over the lazy dog"}

	first := ce.ChunkDocument(doc)
	second := ce.ChunkDocument(doc)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestWindows_CoverFullSequence(t *testing.T) {
	tests := []struct {
		n, size, overlap int
	}{
		{0, 4, 1},
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 1},
		{100, 7, 3},
		{100, 10, 0},
		{1000, 1024, 128},
		{5000, 1024, 128},
		{20, 4, 4},
	}

	for _, tt := range tests {
		spans := Windows(tt.n, tt.size, tt.overlap)
		if len(spans) == 0 {
			t.Fatalf("Windows(%d,%d,%d) returned no spans", tt.n, tt.size, tt.overlap)
		}
		if tt.n <= tt.size && len(spans) != 1 {
			t.Errorf("Windows(%d,%d,%d) = %d spans, want 1", tt.n, tt.size, tt.overlap, len(spans))
		}
		if spans[0].Start != 0 {
			t.Errorf("first span starts at %d", spans[0].Start)
		}
		if spans[len(spans)-1].End != tt.n {
			t.Errorf("Windows(%d,%d,%d) last span ends at %d", tt.n, tt.size, tt.overlap, spans[len(spans)-1].End)
		}
		for i, s := range spans {
			if s.Len() > tt.size {
				t.Errorf("span %d longer than window: %+v", i, s)
			}
			if i > 0 && s.Start > spans[i-1].End {
				t.Errorf("gap between span %d and %d", i-1, i)
			}
		}
	}
}

func TestWindows_StrideClampedToOne(t *testing.T) {
	spans := Windows(6, 3, 5)
	// stride 1: [0,3] [1,4] [2,5] [3,6]
	if len(spans) != 4 {
		t.Fatalf("Expected 4 spans, got %d: %+v", len(spans), spans)
	}
	for i, s := range spans {
		if s.Start != i {
			t.Errorf("span %d starts at %d", i, s.Start)
		}
	}
}

func TestWindows_ZeroSize(t *testing.T) {
	spans := Windows(3, 0, 0)
	if len(spans) != 3 {
		t.Fatalf("Expected size clamped to 1 giving 3 spans, got %d", len(spans))
	}
}

func TestChunkText_BPEWindowsAreValidUTF8(t *testing.T) {
	bpe, err := tokenizer.NewBPE(tokenizer.DefaultEncoding)
	if err != nil {
		t.Fatalf("NewBPE() error = %v", err)
	}
	ce := NewChunkEngine(bpe, WithChunkSize(7), WithOverlap(2))
	text := strings.Repeat("四川发生地震，救援队伍连夜赶赴灾区。", 20)

	chunks := ce.ChunkDocument(models.Document{DocID: "quake", Text: text})
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several windows", len(chunks))
	}
	for _, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %s is not valid UTF-8: %q", c.ChunkID, c.Text)
		}
		if c.Text == "" {
			t.Errorf("chunk %s is empty", c.ChunkID)
		}
	}
}
