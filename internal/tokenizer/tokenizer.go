// ABOUTME: Byte-pair tokenizer used to bound chunk sizes
// ABOUTME: Wraps tiktoken-go with embedded BPE ranks so no network is needed
package tokenizer

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the encoding used for chunking
const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to token ids and back
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

var loaderOnce sync.Once

// BPE is a Tokenizer backed by a tiktoken encoding
type BPE struct {
	enc *tiktoken.Tiktoken
}

// NewBPE loads the named encoding from the embedded rank files
func NewBPE(encoding string) (*BPE, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load encoding", goerr.V("encoding", encoding))
	}
	return &BPE{enc: enc}, nil
}

// Encode tokenizes text, treating special-token markers as ordinary text
func (b *BPE) Encode(text string) []int {
	return b.enc.Encode(text, nil, nil)
}

// Decode converts tokens back to text
func (b *BPE) Decode(tokens []int) string {
	return b.enc.Decode(tokens)
}

// Runes is a trivial tokenizer with one token per rune. Useful where exact
// BPE counts do not matter.
type Runes struct {
	mu    sync.Mutex
	table []rune
	ids   map[rune]int
}

// NewRunes returns an empty rune tokenizer
func NewRunes() *Runes {
	return &Runes{ids: make(map[rune]int)}
}

// Encode assigns a stable id to each distinct rune
func (r *Runes) Encode(text string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(text))
	for _, c := range text {
		id, ok := r.ids[c]
		if !ok {
			id = len(r.table)
			r.ids[c] = id
			r.table = append(r.table, c)
		}
		out = append(out, id)
	}
	return out
}

// Decode maps ids back to runes
func (r *Runes) Decode(tokens []int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rune, 0, len(tokens))
	for _, id := range tokens {
		if id >= 0 && id < len(r.table) {
			out = append(out, r.table[id])
		}
	}
	return string(out)
}
