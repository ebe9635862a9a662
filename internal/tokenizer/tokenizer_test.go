// ABOUTME: Tests for BPE and rune tokenizers
// ABOUTME: Verifies encode/decode round trips including CJK text
package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBPE_RoundTrip(t *testing.T) {
	bpe, err := NewBPE(DefaultEncoding)
	require.NoError(t, err)

	for _, text := range []string{
		"hello world",
		"2023年5月1日，四川发生地震。",
		"",
	} {
		tokens := bpe.Encode(text)
		assert.Equal(t, text, bpe.Decode(tokens))
	}
}

func TestBPE_UnknownEncoding(t *testing.T) {
	_, err := NewBPE("no_such_encoding")
	assert.Error(t, err)
}

func TestRunes(t *testing.T) {
	r := NewRunes()
	tokens := r.Encode("地震地")
	assert.Equal(t, []int{0, 1, 0}, tokens)
	assert.Equal(t, "地震地", r.Decode(tokens))
	assert.Equal(t, "震", r.Decode([]int{1, 99}))
}
