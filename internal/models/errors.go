// ABOUTME: Error taxonomy shared by every pipeline stage
// ABOUTME: Kinds are goerr tags so callers can classify wrapped errors
package models

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds. A wrapped error carries at most one of these tags.
var (
	TagInvalidInput      = goerr.NewTag(KindInvalidInput)
	TagIndexNotFound     = goerr.NewTag(KindIndexNotFound)
	TagEmbeddingFailure  = goerr.NewTag(KindEmbeddingFailure)
	TagDateParse         = goerr.NewTag(KindDateParse)
	TagGenerationFailure = goerr.NewTag(KindGenerationFailure)
)

// ErrIndexNotFound is returned by index stores when a story has no built index
var ErrIndexNotFound = goerr.New("index not found", goerr.T(TagIndexNotFound))

// Kind names as they appear in logs and failure reports
const (
	KindInvalidInput      = "InvalidInput"
	KindIndexNotFound     = "IndexNotFound"
	KindEmbeddingFailure  = "EmbeddingServiceFailure"
	KindDateParse         = "DateParseFailure"
	KindGenerationFailure = "GenerationFailure"
)

var kinds = []struct {
	name  string
	match func(error) bool
}{
	{KindInvalidInput, func(err error) bool { return goerr.HasTag(err, TagInvalidInput) }},
	{KindIndexNotFound, func(err error) bool {
		return errors.Is(err, ErrIndexNotFound) || goerr.HasTag(err, TagIndexNotFound)
	}},
	{KindEmbeddingFailure, func(err error) bool { return goerr.HasTag(err, TagEmbeddingFailure) }},
	{KindDateParse, func(err error) bool { return goerr.HasTag(err, TagDateParse) }},
	{KindGenerationFailure, func(err error) bool { return goerr.HasTag(err, TagGenerationFailure) }},
}

// KindOf returns the taxonomy name of err, or "" when it is unclassified
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrIndexNotFound) {
		return KindIndexNotFound
	}
	for _, k := range kinds {
		if k.match(err) {
			return k.name
		}
	}
	return ""
}

// IsKind reports whether err carries the given tag anywhere in its chain.
// Any value whose String is a kind name works, so Tag* and Kind* are both accepted.
func IsKind(err error, kind fmt.Stringer) bool {
	if err == nil || kind == nil {
		return false
	}
	name := kind.String()
	for _, k := range kinds {
		if k.name == name {
			return k.match(err)
		}
	}
	return false
}
