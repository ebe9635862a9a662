// ABOUTME: Extraction of JSON payloads from free-form model output
// ABOUTME: Tolerates code fences, surrounding prose and single-quoted keys
package llm

import (
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/models"
)

// SchemaValidator checks a decoded payload. Returns nil if it is usable.
type SchemaValidator[T any] func(T) error

// ExtractJSON decodes the first JSON object found in raw into T and applies
// validator when non-nil. Any failure is tagged as a generation failure.
func ExtractJSON[T any](raw string, validator SchemaValidator[T]) (T, error) {
	var zero T

	block := extractJSONBlock(stripCodeFences(raw))
	if block == "" {
		return zero, goerr.New("no JSON object found in response",
			goerr.T(models.TagGenerationFailure),
			goerr.V("response", preview(raw)))
	}

	var result T
	if err := json.Unmarshal([]byte(block), &result); err != nil {
		// Some models answer with Python-style single quotes
		alt := strings.ReplaceAll(block, "'", "\"")
		if err2 := json.Unmarshal([]byte(alt), &result); err2 != nil {
			return zero, goerr.Wrap(err, "invalid JSON in response",
				goerr.T(models.TagGenerationFailure),
				goerr.V("response", preview(raw)))
		}
	}

	if validator != nil {
		if err := validator(result); err != nil {
			return zero, goerr.Wrap(err, "response failed validation",
				goerr.T(models.TagGenerationFailure))
		}
	}
	return result, nil
}

// stripCodeFences drops markdown fence lines and keeps everything else
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// extractJSONBlock returns the first balanced {...} block, honouring string literals
func extractJSONBlock(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case quote != 0 && c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}
