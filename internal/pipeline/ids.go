// ABOUTME: Parses story id selections such as all, 1-5 and 1,3,7
// ABOUTME: Ranges expand over integers; other ids are taken literally
package pipeline

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/models"
)

// maxRangeSpan bounds a single range expansion
const maxRangeSpan = 100000

// ParseIDs expands sel against the known ids. "all" (or empty) selects every
// known id; otherwise sel is a comma list of ids and inclusive integer ranges.
// An entry is a range only when both sides of its hyphen are integers.
// Duplicates keep their first position.
func ParseIDs(sel string, known []string) ([]string, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || strings.EqualFold(sel, "all") {
		return append([]string(nil), known...), nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			add(part)
			continue
		}

		start, err1 := strconv.Atoi(strings.TrimSpace(lo))
		end, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil {
			// Hyphenated ids such as "ev-12" are not ranges
			add(part)
			continue
		}
		if end < start {
			return nil, goerr.New("range end before start",
				goerr.T(models.TagInvalidInput), goerr.V("range", part))
		}
		if end-start >= maxRangeSpan {
			return nil, goerr.New("range too large",
				goerr.T(models.TagInvalidInput), goerr.V("range", part))
		}
		for n := start; n <= end; n++ {
			add(strconv.Itoa(n))
		}
	}

	if len(out) == 0 {
		return nil, goerr.New("no story ids selected",
			goerr.T(models.TagInvalidInput), goerr.V("selection", sel))
	}
	return out, nil
}
