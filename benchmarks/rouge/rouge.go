// ABOUTME: ROUGE-1, ROUGE-2 and ROUGE-L scoring of generated summaries against references
// ABOUTME: Chinese text is segmented with gse before n-gram and LCS comparison

package rouge

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
	"github.com/harper/storybrief/internal/models"
	"github.com/m-mizutani/goerr/v2"
)

// Score is precision, recall and F1 for one ROUGE variant
type Score struct {
	Precision float64 `json:"p"`
	Recall    float64 `json:"r"`
	F1        float64 `json:"f"`
}

// Scores groups the three variants reported per pair and on average
type Scores struct {
	Rouge1 Score `json:"rouge-1"`
	Rouge2 Score `json:"rouge-2"`
	RougeL Score `json:"rouge-l"`
}

// Tokenizer splits text into words
type Tokenizer func(text string) []string

// Evaluation is the outcome of comparing a result file with a dataset
type Evaluation struct {
	Pairs      int      `json:"pairs"`
	Average    Scores   `json:"average"`
	MissingIDs []string `json:"missing_ids"`
	EmptyIDs   []string `json:"empty_ids"`
}

var (
	segOnce sync.Once
	seg     gse.Segmenter
	segErr  error
)

// Segmenter returns a gse-backed tokenizer with the embedded Chinese dictionary
func Segmenter() (Tokenizer, error) {
	segOnce.Do(func() {
		segErr = seg.LoadDictEmbed()
	})
	if segErr != nil {
		return nil, goerr.Wrap(segErr, "failed to load segmentation dictionary")
	}
	return func(text string) []string {
		return clean(seg.Cut(text, true))
	}, nil
}

// Fields is a whitespace tokenizer, useful for pre-segmented text
func Fields(text string) []string {
	return strings.Fields(text)
}

// clean drops whitespace-only tokens produced by the segmenter
func clean(tokens []string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if strings.TrimFunc(t, unicode.IsSpace) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Compare scores one prediction against one reference
func Compare(tokenize Tokenizer, prediction, reference string) Scores {
	pred := tokenize(prediction)
	ref := tokenize(reference)
	return Scores{
		Rouge1: ngramScore(pred, ref, 1),
		Rouge2: ngramScore(pred, ref, 2),
		RougeL: lcsScore(pred, ref),
	}
}

// Evaluate scores every result whose id has a reference; empty predictions score zero
func Evaluate(tokenize Tokenizer, results []models.StoryResult, stories []models.Story) Evaluation {
	refs := make(map[string]string, len(stories))
	for _, s := range stories {
		refs[s.ID] = strings.TrimSpace(s.Reference)
	}

	eval := Evaluation{MissingIDs: []string{}, EmptyIDs: []string{}}
	var sum Scores
	for _, r := range results {
		ref, ok := refs[r.ID]
		if !ok {
			eval.MissingIDs = append(eval.MissingIDs, r.ID)
			continue
		}
		pred := strings.TrimSpace(r.Summary)
		if pred == "" {
			eval.EmptyIDs = append(eval.EmptyIDs, r.ID)
		}
		s := Compare(tokenize, pred, ref)
		sum.Rouge1 = add(sum.Rouge1, s.Rouge1)
		sum.Rouge2 = add(sum.Rouge2, s.Rouge2)
		sum.RougeL = add(sum.RougeL, s.RougeL)
		eval.Pairs++
	}

	if eval.Pairs > 0 {
		n := float64(eval.Pairs)
		eval.Average = Scores{
			Rouge1: div(sum.Rouge1, n),
			Rouge2: div(sum.Rouge2, n),
			RougeL: div(sum.RougeL, n),
		}
	}
	return eval
}

func ngrams(tokens []string, n int) map[string]struct{} {
	set := make(map[string]struct{})
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], "\x00")] = struct{}{}
	}
	return set
}

func ngramScore(pred, ref []string, n int) Score {
	p := ngrams(pred, n)
	r := ngrams(ref, n)
	overlap := 0
	for g := range p {
		if _, ok := r[g]; ok {
			overlap++
		}
	}
	return newScore(overlap, len(p), len(r))
}

func lcsScore(pred, ref []string) Score {
	return newScore(lcs(pred, ref), len(pred), len(ref))
}

// lcs is the longest common subsequence length using two rolling rows
func lcs(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func newScore(overlap, predCount, refCount int) Score {
	var s Score
	if predCount > 0 {
		s.Precision = float64(overlap) / float64(predCount)
	}
	if refCount > 0 {
		s.Recall = float64(overlap) / float64(refCount)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

func add(a, b Score) Score {
	return Score{a.Precision + b.Precision, a.Recall + b.Recall, a.F1 + b.F1}
}

func div(s Score, n float64) Score {
	return Score{s.Precision / n, s.Recall / n, s.F1 / n}
}
