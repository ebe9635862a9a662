// ABOUTME: Report stages that call the text-generation service
// ABOUTME: Each stage builds a prompt, asks once more on unusable output, and validates the JSON
package report

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/core"
	"github.com/harper/storybrief/internal/llm"
	"github.com/harper/storybrief/internal/models"
)

const (
	// MinSampleLength is the rune length a chunk needs to be used as a topic sample
	MinSampleLength = 200
	// MaxTopicSamples caps how many chunks feed topic extraction
	MaxTopicSamples = 2
	// DefaultParseAttempts is how many times a stage asks before giving up on bad JSON
	DefaultParseAttempts = 2
	// EvidenceSeparator joins evidence documents inside prompts
	EvidenceSeparator = ";\n"
)

// ask sends prompt and decodes the reply into T, re-asking when the reply is unusable
func ask[T any](ctx context.Context, c llm.Completer, attempts int, stage, prompt string, validate llm.SchemaValidator[T]) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := c.Complete(ctx, []llm.Message{llm.UserMessage(prompt)})
		if err != nil {
			// Transport retries live in the client
			return zero, goerr.Wrap(err, "completion failed",
				goerr.T(models.TagGenerationFailure), goerr.V("stage", stage))
		}

		out, err := llm.ExtractJSON(raw, validate)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return zero, goerr.Wrap(lastErr, "unusable model output",
		goerr.T(models.TagGenerationFailure),
		goerr.V("stage", stage),
		goerr.V("attempts", attempts))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is empty", field)
	}
	return nil
}

// TopicExtractor names the event a story is about
type TopicExtractor struct {
	completer llm.Completer
	searcher  core.Searcher
	k         int
	attempts  int
}

type topicOutput struct {
	Topic string `json:"topic"`
}

// Extract samples the story index with an empty query and asks for a short topic
func (t *TopicExtractor) Extract(ctx context.Context, storyID string) (string, error) {
	chunks, err := t.searcher.SearchMany(ctx, storyID, []string{""}, t.k)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", goerr.New("no documents retrievable for story",
			goerr.T(models.TagIndexNotFound), goerr.V("story_id", storyID))
	}

	out, err := ask[topicOutput](ctx, t.completer, t.attempts, "topic",
		fmt.Sprintf(topicPrompt, TopicSample(chunks)),
		func(o topicOutput) error { return required("topic", o.Topic) })
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Topic), nil
}

// TopicSample picks up to MaxTopicSamples chunks longer than MinSampleLength in
// retrieval order. When none qualifies the longest chunk is used.
func TopicSample(chunks []models.RetrievedChunk) string {
	var b strings.Builder
	picked := 0
	longest := -1
	longestLen := -1

	for i, c := range chunks {
		if picked == MaxTopicSamples {
			break
		}
		n := utf8.RuneCountInString(c.Content)
		if n > longestLen {
			longest, longestLen = i, n
		}
		if n > MinSampleLength {
			b.WriteString(c.Content)
			b.WriteString("\n\n")
			picked++
		}
	}

	if picked == 0 && longest >= 0 {
		return chunks[longest].Content
	}
	return b.String()
}

// QueryPlanner turns a topic into retrieval query variants
type QueryPlanner struct {
	completer llm.Completer
	attempts  int
}

type queryOutput struct {
	QueryWords []string `json:"query_words"`
}

// Plan asks for about five short queries; blank entries are dropped
func (q *QueryPlanner) Plan(ctx context.Context, topic string) ([]string, error) {
	out, err := ask[queryOutput](ctx, q.completer, q.attempts, "query_words",
		fmt.Sprintf(queryPrompt, topic),
		func(o queryOutput) error {
			if len(cleanQueries(o.QueryWords)) == 0 {
				return fmt.Errorf("query_words is empty")
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return cleanQueries(out.QueryWords), nil
}

func cleanQueries(qs []string) []string {
	out := make([]string, 0, len(qs))
	seen := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

// EventSummarizer writes the chronological event summary
type EventSummarizer struct {
	completer    llm.Completer
	orchestrator *core.Orchestrator
	k            int
	attempts     int
}

type summaryOutput struct {
	Summary string `json:"summary"`
}

// Summarize gathers time-ordered evidence for queries and asks for a summary
func (s *EventSummarizer) Summarize(ctx context.Context, storyID, topic string, queries []string) (string, []models.MergedDocument, error) {
	evidence, err := s.orchestrator.Orchestrate(ctx, storyID, queries, s.k)
	if err != nil {
		return "", nil, err
	}

	out, err := ask[summaryOutput](ctx, s.completer, s.attempts, "summary",
		fmt.Sprintf(summaryPrompt, topic, JoinEvidence(evidence)),
		func(o summaryOutput) error { return required("summary", o.Summary) })
	if err != nil {
		return "", evidence, err
	}
	return strings.TrimSpace(out.Summary), evidence, nil
}

// InfluenceAnalyzer explains the consequences of the event
type InfluenceAnalyzer struct {
	completer    llm.Completer
	orchestrator *core.Orchestrator
	k            int
	attempts     int
}

type influenceOutput struct {
	Influence string `json:"influence"`
}

// InfluenceQueries derives impact-oriented query variants from a topic
func InfluenceQueries(topic string) []string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	out := make([]string, len(influenceSuffixes))
	for i, s := range influenceSuffixes {
		out[i] = topic + s
	}
	return out
}

// Analyze retrieves impact evidence and asks for an influence analysis
func (a *InfluenceAnalyzer) Analyze(ctx context.Context, storyID, topic, summary string) (string, []string, error) {
	queries := InfluenceQueries(topic)
	evidence, err := a.orchestrator.Orchestrate(ctx, storyID, queries, a.k)
	if err != nil {
		return "", queries, err
	}

	out, err := ask[influenceOutput](ctx, a.completer, a.attempts, "influence",
		fmt.Sprintf(influencePrompt, topic, summary, JoinEvidence(evidence)),
		func(o influenceOutput) error { return required("influence", o.Influence) })
	if err != nil {
		return "", queries, err
	}
	return strings.TrimSpace(out.Influence), queries, nil
}

// AnswerMerger combines the summary and influence into one brief
type AnswerMerger struct {
	completer llm.Completer
	attempts  int
}

type mergeOutput struct {
	MergedContent string `json:"merged_content"`
}

// Merge asks for one brief covering both parts
func (m *AnswerMerger) Merge(ctx context.Context, topic, summary, influence string) (string, error) {
	out, err := ask[mergeOutput](ctx, m.completer, m.attempts, "merge",
		fmt.Sprintf(mergePrompt, topic, summary, influence),
		func(o mergeOutput) error { return required("merged_content", o.MergedContent) })
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.MergedContent), nil
}

// JoinEvidence renders merged documents for a prompt in their given order
func JoinEvidence(docs []models.MergedDocument) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, EvidenceSeparator)
}
