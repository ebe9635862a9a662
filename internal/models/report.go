// ABOUTME: Report models produced by the generation stage and batch runner
// ABOUTME: StoryResult is the on-disk output format, one entry per requested id
package models

// Report is the full output of the summary/influence pipeline for a story
type Report struct {
	ID             string           `json:"id" yaml:"id"`
	Topic          string           `json:"topic" yaml:"topic"`
	QueryWords     []string         `json:"query_words" yaml:"query_words"`
	Summary        string           `json:"summary" yaml:"summary"`
	InfluenceQuery []string         `json:"influence_query_words,omitempty" yaml:"influence_query_words,omitempty"`
	Influence      string           `json:"influence,omitempty" yaml:"influence,omitempty"`
	MergedContent  string           `json:"merged_content,omitempty" yaml:"merged_content,omitempty"`
	Evidence       []MergedDocument `json:"evidence,omitempty" yaml:"-"`
	TimeStatistics TimeStatistics   `json:"time_statistics" yaml:"time_statistics"`
}

// StoryResult is one row of the batch output file
type StoryResult struct {
	ID      string `json:"id" yaml:"id"`
	Summary string `json:"summary" yaml:"summary"`
}

// BatchResult collects every requested id plus the ones that failed
type BatchResult struct {
	Results   []StoryResult     `json:"results" yaml:"results"`
	FailedIDs []string          `json:"failed_ids" yaml:"failed_ids"`
	Errors    map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`
}
