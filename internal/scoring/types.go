// Package scoring is the email quality-scoring engine. Five independent
// sub-scorers each turn a reply into a normalised score in [0, 1]; the
// aggregator combines them into a weighted total in [0, 100] with feedback.
package scoring

import (
	"time"
)

// Dimension names one of the five sub-scores.
type Dimension string

const (
	DimensionSpellingGrammar     Dimension = "spelling_grammar"
	DimensionTone                Dimension = "tone"
	DimensionEmpathy             Dimension = "empathy"
	DimensionTemplateConsistency Dimension = "template_consistency"
	DimensionResponseTime        Dimension = "response_time"
)

// Dimensions lists every dimension in canonical order.
var Dimensions = []Dimension{
	DimensionSpellingGrammar,
	DimensionTone,
	DimensionEmpathy,
	DimensionTemplateConsistency,
	DimensionResponseTime,
}

func (d Dimension) index() int {
	for i, dim := range Dimensions {
		if dim == d {
			return i
		}
	}
	return len(Dimensions)
}

// Metric, label and match keys written into Details.
const (
	MetricSpellingErrors      = "spelling_errors"
	MetricGrammarErrors       = "grammar_errors"
	MetricWordCount           = "word_count"
	MetricReadabilityScore    = "readability_score"
	MetricSentimentScore      = "sentiment_score"
	MetricPositiveCount       = "positive_count"
	MetricNegativeCount       = "negative_count"
	MetricEmpathyPhrasesCount = "empathy_phrases_count"
	MetricGreeting            = "greeting"
	MetricSignature           = "signature"
	MetricClosing             = "closing"
	MetricFormatting          = "formatting"
	MetricCriteriaMatched     = "criteria_matched"
	MetricResponseTimeMins    = "response_time_mins"
	MetricIncompleteData      = "incomplete_data"

	LabelBackendError     = "backend_error"
	LabelThresholdBucket  = "threshold_bucket"
	LabelIncompleteReason = "incomplete_reason"
	LabelGreetingPattern  = "greeting_pattern"
	LabelSignaturePattern = "signature_pattern"
	LabelClosingPattern   = "closing_pattern"
	LabelFormattingCue    = "formatting_pattern"

	MatchFlaggedWords    = "flagged_words"
	MatchPositivePhrases = "positive_phrases"
	MatchNegativePhrases = "negative_phrases"
	MatchEmpathyPhrases  = "empathy_phrases"
)

// NeutralScore is the default reported when a dimension has no signal.
const NeutralScore = 0.5

// EmailSample is the immutable input to scoring. ReceivedAt and
// FirstResponseAt may be nil.
type EmailSample struct {
	Body            string
	TicketID        int64
	ArticleID       int64
	AgentID         int64
	ReceivedAt      *time.Time
	FirstResponseAt *time.Time
}

// Details records the raw metrics behind a sub-score.
type Details struct {
	Metrics map[string]float64  `json:"metrics"`
	Labels  map[string]string   `json:"labels"`
	Matches map[string][]string `json:"matches"`
}

func newDetails() Details {
	return Details{
		Metrics: map[string]float64{},
		Labels:  map[string]string{},
		Matches: map[string][]string{},
	}
}

// Metric returns a metric value and whether it was recorded.
func (d Details) Metric(key string) (float64, bool) {
	v, ok := d.Metrics[key]
	return v, ok
}

// SubScoreResult is one sub-scorer's output. An indeterminate result could not
// be computed and is excluded from the weighted total.
type SubScoreResult struct {
	Name          Dimension `json:"name"`
	Score         float64   `json:"score"`
	Indeterminate bool      `json:"indeterminate"`
	Details       Details   `json:"details"`
}

// QCResult is one scoring outcome. It is never mutated after creation.
type QCResult struct {
	TicketID        int64
	ArticleID       int64
	AgentID         int64
	Timestamp       time.Time
	EmailBody       string
	SubScores       []SubScoreResult
	TotalScore      float64
	Feedback        string
	Recommendations string
	PatternVersion  string
}

// SubScore returns the result for a dimension.
func (r QCResult) SubScore(d Dimension) (SubScoreResult, bool) {
	for _, s := range r.SubScores {
		if s.Name == d {
			return s, true
		}
	}
	return SubScoreResult{}, false
}

// Agent is a support agent as known to the result store.
type Agent struct {
	ID    int64
	Name  string
	Email string
}
