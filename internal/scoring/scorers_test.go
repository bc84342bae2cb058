package scoring

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/email-qc/internal/patterns"
	"github.com/godilite/email-qc/internal/textcheck"
)

type stubChecker struct {
	issues []textcheck.Issue
	err    error
	closed bool
}

func (s *stubChecker) Check(context.Context, string) ([]textcheck.Issue, error) {
	return s.issues, s.err
}

func (s *stubChecker) Close() error {
	s.closed = true
	return nil
}

type stubAnalyzer struct {
	polarity float64
	err      error
	closed   bool
}

func (s *stubAnalyzer) Polarity(context.Context, string) (float64, error) {
	return s.polarity, s.err
}

func (s *stubAnalyzer) Close() error {
	s.closed = true
	return nil
}

func defaultCompiled() *patterns.Compiled {
	return patterns.MustCompile(patterns.Default())
}

func TestGrammarScorer(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	p := defaultCompiled()
	body := strings.TrimSpace(strings.Repeat("word ", 40))

	t.Run("no issues scores one", func(t *testing.T) {
		s := NewGrammarScorer(&stubChecker{}, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: body}, p)

		assert.Equal(t, DimensionSpellingGrammar, res.Name)
		assert.False(t, res.Indeterminate)
		assert.Equal(t, 1.0, res.Score)
		assert.Equal(t, 0.0, res.Details.Metrics[MetricSpellingErrors])
		assert.Equal(t, 40.0, res.Details.Metrics[MetricWordCount])
		assert.Contains(t, res.Details.Metrics, MetricReadabilityScore)
	})

	t.Run("errors are normalised by length", func(t *testing.T) {
		checker := &stubChecker{issues: []textcheck.Issue{
			{Category: textcheck.CategorySpelling, Offset: 0, Length: 4},
			{Category: textcheck.CategoryGrammar, Offset: 5, Length: 4},
		}}
		s := NewGrammarScorer(checker, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: body}, p)

		// 40 words allow 4 errors before the score reaches zero.
		assert.InDelta(t, 0.5, res.Score, 1e-9)
		assert.Equal(t, 1.0, res.Details.Metrics[MetricSpellingErrors])
		assert.Equal(t, 1.0, res.Details.Metrics[MetricGrammarErrors])
		assert.Equal(t, []string{"word", "word"}, res.Details.Matches[MatchFlaggedWords])
	})

	t.Run("score is clamped at zero", func(t *testing.T) {
		issues := make([]textcheck.Issue, 10)
		for i := range issues {
			issues[i] = textcheck.Issue{Category: textcheck.CategorySpelling, Offset: -1}
		}
		s := NewGrammarScorer(&stubChecker{issues: issues}, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: "Helo"}, p)

		assert.Equal(t, 0.0, res.Score)
		assert.Empty(t, res.Details.Matches[MatchFlaggedWords])
	})

	t.Run("empty body scores one with the real checker", func(t *testing.T) {
		checker, err := textcheck.NewRuleChecker()
		require.NoError(t, err)
		s := NewGrammarScorer(checker, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: ""}, p)

		assert.Equal(t, 1.0, res.Score)
		assert.Equal(t, 0.0, res.Details.Metrics[MetricWordCount])
		assert.NotContains(t, res.Details.Metrics, MetricReadabilityScore)
	})

	t.Run("real checker flags misspellings", func(t *testing.T) {
		checker, err := textcheck.NewRuleChecker()
		require.NoError(t, err)
		s := NewGrammarScorer(checker, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: "We recieved your message and will definately reply."}, p)

		assert.Equal(t, 2.0, res.Details.Metrics[MetricSpellingErrors])
		assert.Contains(t, res.Details.Matches[MatchFlaggedWords], "recieved")
		assert.Less(t, res.Score, 1.0)
	})

	t.Run("backend failure is indeterminate", func(t *testing.T) {
		s := NewGrammarScorer(&stubChecker{err: errors.New("connection refused")}, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: body}, p)

		assert.True(t, res.Indeterminate)
		assert.Equal(t, NeutralScore, res.Score)
		assert.Contains(t, res.Details.Labels[LabelBackendError], "connection refused")
	})

	t.Run("nil backend is indeterminate", func(t *testing.T) {
		s := NewGrammarScorer(nil, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: body}, p)

		assert.True(t, res.Indeterminate)
	})
}

func TestFleschReadingEase(t *testing.T) {
	text := "The cat sat on the mat."
	ease := fleschReadingEase(text, words(text))

	// Six one-syllable words in one sentence.
	assert.InDelta(t, 116.15, ease, 0.02)
	assert.Equal(t, 1, countSyllables("the"))
	assert.Equal(t, 3, countSyllables("beautiful"))
	assert.Equal(t, 2, countSyllables("table"))
}

func TestToneScorer(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	p := defaultCompiled()

	tests := []struct {
		name     string
		polarity float64
		body     string
		want     float64
		pos, neg float64
	}{
		{"neutral text", 0, "Your parcel shipped today.", 0.5, 0, 0},
		{"near zero polarity is neutral", 0.01, "Your parcel shipped today.", 0.5, 0, 0},
		{"positive polarity", 0.6, "Your parcel shipped today.", 0.8, 0, 0},
		{"positive phrase boosts", 0.6, "We are happy to help.", 0.9, 1, 0},
		{"negative phrases penalise", -0.2, "Unfortunately we cannot refund this.", 0.2, 0, 2},
		{"phrases apply at zero polarity", 0, "We are happy to help.", 0.6, 1, 0},
		{"clamped at one", 1, "Happy to help, glad to assist, pleased to confirm.", 1, 3, 0},
		{"clamped at zero", -1, "Unfortunately you must wait.", 0, 0, 2},
		{"nan polarity is neutral", math.NaN(), "Your parcel shipped today.", 0.5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewToneScorer(&stubAnalyzer{polarity: tt.polarity}, cfg)

			res := s.Evaluate(ctx, EmailSample{Body: tt.body}, p)

			assert.False(t, res.Indeterminate)
			assert.InDelta(t, tt.want, res.Score, 1e-9)
			assert.Equal(t, tt.pos, res.Details.Metrics[MetricPositiveCount])
			assert.Equal(t, tt.neg, res.Details.Metrics[MetricNegativeCount])
		})
	}

	t.Run("empty tone lists apply no adjustment", func(t *testing.T) {
		set := patterns.Default()
		set.Positive = nil
		set.Negative = nil
		s := NewToneScorer(&stubAnalyzer{polarity: 0.6}, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: "We are happy to help."}, patterns.MustCompile(set))

		assert.InDelta(t, 0.8, res.Score, 1e-9)
	})

	t.Run("backend failure is indeterminate", func(t *testing.T) {
		s := NewToneScorer(&stubAnalyzer{err: errors.New("model not loaded")}, cfg)

		res := s.Evaluate(ctx, EmailSample{Body: "Hello"}, p)

		assert.True(t, res.Indeterminate)
		assert.Contains(t, res.Details.Labels[LabelBackendError], "model not loaded")
	})
}

func TestEmpathyScorer(t *testing.T) {
	ctx := context.Background()
	p := defaultCompiled()
	s := NewEmpathyScorer(DefaultConfig())

	tests := []struct {
		body  string
		count float64
		want  float64
	}{
		{"Your parcel shipped.", 0, 0},
		{"I understand the delay.", 1, 0.5},
		{"I understand. This must be annoying.", 2, 1},
		{"I understand. This must be annoying. We value your patience.", 3, 1},
		{"I’m sorry about that.", 1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			res := s.Evaluate(ctx, EmailSample{Body: tt.body}, p)

			assert.Equal(t, tt.count, res.Details.Metrics[MetricEmpathyPhrasesCount])
			assert.Equal(t, tt.want, res.Score)
		})
	}

	t.Run("monotonic in phrase count", func(t *testing.T) {
		prev := -1.0
		for n := range 10 {
			score := empathyScore(n, DefaultConfig().EmpathyTarget)
			assert.GreaterOrEqual(t, score, prev)
			assert.True(t, score >= 0 && score <= 1)
			prev = score
		}
	})

	t.Run("phrase configured with a typographic apostrophe", func(t *testing.T) {
		set := patterns.Default()
		set.Empathy = []string{"I’m sorry"}
		custom := patterns.MustCompile(set)

		for _, body := range []string{"I’m sorry for the wait.", "I'm sorry for the wait."} {
			res := s.Evaluate(ctx, EmailSample{Body: body}, custom)
			assert.Equal(t, 1.0, res.Details.Metrics[MetricEmpathyPhrasesCount], body)
			assert.Empty(t, missingPhrases(body, custom.Empathy), body)
		}
	})
}

func TestTemplateScorer(t *testing.T) {
	ctx := context.Background()
	p := defaultCompiled()
	s := NewTemplateScorer()

	// Every combination of the four structural elements.
	for mask := range 16 {
		greeting := mask&1 != 0
		signature := mask&2 != 0
		closing := mask&4 != 0
		formatting := mask&8 != 0

		var parts []string
		if greeting {
			parts = append(parts, "Dear Maria,")
		}
		parts = append(parts, "Your order has shipped.")
		if closing {
			parts = append(parts, "Please let us know if you need any further assistance.")
		}
		if formatting {
			parts = append(parts, "1. Track your parcel online.")
		}
		if signature {
			parts = append(parts, "Best regards, Sam")
		}
		sep := " "
		if formatting {
			sep = "\n\n"
		}
		body := strings.Join(parts, sep)

		want := 0
		for _, b := range []bool{greeting, signature, closing, formatting} {
			if b {
				want++
			}
		}

		res := s.Evaluate(ctx, EmailSample{Body: body}, p)

		assert.Equal(t, float64(want)/4, res.Score, "body %q", body)
		assert.Equal(t, float64(want), res.Details.Metrics[MetricCriteriaMatched], "body %q", body)
		assert.Equal(t, boolMetric(greeting), res.Details.Metrics[MetricGreeting], "body %q", body)
		assert.Equal(t, boolMetric(signature), res.Details.Metrics[MetricSignature], "body %q", body)
		assert.Equal(t, boolMetric(closing), res.Details.Metrics[MetricClosing], "body %q", body)
		assert.Equal(t, boolMetric(formatting), res.Details.Metrics[MetricFormatting], "body %q", body)
	}

	t.Run("matched pattern is recorded", func(t *testing.T) {
		res := s.Evaluate(ctx, EmailSample{Body: "Hi John, thanks."}, p)

		assert.Equal(t, `(?i)\bhi\s+\w+`, res.Details.Labels[LabelGreetingPattern])
		assert.NotContains(t, res.Details.Labels, LabelSignaturePattern)
	})

	t.Run("typographic apostrophe closing", func(t *testing.T) {
		res := s.Evaluate(ctx, EmailSample{Body: "We’re here to help if you need anything else."}, p)

		assert.Equal(t, 1.0, res.Details.Metrics[MetricClosing])
	})
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func TestResponseTimeScorer(t *testing.T) {
	ctx := context.Background()
	p := defaultCompiled()
	s := NewResponseTimeScorer(DefaultConfig())
	received := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	at := func(d time.Duration) *time.Time {
		ts := received.Add(d)
		return &ts
	}

	tests := []struct {
		name   string
		delay  time.Duration
		want   float64
		bucket string
	}{
		{"ten minutes", 10 * time.Minute, 1.0, "<=15m"},
		{"bucket edge is inclusive", 15 * time.Minute, 1.0, "<=15m"},
		{"half hour", 30 * time.Minute, 0.8, "<=60m"},
		{"two hours", 2 * time.Hour, 0.5, "<=240m"},
		{"next day", 26 * time.Hour, 0.2, "slow"},
		{"instant", 0, 1.0, "<=15m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Evaluate(ctx, EmailSample{ReceivedAt: &received, FirstResponseAt: at(tt.delay)}, p)

			assert.Equal(t, tt.want, res.Score)
			assert.Equal(t, tt.bucket, res.Details.Labels[LabelThresholdBucket])
			assert.Equal(t, tt.delay.Minutes(), res.Details.Metrics[MetricResponseTimeMins])
			assert.Equal(t, 0.0, res.Details.Metrics[MetricIncompleteData])
		})
	}

	incomplete := []struct {
		name   string
		sample EmailSample
	}{
		{"no timestamps", EmailSample{}},
		{"no response yet", EmailSample{ReceivedAt: &received}},
		{"no receipt", EmailSample{FirstResponseAt: at(time.Minute)}},
		{"response before receipt", EmailSample{ReceivedAt: &received, FirstResponseAt: at(-time.Hour)}},
	}

	for _, tt := range incomplete {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Evaluate(ctx, tt.sample, p)

			assert.False(t, res.Indeterminate)
			assert.Equal(t, NeutralScore, res.Score)
			assert.Equal(t, 1.0, res.Details.Metrics[MetricIncompleteData])
			assert.Equal(t, "incomplete", res.Details.Labels[LabelThresholdBucket])
			assert.Contains(t, res.Details.Labels[LabelIncompleteReason], ErrIncompleteInput.Error())
		})
	}
}
