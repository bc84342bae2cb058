package scoring

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/godilite/email-qc/internal/patterns"
	"github.com/godilite/email-qc/internal/textcheck"
)

const maxFlaggedWords = 10

// GrammarScorer scores spelling and grammar using a textcheck backend.
type GrammarScorer struct {
	checker textcheck.Checker
	cfg     Config
}

// NewGrammarScorer returns a scorer over checker. A nil checker makes every
// result indeterminate.
func NewGrammarScorer(checker textcheck.Checker, cfg Config) *GrammarScorer {
	return &GrammarScorer{checker: checker, cfg: cfg}
}

func (s *GrammarScorer) Name() Dimension { return DimensionSpellingGrammar }

func (s *GrammarScorer) Evaluate(ctx context.Context, sample EmailSample, _ *patterns.Compiled) SubScoreResult {
	if s.checker == nil {
		return indeterminate(s.Name(), backendErr("grammar checker", errors.New("not initialized")))
	}
	issues, err := s.checker.Check(ctx, sample.Body)
	if err != nil {
		return indeterminate(s.Name(), backendErr("grammar checker", err))
	}

	var spelling, grammar int
	flagged := make([]string, 0)
	for _, is := range issues {
		if is.IsSpelling() {
			spelling++
		} else {
			grammar++
		}
		if len(flagged) < maxFlaggedWords && is.Offset >= 0 && is.Offset+is.Length <= len(sample.Body) {
			flagged = append(flagged, sample.Body[is.Offset:is.Offset+is.Length])
		}
	}

	wordList := words(sample.Body)
	score := 1.0
	if len(issues) > 0 {
		norm := math.Max(1, float64(len(wordList))*s.cfg.ErrorsPerWord)
		penalty := float64(spelling)*s.cfg.SpellingPenalty + float64(grammar)*s.cfg.GrammarPenalty
		score = clamp01(1 - penalty/norm)
	}

	d := newDetails()
	d.Metrics[MetricSpellingErrors] = float64(spelling)
	d.Metrics[MetricGrammarErrors] = float64(grammar)
	d.Metrics[MetricWordCount] = float64(len(wordList))
	if len(wordList) > 0 {
		d.Metrics[MetricReadabilityScore] = fleschReadingEase(sample.Body, wordList)
	}
	d.Matches[MatchFlaggedWords] = flagged

	return SubScoreResult{Name: s.Name(), Score: score, Details: d}
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+`)

// fleschReadingEase is informational; it does not feed the score.
func fleschReadingEase(text string, wordList []string) float64 {
	sentences := 0
	for _, part := range sentenceEndRe.Split(text, -1) {
		if len(words(part)) > 0 {
			sentences++
		}
	}
	sentences = max(sentences, 1)

	syllables := 0
	for _, w := range wordList {
		syllables += countSyllables(w)
	}
	n := float64(len(wordList))
	ease := 206.835 - 1.015*(n/float64(sentences)) - 84.6*(float64(syllables)/n)
	return math.Round(ease*100) / 100
}

func countSyllables(word string) int {
	w := strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range w {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	return max(count, 1)
}
