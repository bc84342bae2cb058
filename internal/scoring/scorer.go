package scoring

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/godilite/email-qc/internal/patterns"
)

// Scorer is the capability shared by the five sub-scorers. Evaluate never
// fails: a scorer that cannot compute its dimension returns an indeterminate
// result instead.
type Scorer interface {
	Name() Dimension
	Evaluate(ctx context.Context, sample EmailSample, p *patterns.Compiled) SubScoreResult
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func indeterminate(name Dimension, err error) SubScoreResult {
	d := newDetails()
	d.Labels[LabelBackendError] = err.Error()
	return SubScoreResult{
		Name:          name,
		Score:         NeutralScore,
		Indeterminate: true,
		Details:       d,
	}
}

func backendErr(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, name, err)
}

var wordRe = regexp.MustCompile(`[A-Za-z]+(?:['’][A-Za-z]+)?`)

func words(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// normalizeText lower-cases text and folds typographic apostrophes so phrase
// lists match both forms.
func normalizeText(text string) string {
	return strings.ReplaceAll(strings.ToLower(text), "’", "'")
}

// countPhrases counts occurrences of each phrase independently. It returns the
// total and the phrases seen, in list order.
func countPhrases(lower string, phrases []string) (int, []string) {
	total := 0
	found := make([]string, 0)
	for _, ph := range phrases {
		n := strings.Count(lower, ph)
		if n == 0 {
			continue
		}
		total += n
		found = append(found, ph)
	}
	return total, found
}
