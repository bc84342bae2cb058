package scoring

import (
	"context"

	"github.com/godilite/email-qc/internal/patterns"
)

// templateCriteria is the number of structural checks.
const templateCriteria = 4

// TemplateScorer checks for the structural elements of the house template:
// greeting, signature, standard closing and a formatting cue. Extra content
// never lowers the score.
type TemplateScorer struct{}

func NewTemplateScorer() *TemplateScorer {
	return &TemplateScorer{}
}

func (s *TemplateScorer) Name() Dimension { return DimensionTemplateConsistency }

func (s *TemplateScorer) Evaluate(_ context.Context, sample EmailSample, p *patterns.Compiled) SubScoreResult {
	d := newDetails()
	checks := []struct {
		metric string
		label  string
		list   []patterns.Pattern
	}{
		{MetricGreeting, LabelGreetingPattern, p.Greetings},
		{MetricSignature, LabelSignaturePattern, p.Signatures},
		{MetricClosing, LabelClosingPattern, p.Closings},
		{MetricFormatting, LabelFormattingCue, p.Formatting},
	}

	matched := 0
	for _, c := range checks {
		pat, ok := patterns.FirstMatch(c.list, sample.Body)
		if !ok {
			d.Metrics[c.metric] = 0
			continue
		}
		matched++
		d.Metrics[c.metric] = 1
		d.Labels[c.label] = pat.Source
	}
	d.Metrics[MetricCriteriaMatched] = float64(matched)

	return SubScoreResult{
		Name:    s.Name(),
		Score:   float64(matched) / templateCriteria,
		Details: d,
	}
}
