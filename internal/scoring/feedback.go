package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/godilite/email-qc/internal/patterns"
)

const maxExamples = 3

// InsufficientSignal prefixes the feedback when the email carries too little
// text, or no active sub-score, to be scored meaningfully.
const InsufficientSignal = "Insufficient signal to score accurately"

var dimensionTitles = map[Dimension]string{
	DimensionSpellingGrammar:     "Spelling and grammar",
	DimensionTone:                "Tone",
	DimensionEmpathy:             "Empathy",
	DimensionTemplateConsistency: "Template consistency",
	DimensionResponseTime:        "Response time",
}

// Title returns the human-readable name of a dimension.
func (d Dimension) Title() string {
	if t, ok := dimensionTitles[d]; ok {
		return t
	}
	return string(d)
}

func buildFeedback(sample EmailSample, results []SubScoreResult, p *patterns.Compiled, cfg Config, noActive bool) (feedback, recs []string) {
	if noActive {
		feedback = append(feedback, InsufficientSignal+": no sub-score could be computed.")
	} else if len(words(sample.Body)) == 0 {
		feedback = append(feedback, InsufficientSignal+": the email contains no words.")
	}

	for _, r := range results {
		if r.Indeterminate {
			feedback = append(feedback, fmt.Sprintf("%s: analysis backend unavailable, excluded from the total.", r.Name.Title()))
			continue
		}
		if r.Name == DimensionResponseTime && r.Details.Metrics[MetricIncompleteData] == 1 {
			feedback = append(feedback, "Response time: timing data incomplete, neutral score applied.")
			continue
		}
		if r.Score >= cfg.FeedbackThreshold {
			continue
		}
		f, rec := explain(r, sample, p, cfg)
		feedback = append(feedback, f)
		recs = append(recs, rec...)
	}

	if len(feedback) == 0 {
		feedback = append(feedback, "All quality dimensions meet the target.")
	}
	return feedback, recs
}

func explain(r SubScoreResult, sample EmailSample, p *patterns.Compiled, cfg Config) (string, []string) {
	m := r.Details.Metrics
	switch r.Name {
	case DimensionSpellingGrammar:
		f := fmt.Sprintf("Spelling and grammar: %d spelling and %d grammar issue(s) found.",
			int(m[MetricSpellingErrors]), int(m[MetricGrammarErrors]))
		rec := "Proofread the reply before sending."
		if flagged := r.Details.Matches[MatchFlaggedWords]; len(flagged) > 0 {
			rec = fmt.Sprintf("Proofread the reply before sending; check %s.", quoteList(flagged))
		}
		return f, []string{rec}

	case DimensionTone:
		f := fmt.Sprintf("Tone: sentiment %.2f with %d positive and %d negative phrase(s).",
			m[MetricSentimentScore], int(m[MetricPositiveCount]), int(m[MetricNegativeCount]))
		var recs []string
		if neg := r.Details.Matches[MatchNegativePhrases]; len(neg) > 0 {
			recs = append(recs, fmt.Sprintf("Rephrase negative wording such as %s.", quoteList(neg)))
		}
		if ex := missingPhrases(sample.Body, p.Positive); len(ex) > 0 {
			recs = append(recs, fmt.Sprintf("Use a warmer tone, with phrases such as %s.", quoteList(ex)))
		}
		return f, recs

	case DimensionEmpathy:
		f := fmt.Sprintf("Empathy: %d empathy phrase(s) found, %g expected.",
			int(m[MetricEmpathyPhrasesCount]), cfg.EmpathyTarget)
		rec := "Acknowledge the customer's situation."
		if ex := missingPhrases(sample.Body, p.Empathy); len(ex) > 0 {
			rec = fmt.Sprintf("Acknowledge the customer's situation; add phrases such as %s.", quoteList(ex))
		}
		return f, []string{rec}

	case DimensionTemplateConsistency:
		var missing []string
		var recs []string
		if m[MetricGreeting] == 0 {
			missing = append(missing, "greeting")
			rec := "Open with a personal greeting."
			if len(p.Greetings) > 0 {
				rec = fmt.Sprintf("Open with a personal greeting such as %q.", humanizePattern(p.Greetings[0].Source))
			}
			recs = append(recs, rec)
		}
		if m[MetricSignature] == 0 {
			missing = append(missing, "signature")
			rec := "Sign off with your name."
			if len(p.Signatures) > 0 {
				rec = fmt.Sprintf("Sign off with a signature such as %q.", humanizePattern(p.Signatures[0].Source))
			}
			recs = append(recs, rec)
		}
		if m[MetricClosing] == 0 {
			missing = append(missing, "closing")
			rec := "End with a standard closing line."
			if len(p.Closings) > 0 {
				rec = fmt.Sprintf("End with a standard closing such as %q.", humanizePattern(p.Closings[0].Source))
			}
			recs = append(recs, rec)
		}
		if m[MetricFormatting] == 0 {
			missing = append(missing, "formatting")
			recs = append(recs, "Structure the reply with paragraph breaks, bullets or numbered steps.")
		}
		f := fmt.Sprintf("Template consistency: %d of %d elements present (missing: %s).",
			int(m[MetricCriteriaMatched]), templateCriteria, strings.Join(missing, ", "))
		return f, recs

	case DimensionResponseTime:
		f := fmt.Sprintf("Response time: first response after %.0f minutes (%s).",
			m[MetricResponseTimeMins], r.Details.Labels[LabelThresholdBucket])
		rec := "Respond sooner."
		if len(cfg.ResponseBuckets) > 0 {
			rec = fmt.Sprintf("Aim to send the first response within %g minutes.", cfg.ResponseBuckets[0].MaxMinutes)
		}
		return f, []string{rec}
	}
	return fmt.Sprintf("%s: score %.2f below target.", r.Name.Title(), r.Score), nil
}

// missingPhrases returns up to maxExamples phrases from list absent in body.
func missingPhrases(body string, list []string) []string {
	lower := normalizeText(body)
	out := make([]string, 0, maxExamples)
	for _, ph := range list {
		if len(out) == maxExamples {
			break
		}
		if !strings.Contains(lower, ph) {
			out = append(out, ph)
		}
	}
	return out
}

func quoteList(items []string) string {
	q := make([]string, len(items))
	for i, it := range items {
		q[i] = fmt.Sprintf("%q", it)
	}
	return strings.Join(q, ", ")
}

var (
	flagsRe       = regexp.MustCompile(`^\(\?[a-z]+\)`)
	alternationRe = regexp.MustCompile(`\(\?:([^|)]*)[^)]*\)`)
	spaceClassRe  = regexp.MustCompile(`\\s[+*]?`)
	apostropheRe  = regexp.MustCompile(`\[['’]+\]\??`)
)

// humanizePattern turns a simple regex template into an example sentence.
func humanizePattern(src string) string {
	s := flagsRe.ReplaceAllString(src, "")
	s = alternationRe.ReplaceAllString(s, "$1")
	s = apostropheRe.ReplaceAllString(s, "'")
	s = spaceClassRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer(`\b`, "", `\w+`, "<name>", `,?`, ",", `?`, "").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return src
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
