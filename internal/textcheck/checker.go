// Package textcheck provides the spelling and grammar checking backend used
// by the grammar scorer.
package textcheck

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/golangci/misspell"
	"gopkg.in/yaml.v3"
)

// Category classifies an issue.
type Category string

const (
	CategorySpelling Category = "spelling"
	CategoryGrammar  Category = "grammar"
	CategoryStyle    Category = "style"
)

// ErrClosed is returned by a checker used after Close.
var ErrClosed = errors.New("checker closed")

// Issue is one flagged problem in the checked text. Offset and Length are
// byte positions.
type Issue struct {
	Rule         string
	Category     Category
	Message      string
	Offset       int
	Length       int
	Replacements []string
}

// IsSpelling reports whether the issue counts as a spelling error. Grammar and
// style issues are counted together.
func (i Issue) IsSpelling() bool {
	return i.Category == CategorySpelling
}

// Checker flags spelling and grammar issues in text.
type Checker interface {
	Check(ctx context.Context, text string) ([]Issue, error)
	Close() error
}

//go:embed rules.yaml
var builtinRules []byte

type ruleFile struct {
	Version      string            `yaml:"version"`
	Misspellings map[string]string `yaml:"misspellings"`
	Grammar      []ruleSpec        `yaml:"grammar"`
}

type ruleSpec struct {
	ID         string   `yaml:"id"`
	Category   Category `yaml:"category"`
	Pattern    string   `yaml:"pattern"`
	Message    string   `yaml:"message"`
	Exceptions []string `yaml:"exceptions"`
}

type rule struct {
	ruleSpec
	re *regexp.Regexp
}

var wordRe = regexp.MustCompile(`[A-Za-z]+(?:'[A-Za-z]+)?`)

// RuleChecker is an in-process checker. Spelling uses the misspell common
// misspellings list, extended by the rule file's own entries; grammar uses the
// rule file's regular expressions. It is safe for concurrent use.
type RuleChecker struct {
	version string
	speller *misspell.Replacer
	rules   []rule
	closed  atomic.Bool
}

// NewRuleChecker loads the built-in rule set.
func NewRuleChecker() (*RuleChecker, error) {
	return NewRuleCheckerFromYAML(builtinRules)
}

// NewRuleCheckerFromYAML loads a rule set in the rules.yaml format.
func NewRuleCheckerFromYAML(data []byte) (*RuleChecker, error) {
	var rf ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("decode checker rules: %w", err)
	}

	c := &RuleChecker{
		version: rf.Version,
		speller: misspell.New(),
		rules:   make([]rule, 0, len(rf.Grammar)),
	}
	if len(rf.Misspellings) > 0 {
		extra := make([]string, 0, 2*len(rf.Misspellings))
		for k, v := range rf.Misspellings {
			extra = append(extra, strings.ToLower(k), v)
		}
		c.speller.AddRuleList(extra)
		c.speller.Compile()
	}
	for _, spec := range rf.Grammar {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule %s: %w", spec.ID, err)
		}
		if spec.Category == "" {
			spec.Category = CategoryGrammar
		}
		c.rules = append(c.rules, rule{ruleSpec: spec, re: re})
	}
	return c, nil
}

// Version returns the rule set version.
func (c *RuleChecker) Version() string {
	return c.version
}

// Check returns the issues found in text, ordered by offset.
func (c *RuleChecker) Check(ctx context.Context, text string) ([]Issue, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	issues := c.spelling(text)
	issues = append(issues, repeatedWords(text)...)
	for _, r := range c.rules {
		issues = append(issues, r.apply(text)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Offset < issues[j].Offset
	})
	return issues, nil
}

// Close marks the checker unusable.
func (c *RuleChecker) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *RuleChecker) spelling(text string) []Issue {
	_, diffs := c.speller.Replace(text)
	if len(diffs) == 0 {
		return nil
	}

	// Diff positions are per line; convert them to byte offsets in text.
	lineStart := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}

	issues := make([]Issue, 0, len(diffs))
	for _, d := range diffs {
		if d.Line < 1 || d.Line > len(lineStart) {
			continue
		}
		issues = append(issues, Issue{
			Rule:         "MISSPELLING",
			Category:     CategorySpelling,
			Message:      fmt.Sprintf("Possible spelling mistake: %q.", d.Original),
			Offset:       lineStart[d.Line-1] + d.Column,
			Length:       len(d.Original),
			Replacements: []string{d.Corrected},
		})
	}
	return issues
}

func repeatedWords(text string) []Issue {
	var issues []Issue
	locs := wordRe.FindAllStringIndex(text, -1)
	for i := 1; i < len(locs); i++ {
		prev, cur := locs[i-1], locs[i]
		if strings.TrimSpace(text[prev[1]:cur[0]]) != "" {
			continue
		}
		if !strings.EqualFold(text[prev[0]:prev[1]], text[cur[0]:cur[1]]) {
			continue
		}
		issues = append(issues, Issue{
			Rule:         "WORD_REPEAT",
			Category:     CategoryGrammar,
			Message:      "Possible typo: you repeated a word.",
			Offset:       prev[0],
			Length:       cur[1] - prev[0],
			Replacements: []string{text[prev[0]:prev[1]]},
		})
	}
	return issues
}

func (r rule) apply(text string) []Issue {
	var issues []Issue
	for _, loc := range r.re.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if r.excepted(match) {
			continue
		}
		issues = append(issues, Issue{
			Rule:     r.ID,
			Category: r.Category,
			Message:  r.Message,
			Offset:   loc[0],
			Length:   loc[1] - loc[0],
		})
	}
	return issues
}

func (r rule) excepted(match string) bool {
	if len(r.Exceptions) == 0 {
		return false
	}
	fields := strings.Fields(strings.ToLower(match))
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	for _, prefix := range r.Exceptions {
		if strings.HasPrefix(last, prefix) {
			return true
		}
	}
	return false
}
