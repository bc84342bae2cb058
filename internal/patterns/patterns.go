// Package patterns holds the Pattern Library: the static regular expressions
// and phrase lists the scorers use to detect structure and wording in a reply.
//
// A PatternSet is plain data. Compile turns it into the read-only form the
// scorers share; nothing in this package mutates a set after it is built.
package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Category names, used as keys in configuration sources.
const (
	CategoryGreetings  = "greetings"
	CategorySignatures = "signatures"
	CategoryClosings   = "closings"
	CategoryFormatting = "formatting"
	CategoryEmpathy    = "empathy"
	CategoryPositive   = "positive"
	CategoryNegative   = "negative"
)

// Categories lists every category in a stable order.
var Categories = []string{
	CategoryGreetings,
	CategorySignatures,
	CategoryClosings,
	CategoryFormatting,
	CategoryEmpathy,
	CategoryPositive,
	CategoryNegative,
}

// requiredCategories have no defined fallback when empty. The tone lists may be
// empty: the tone scorer then applies no phrase adjustment.
var requiredCategories = map[string]bool{
	CategoryGreetings:  true,
	CategorySignatures: true,
	CategoryClosings:   true,
	CategoryFormatting: true,
	CategoryEmpathy:    true,
}

var (
	ErrEmptyCategory   = errors.New("empty pattern category")
	ErrInvalidPattern  = errors.New("invalid pattern")
	ErrUnknownCategory = errors.New("unknown pattern category")
)

// PatternSet is the versioned, format-agnostic Pattern Library.
// Regex categories keep their order; the first matching pattern is reported.
type PatternSet struct {
	Version    string   `yaml:"version"`
	Greetings  []string `yaml:"greetings"`
	Signatures []string `yaml:"signatures"`
	Closings   []string `yaml:"closings"`
	Formatting []string `yaml:"formatting"`
	Empathy    []string `yaml:"empathy"`
	Positive   []string `yaml:"positive"`
	Negative   []string `yaml:"negative"`
}

// Category returns the entries of a named category.
func (p PatternSet) Category(name string) ([]string, error) {
	switch name {
	case CategoryGreetings:
		return p.Greetings, nil
	case CategorySignatures:
		return p.Signatures, nil
	case CategoryClosings:
		return p.Closings, nil
	case CategoryFormatting:
		return p.Formatting, nil
	case CategoryEmpathy:
		return p.Empathy, nil
	case CategoryPositive:
		return p.Positive, nil
	case CategoryNegative:
		return p.Negative, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// ToMap returns the set as a category name → entries mapping.
func (p PatternSet) ToMap() map[string][]string {
	out := make(map[string][]string, len(Categories))
	for _, name := range Categories {
		entries, _ := p.Category(name)
		out[name] = append([]string(nil), entries...)
	}
	return out
}

// FromMap builds a PatternSet from a category name → entries mapping.
// Missing categories stay empty; unknown keys are rejected.
func FromMap(version string, m map[string][]string) (PatternSet, error) {
	p := PatternSet{Version: version}
	for name, entries := range m {
		cp := append([]string(nil), entries...)
		switch name {
		case CategoryGreetings:
			p.Greetings = cp
		case CategorySignatures:
			p.Signatures = cp
		case CategoryClosings:
			p.Closings = cp
		case CategoryFormatting:
			p.Formatting = cp
		case CategoryEmpathy:
			p.Empathy = cp
		case CategoryPositive:
			p.Positive = cp
		case CategoryNegative:
			p.Negative = cp
		default:
			return PatternSet{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		}
	}
	return p, nil
}

// Pattern is a compiled regex entry together with its source text.
type Pattern struct {
	Source string
	Re     *regexp.Regexp
}

// Compiled is the immutable, shareable form of a PatternSet.
type Compiled struct {
	Version    string
	Greetings  []Pattern
	Signatures []Pattern
	Closings   []Pattern
	Formatting []Pattern

	// Phrase lists are lower-cased and deduplicated, order preserved.
	Empathy  []string
	Positive []string
	Negative []string
}

// Compile validates a PatternSet and compiles its regular expressions.
func Compile(p PatternSet) (*Compiled, error) {
	for _, name := range Categories {
		entries, _ := p.Category(name)
		if requiredCategories[name] && len(nonBlank(entries)) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyCategory, name)
		}
	}

	c := &Compiled{Version: p.Version}
	var err error
	if c.Greetings, err = compileAll(CategoryGreetings, p.Greetings); err != nil {
		return nil, err
	}
	if c.Signatures, err = compileAll(CategorySignatures, p.Signatures); err != nil {
		return nil, err
	}
	if c.Closings, err = compileAll(CategoryClosings, p.Closings); err != nil {
		return nil, err
	}
	if c.Formatting, err = compileAll(CategoryFormatting, p.Formatting); err != nil {
		return nil, err
	}
	c.Empathy = normalizePhrases(p.Empathy)
	c.Positive = normalizePhrases(p.Positive)
	c.Negative = normalizePhrases(p.Negative)
	return c, nil
}

// MustCompile is Compile for sets known to be valid, such as Default().
func MustCompile(p PatternSet) *Compiled {
	c, err := Compile(p)
	if err != nil {
		panic(err)
	}
	return c
}

// FirstMatch returns the first pattern matching text.
func FirstMatch(list []Pattern, text string) (Pattern, bool) {
	for _, pat := range list {
		if pat.Re.MatchString(text) {
			return pat, true
		}
	}
	return Pattern{}, false
}

func compileAll(category string, sources []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(sources))
	for _, src := range nonBlank(sources) {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidPattern, category, src, err)
		}
		out = append(out, Pattern{Source: src, Re: re})
	}
	return out, nil
}

// normalizePhrases lower-cases phrases and folds typographic apostrophes, the
// same normalisation the scorers apply to email bodies.
func normalizePhrases(phrases []string) []string {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, ph := range nonBlank(phrases) {
		ph = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(ph)), "’", "'")
		if seen[ph] {
			continue
		}
		seen[ph] = true
		out = append(out, ph)
	}
	return out
}

func nonBlank(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out
}
