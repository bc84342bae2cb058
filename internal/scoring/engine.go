package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/godilite/email-qc/internal/patterns"
	"github.com/godilite/email-qc/internal/sentiment"
	"github.com/godilite/email-qc/internal/textcheck"
)

type engineOptions struct {
	weights     Weights
	patternSet  patterns.PatternSet
	cfg         Config
	checker     textcheck.Checker
	analyzer    sentiment.Analyzer
	checkerSet  bool
	analyzerSet bool
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*engineOptions)

func WithWeights(w Weights) Option {
	return func(o *engineOptions) { o.weights = w.Clone() }
}

func WithPatterns(p patterns.PatternSet) Option {
	return func(o *engineOptions) { o.patternSet = p }
}

func WithConfig(cfg Config) Option {
	return func(o *engineOptions) { o.cfg = cfg }
}

// WithChecker injects the spelling/grammar backend. Passing nil leaves the
// grammar dimension permanently indeterminate.
func WithChecker(c textcheck.Checker) Option {
	return func(o *engineOptions) {
		o.checker = c
		o.checkerSet = true
	}
}

// WithAnalyzer injects the sentiment backend. Passing nil leaves the tone
// dimension permanently indeterminate.
func WithAnalyzer(a sentiment.Analyzer) Option {
	return func(o *engineOptions) {
		o.analyzer = a
		o.analyzerSet = true
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// Engine scores emails. Its weights, patterns and backends are fixed at
// construction, so one Engine may score many emails concurrently.
type Engine struct {
	weights  Weights
	patterns *patterns.Compiled
	cfg      Config
	scorers  []Scorer
	checker  textcheck.Checker
	analyzer sentiment.Analyzer
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine validates configuration and initialises the analysis backends.
// Invalid weights, config or patterns yield a *ConfigurationError. A backend
// that fails to load does not fail construction; its dimension is reported
// indeterminate on every call.
func NewEngine(opts ...Option) (*Engine, error) {
	o := &engineOptions{
		weights:    DefaultWeights(),
		patternSet: patterns.Default(),
		cfg:        DefaultConfig(),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	logger := o.logger.Named("scoring-engine")

	if err := o.weights.Validate(); err != nil {
		return nil, err
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	compiled, err := patterns.Compile(o.patternSet)
	if err != nil {
		return nil, configErr("patterns", "invalid pattern library", err)
	}

	if !o.checkerSet {
		rc, err := textcheck.NewRuleChecker()
		if err != nil {
			logger.Warn("grammar checker unavailable", zap.Error(err))
		} else {
			o.checker = rc
		}
	}
	if !o.analyzerSet {
		o.analyzer = sentiment.NewVaderAnalyzer()
	}

	e := &Engine{
		weights:  o.weights,
		patterns: compiled,
		cfg:      o.cfg,
		checker:  o.checker,
		analyzer: o.analyzer,
		logger:   logger,
		now:      o.now,
	}
	e.scorers = []Scorer{
		NewGrammarScorer(e.checker, e.cfg),
		NewToneScorer(e.analyzer, e.cfg),
		NewEmpathyScorer(e.cfg),
		NewTemplateScorer(),
		NewResponseTimeScorer(e.cfg),
	}

	logger.Info("scoring engine initialized",
		zap.String("patterns_version", compiled.Version),
		zap.Bool("grammar_backend", e.checker != nil),
		zap.Bool("sentiment_backend", e.analyzer != nil),
		zap.Bool("parallel", e.cfg.Parallel))
	return e, nil
}

// Weights returns a copy of the engine weights.
func (e *Engine) Weights() Weights { return e.weights.Clone() }

// Patterns returns the compiled Pattern Library.
func (e *Engine) Patterns() *patterns.Compiled { return e.patterns }

// Config returns the engine parameters.
func (e *Engine) Config() Config { return e.cfg }

// ScoreEmail scores sample with the engine's weights and patterns.
func (e *Engine) ScoreEmail(ctx context.Context, sample EmailSample) (QCResult, error) {
	return e.ScoreWith(ctx, sample, e.weights, e.patterns)
}

// ScoreWith scores sample with explicit weights and patterns; the engine
// supplies only its backends and parameters. Text content never causes an
// error: the only failures are invalid weights, nil patterns or a context
// that is already done. Once scoring starts it runs to completion, so a
// deadline expiring midway cannot turn a sub-score indeterminate.
func (e *Engine) ScoreWith(ctx context.Context, sample EmailSample, weights Weights, p *patterns.Compiled) (QCResult, error) {
	if err := weights.Validate(); err != nil {
		return QCResult{}, err
	}
	if p == nil {
		return QCResult{}, configErr("patterns", "nil pattern library", nil)
	}
	if err := ctx.Err(); err != nil {
		return QCResult{}, err
	}

	analysis := sample
	analysis.Body = sanitize(sample.Body, e.cfg.MaxBodyRunes)

	results := e.evaluate(context.WithoutCancel(ctx), analysis, p)
	ts := e.now().UTC().Truncate(time.Microsecond)
	res := Aggregate(sample, results, weights, p, e.cfg, ts)

	if e.logger.Core().Enabled(zap.DebugLevel) {
		var skipped []string
		for _, r := range res.SubScores {
			if r.Indeterminate {
				skipped = append(skipped, string(r.Name))
			}
		}
		e.logger.Debug("email scored",
			zap.Int64("ticket_id", sample.TicketID),
			zap.Int64("article_id", sample.ArticleID),
			zap.Int64("agent_id", sample.AgentID),
			zap.Float64("total_score", res.TotalScore),
			zap.Strings("indeterminate", skipped))
	}
	return res, nil
}

func (e *Engine) evaluate(ctx context.Context, sample EmailSample, p *patterns.Compiled) []SubScoreResult {
	results := make([]SubScoreResult, len(e.scorers))
	if !e.cfg.Parallel {
		for i, s := range e.scorers {
			results[i] = e.safeEvaluate(ctx, s, sample, p)
		}
		return results
	}

	var g errgroup.Group
	for i, s := range e.scorers {
		g.Go(func() error {
			results[i] = e.safeEvaluate(ctx, s, sample, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// safeEvaluate turns a panicking scorer into an indeterminate result.
func (e *Engine) safeEvaluate(ctx context.Context, s Scorer, sample EmailSample, p *patterns.Compiled) (res SubScoreResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sub-scorer panicked",
				zap.String("dimension", string(s.Name())),
				zap.Any("panic", r))
			res = indeterminate(s.Name(), fmt.Errorf("%w: %s panicked: %v", ErrBackendUnavailable, s.Name(), r))
		}
	}()

	res = s.Evaluate(ctx, sample, p)
	if res.Indeterminate {
		e.logger.Warn("sub-score indeterminate",
			zap.String("dimension", string(s.Name())),
			zap.String("reason", res.Details.Labels[LabelBackendError]))
	}
	return res
}

// Close releases the analysis backends.
func (e *Engine) Close() error {
	var errs []error
	if e.checker != nil {
		errs = append(errs, e.checker.Close())
	}
	if e.analyzer != nil {
		errs = append(errs, e.analyzer.Close())
	}
	return errors.Join(errs...)
}

// sanitize replaces invalid UTF-8 and bounds the text handed to analysers.
func sanitize(body string, maxRunes int) string {
	if !utf8.ValidString(body) {
		body = strings.ToValidUTF8(body, "�")
	}
	if utf8.RuneCountInString(body) <= maxRunes {
		return body
	}
	n := 0
	for i := range body {
		if n == maxRunes {
			return body[:i]
		}
		n++
	}
	return body
}
