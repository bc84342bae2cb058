package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
)

const (
	dbTimeout = 1 * time.Second
)

var (
	// ErrPersistence wraps Result Store write failures. The scored result is
	// still returned alongside it.
	ErrPersistence    = errors.New("persistence failure")
	ErrNoResults      = errors.New("no results found")
	ErrStorageFailure = errors.New("storage failure")
)

// QCService scores emails, stores the results and serves history analytics.
type QCService struct {
	engine   Scorer
	storage  QCResultRepository
	agents   *AgentResolver
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a QCService.
type Option func(*QCService)

// WithAgentResolver enables lazy agent creation on first encounter.
func WithAgentResolver(r *AgentResolver) Option {
	return func(s *QCService) { s.agents = r }
}

func WithRecorder(r Recorder) Option {
	return func(s *QCService) { s.recorder = r }
}

// NewQCService creates a new QCService instance.
func NewQCService(engine Scorer, storage QCResultRepository, logger *zap.Logger, opts ...Option) *QCService {
	if engine == nil {
		panic("engine must not be nil")
	}
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &QCService{
		engine:  engine,
		storage: storage,
		logger:  logger.Named("qc-service"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreAndStore scores sample and appends the result to the Result Store.
// A store failure returns the computed result together with an error
// wrapping ErrPersistence; scoring itself already succeeded.
func (s *QCService) ScoreAndStore(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, int64, error) {
	began := s.now()
	res, err := s.engine.ScoreEmail(ctx, sample)
	if err != nil {
		return scoring.QCResult{}, 0, fmt.Errorf("score email: %w", err)
	}
	elapsed := s.now().Sub(began)

	if s.agents != nil {
		if _, err := s.agents.Resolve(ctx, sample.AgentID); err != nil {
			s.logger.Warn("failed to resolve agent",
				zap.Int64("agent_id", sample.AgentID),
				zap.Error(err))
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	id, err := s.storage.Save(dbCtx, res)
	if err != nil {
		if s.recorder != nil {
			s.recorder.ObservePersistenceFailure()
		}
		s.logger.Error("failed to persist qc result",
			zap.Int64("ticket_id", sample.TicketID),
			zap.Int64("article_id", sample.ArticleID),
			zap.Int64("result_id", id),
			zap.Error(err))
		return res, id, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if s.recorder != nil {
		s.recorder.ObserveResult(res, elapsed)
	}
	s.logger.Info("qc result stored",
		zap.Int64("result_id", id),
		zap.Int64("ticket_id", sample.TicketID),
		zap.Int64("article_id", sample.ArticleID),
		zap.Int64("agent_id", sample.AgentID),
		zap.Float64("total_score", res.TotalScore))
	return res, id, nil
}

// GetResult returns a stored result.
func (s *QCService) GetResult(ctx context.Context, id int64) (scoring.QCResult, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	res, err := s.storage.GetResult(dbCtx, id)
	if err != nil {
		return scoring.QCResult{}, fmt.Errorf("get result %d: %w", id, err)
	}
	return res, nil
}

// GetAgentHistory returns an agent's most recent results, newest first.
func (s *QCService) GetAgentHistory(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.ListByAgent(dbCtx, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoResults
	}
	return rows, nil
}
