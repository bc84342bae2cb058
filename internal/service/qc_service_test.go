package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service/mocks"
)

func scoredResult(sample scoring.EmailSample) scoring.QCResult {
	return scoring.QCResult{
		TicketID:   sample.TicketID,
		ArticleID:  sample.ArticleID,
		AgentID:    sample.AgentID,
		EmailBody:  sample.Body,
		TotalScore: 72.5,
	}
}

// TestNewQCService tests the constructor
func TestNewQCService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockRepo := &mocks.MockQCResultRepository{}
		engine := &mocks.MockScorer{}

		service := NewQCService(engine, mockRepo, zap.NewNop())

		assert.NotNil(t, service)
		assert.Equal(t, mockRepo, service.storage)
		assert.Equal(t, engine, service.engine)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewQCService(&mocks.MockScorer{}, nil, zap.NewNop())
		})
	})

	t.Run("nil engine panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewQCService(nil, &mocks.MockQCResultRepository{}, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		service := NewQCService(&mocks.MockScorer{}, &mocks.MockQCResultRepository{}, nil)

		assert.NotNil(t, service.logger)
	})
}

func TestScoreAndStore(t *testing.T) {
	ctx := context.Background()
	sample := scoring.EmailSample{Body: "Hi", TicketID: 1, ArticleID: 2, AgentID: 3}
	scorer := &mocks.MockScorer{
		ScoreEmailFunc: func(ctx context.Context, s scoring.EmailSample) (scoring.QCResult, error) {
			return scoredResult(s), nil
		},
	}

	t.Run("stores the result", func(t *testing.T) {
		var saved scoring.QCResult
		mockRepo := &mocks.MockQCResultRepository{
			SaveFunc: func(ctx context.Context, res scoring.QCResult) (int64, error) {
				saved = res
				return 41, nil
			},
		}
		recorder := &mocks.MockRecorder{}

		service := NewQCService(scorer, mockRepo, zaptest.NewLogger(t), WithRecorder(recorder))
		res, id, err := service.ScoreAndStore(ctx, sample)

		require.NoError(t, err)
		assert.Equal(t, int64(41), id)
		assert.Equal(t, saved, res)
		assert.Len(t, recorder.Results, 1)
		assert.Zero(t, recorder.PersistenceFailures)
	})

	t.Run("store failure still returns the result", func(t *testing.T) {
		mockRepo := &mocks.MockQCResultRepository{
			SaveFunc: func(ctx context.Context, res scoring.QCResult) (int64, error) {
				return 0, errors.New("database is locked")
			},
		}
		recorder := &mocks.MockRecorder{}

		service := NewQCService(scorer, mockRepo, zap.NewNop(), WithRecorder(recorder))
		res, id, err := service.ScoreAndStore(ctx, sample)

		assert.ErrorIs(t, err, ErrPersistence)
		assert.Contains(t, err.Error(), "database is locked")
		assert.Equal(t, int64(0), id)
		assert.Equal(t, 72.5, res.TotalScore)
		assert.Equal(t, 1, recorder.PersistenceFailures)
		assert.Empty(t, recorder.Results)
	})

	t.Run("scoring failure is not a persistence error", func(t *testing.T) {
		failing := &mocks.MockScorer{
			ScoreEmailFunc: func(ctx context.Context, s scoring.EmailSample) (scoring.QCResult, error) {
				return scoring.QCResult{}, context.Canceled
			},
		}
		mockRepo := &mocks.MockQCResultRepository{}

		service := NewQCService(failing, mockRepo, zap.NewNop())
		_, _, err := service.ScoreAndStore(ctx, sample)

		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrPersistence)
	})

	t.Run("agent resolution failure does not block storage", func(t *testing.T) {
		store := &mocks.MockAgentStore{
			GetAgentFunc: func(ctx context.Context, id int64) (scoring.Agent, error) {
				return scoring.Agent{}, errors.New("agents table missing")
			},
		}
		resolver, err := NewAgentResolver(store, nil, 8, zap.NewNop())
		require.NoError(t, err)
		saved := false
		mockRepo := &mocks.MockQCResultRepository{
			SaveFunc: func(ctx context.Context, res scoring.QCResult) (int64, error) {
				saved = true
				return 1, nil
			},
		}

		service := NewQCService(scorer, mockRepo, zap.NewNop(), WithAgentResolver(resolver))
		_, _, err = service.ScoreAndStore(ctx, sample)

		assert.NoError(t, err)
		assert.True(t, saved)
	})
}

func TestGetResultAndHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("get result", func(t *testing.T) {
		mockRepo := &mocks.MockQCResultRepository{
			GetResultFunc: func(ctx context.Context, id int64) (scoring.QCResult, error) {
				return scoring.QCResult{TicketID: id}, nil
			},
		}

		res, err := newAnalyticsService(mockRepo).GetResult(ctx, 9)

		require.NoError(t, err)
		assert.Equal(t, int64(9), res.TicketID)
	})

	t.Run("missing result keeps the sentinel", func(t *testing.T) {
		mockRepo := &mocks.MockQCResultRepository{
			GetResultFunc: func(ctx context.Context, id int64) (scoring.QCResult, error) {
				return scoring.QCResult{}, repository.ErrResultNotFound
			},
		}

		_, err := newAnalyticsService(mockRepo).GetResult(ctx, 9)

		assert.ErrorIs(t, err, repository.ErrResultNotFound)
	})

	t.Run("empty history", func(t *testing.T) {
		mockRepo := &mocks.MockQCResultRepository{
			ListByAgentFunc: func(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error) {
				assert.Equal(t, int64(4), agentID)
				assert.Equal(t, 20, limit)
				return nil, nil
			},
		}

		_, err := newAnalyticsService(mockRepo).GetAgentHistory(ctx, 4, 20)

		assert.ErrorIs(t, err, ErrNoResults)
	})
}

// TestScoreAndStore_RoundTrip persists through the real sqlite store.
func TestScoreAndStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupRealDB(t)

	at := time.Date(2025, 10, 18, 14, 5, 6, 789123456, time.UTC)
	engine, err := scoring.NewEngine(scoring.WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	defer engine.Close()

	resolver, err := NewAgentResolver(repo, &mocks.MockAgentDirectory{
		LookupAgentFunc: func(ctx context.Context, id int64) (scoring.Agent, error) {
			return scoring.Agent{ID: id, Name: "Alice Doe", Email: "alice@example.com"}, nil
		},
	}, 8, zap.NewNop())
	require.NoError(t, err)

	svc := NewQCService(engine, repo, zap.NewNop(), WithAgentResolver(resolver))

	received := at.Add(-40 * time.Minute)
	sample := scoring.EmailSample{
		Body:            "Hi John, I understand this must be frustrating. Best regards, Alice",
		TicketID:        100,
		ArticleID:       1001,
		AgentID:         12,
		ReceivedAt:      &received,
		FirstResponseAt: &at,
	}

	res, id, err := svc.ScoreAndStore(ctx, sample)
	require.NoError(t, err)

	got, err := svc.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	agent, err := repo.GetAgent(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "Alice Doe", agent.Name)

	history, err := svc.GetAgentHistory(ctx, 12, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
}
