package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	pb "github.com/godilite/email-qc/api/v1"
	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 500
)

type CacheKeyType string

const (
	cacheKeyOverallScore     CacheKeyType = "grpc:overall_quality_score"
	cacheKeyAgentScores      CacheKeyType = "grpc:scores_by_agent"
	cacheKeyPeriodChange     CacheKeyType = "grpc:period_over_period_score_change"
	cacheKeyAggregatedScores CacheKeyType = "grpc:aggregated_sub_scores"
)

type GRPCHandlers struct {
	pb.UnimplementedQualityControlServer
	qc       QCService
	cache    Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group
	cacheTTL time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(qc QCService, cache Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if qc == nil {
		panic("nil QCService provided to NewGRPCHandlers")
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandlers{
		qc:       qc,
		cache:    cache,
		logger:   logger.Named("grpc-handler"),
		cacheTTL: ttl,
	}
}

func (s *GRPCHandlers) parseAndValidate(req *structpb.Struct) (start, end time.Time, err error) {
	startAt, err := timeField(req, fieldStartDate)
	if err != nil {
		return
	}
	endAt, err := timeField(req, fieldEndDate)
	if err != nil {
		return
	}

	if startAt == nil || endAt == nil || startAt.IsZero() || endAt.IsZero() {
		err = status.Error(codes.InvalidArgument, "start and end dates are required")
		return
	}
	start, end = *startAt, *endAt

	if end.Before(start) {
		err = status.Error(codes.InvalidArgument, "end date must be after start date")
		return
	}

	return
}

func normalizeKey(prefix CacheKeyType, start, end time.Time) string {
	s := start.UTC().Truncate(24 * time.Hour).Format("2006-01-02")
	e := end.UTC().Truncate(24 * time.Hour).Format("2006-01-02")
	return fmt.Sprintf("%s:%s:%s", prefix, s, e)
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrNoResults):
		s.logger.Info("no results found", zap.String("op", op))
		return status.Error(codes.NotFound, "no results found for the given period")
	case errors.Is(err, repository.ErrResultNotFound):
		return status.Error(codes.NotFound, "result not found")
	case errors.Is(err, scoring.ErrConfiguration):
		s.logger.Error("scoring misconfigured", zap.String("op", op), zap.Error(err))
		return status.Error(codes.FailedPrecondition, "scoring engine misconfigured")
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

// ScoreEmail scores and stores one reply. A store failure still returns the
// scored result with stored=false.
func (s *GRPCHandlers) ScoreEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sample, err := parseSample(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	res, id, err := s.qc.ScoreAndStore(ctx, sample)
	stored := true
	if err != nil {
		if !errors.Is(err, service.ErrPersistence) {
			return nil, s.handleError(ctx, "ScoreEmail", err)
		}
		s.logger.Warn("returning unstored result", zap.Int64("article_id", sample.ArticleID), zap.Error(err))
		stored = false
	}

	out := resultToMap(id, res)
	out["stored"] = stored
	return toStruct(out)
}

func (s *GRPCHandlers) GetResult(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "result id must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	res, err := s.qc.GetResult(ctx, req.GetValue())
	if err != nil {
		return nil, s.handleError(ctx, "GetResult", err)
	}
	return toStruct(resultToMap(req.GetValue(), res))
}

func (s *GRPCHandlers) GetAgentHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	agentID, err := intField(req, fieldAgentID)
	if err != nil {
		return nil, err
	}
	if agentID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "agent_id is required")
	}
	limit, err := intField(req, fieldLimit)
	if err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	rows, err := s.qc.GetAgentHistory(ctx, agentID, int(limit))
	if err != nil {
		return nil, s.handleError(ctx, "GetAgentHistory", err)
	}
	return toStruct(historyToMap(rows))
}

func (s *GRPCHandlers) GetOverallQualityScore(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, end, err := s.parseAndValidate(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyOverallScore, start, end)

	score, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) (float64, error) {
		return s.qc.GetOverallScore(fetchCtx, start, end)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetOverallQualityScore", err)
	}

	return toStruct(map[string]any{"score": score})
}

func (s *GRPCHandlers) GetScoresByAgent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, end, err := s.parseAndValidate(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyAgentScores, start, end)

	scores, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) ([]service.AgentScores, error) {
		return s.qc.GetScoresByAgent(fetchCtx, start, end)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetScoresByAgent", err)
	}

	return toStruct(agentScoresToMap(scores))
}

func (s *GRPCHandlers) GetPeriodOverPeriodScoreChange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, end, err := s.parseAndValidate(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyPeriodChange, start, end)

	change, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) (service.PeriodChange, error) {
		return s.qc.GetPeriodOverPeriodScoreChange(fetchCtx, start, end)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetPeriodOverPeriodScoreChange", err)
	}

	return toStruct(map[string]any{
		"current_period_score":  change.CurrentPeriodScore,
		"previous_period_score": change.PreviousPeriodScore,
		"change_percentage":     change.ChangePercentage,
	})
}

func (s *GRPCHandlers) GetAggregatedSubScores(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, end, err := s.parseAndValidate(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyAggregatedScores, start, end)

	results, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) ([]service.AggregatedDimensionScores, error) {
		return s.qc.GetAggregatedSubScores(fetchCtx, start, end)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetAggregatedSubScores", err)
	}

	return toStruct(dimensionScoresToMap(results))
}

// Reconcile runs one store reconciliation pass.
func (s *GRPCHandlers) Reconcile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report, err := s.qc.Reconcile(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "Reconcile", err)
	}
	return toStruct(map[string]any{
		"orphaned":         float64(report.Orphaned),
		"restored":         float64(report.Restored),
		"failed":           float64(report.Failed),
		"dangling_removed": float64(report.DanglingRemoved),
	})
}
