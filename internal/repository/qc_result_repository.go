package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
)

var (
	ErrAgentNotFound  = errors.New("agent not found")
	ErrResultNotFound = errors.New("result not found")
)

// QCResultRepository is the append-only Result Store.
type QCResultRepository struct {
	db *sql.DB
}

func NewQCResultRepository(db *sql.DB) *QCResultRepository {
	return &QCResultRepository{db: db}
}

var (
	insertResultQuery = buildInsertResultQuery()
	insertDetailQuery = buildInsertDetailQuery()
	selectResultCols  = "id, ticket_id, article_id, agent_id, created_at, email_body, total_score, feedback, recommendations, pattern_version, details_json"
)

func buildInsertResultQuery() string {
	cols := []string{"ticket_id", "article_id", "agent_id", "created_at", "email_body"}
	for _, c := range scoreColumns {
		cols = append(cols, c.column)
	}
	cols = append(cols, "total_score", "feedback", "recommendations", "pattern_version", "details_json")
	return fmt.Sprintf("INSERT INTO qc_results (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders(len(cols)))
}

func buildInsertDetailQuery() string {
	cols := []string{"result_id"}
	for _, c := range detailColumns {
		cols = append(cols, c.metric)
	}
	return fmt.Sprintf("INSERT INTO qc_details (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders(len(cols)))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Save writes the result row, then its detail row. The two inserts are not
// transactional: when the detail insert fails the result id is still returned
// with the error, and the missing row can be rebuilt later from details_json.
func (s *QCResultRepository) Save(ctx context.Context, res scoring.QCResult) (int64, error) {
	detailsJSON, err := json.Marshal(res.SubScores)
	if err != nil {
		return 0, fmt.Errorf("encode sub-scores: %w", err)
	}

	args := []any{res.TicketID, res.ArticleID, res.AgentID, formatTime(res.Timestamp), res.EmailBody}
	for _, c := range scoreColumns {
		args = append(args, scoreArg(res.SubScores, c.dim))
	}
	args = append(args, res.TotalScore, res.Feedback, res.Recommendations, res.PatternVersion, string(detailsJSON))

	r, err := s.db.ExecContext(ctx, insertResultQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("insert qc_results: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert qc_results: %w", err)
	}

	if err := s.RestoreDetail(ctx, id, res.SubScores); err != nil {
		return id, err
	}
	return id, nil
}

// RestoreDetail inserts the detail row for resultID.
func (s *QCResultRepository) RestoreDetail(ctx context.Context, resultID int64, subScores []scoring.SubScoreResult) error {
	args := []any{resultID}
	for _, c := range detailColumns {
		args = append(args, metricArg(subScores, c.dim, c.metric))
	}
	if _, err := s.db.ExecContext(ctx, insertDetailQuery, args...); err != nil {
		return fmt.Errorf("insert qc_details: %w", err)
	}
	return nil
}

func findSubScore(subScores []scoring.SubScoreResult, d scoring.Dimension) (scoring.SubScoreResult, bool) {
	for _, s := range subScores {
		if s.Name == d {
			return s, true
		}
	}
	return scoring.SubScoreResult{}, false
}

func scoreArg(subScores []scoring.SubScoreResult, d scoring.Dimension) any {
	s, ok := findSubScore(subScores, d)
	if !ok || s.Indeterminate {
		return nil
	}
	return s.Score
}

func metricArg(subScores []scoring.SubScoreResult, d scoring.Dimension, metric string) any {
	s, ok := findSubScore(subScores, d)
	if !ok || s.Indeterminate {
		return nil
	}
	v, ok := s.Details.Metric(metric)
	if !ok {
		return nil
	}
	return v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (models.StoredResult, error) {
	var (
		out         models.StoredResult
		createdAt   string
		detailsJSON string
	)
	r := &out.Result
	err := row.Scan(&out.ID, &r.TicketID, &r.ArticleID, &r.AgentID, &createdAt, &r.EmailBody,
		&r.TotalScore, &r.Feedback, &r.Recommendations, &r.PatternVersion, &detailsJSON)
	if err != nil {
		return out, err
	}
	if r.Timestamp, err = parseTime(createdAt); err != nil {
		return out, fmt.Errorf("parse created_at of result %d: %w", out.ID, err)
	}
	if err := json.Unmarshal([]byte(detailsJSON), &r.SubScores); err != nil {
		return out, fmt.Errorf("decode details of result %d: %w", out.ID, err)
	}
	return out, nil
}

// GetResult reads back a stored result.
func (s *QCResultRepository) GetResult(ctx context.Context, id int64) (scoring.QCResult, error) {
	query := "SELECT " + selectResultCols + " FROM qc_results WHERE id = ?"
	stored, err := scanResult(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scoring.QCResult{}, fmt.Errorf("%w: %d", ErrResultNotFound, id)
		}
		return scoring.QCResult{}, fmt.Errorf("query GetResult: %w", err)
	}
	return stored.Result, nil
}

// ListByAgent returns an agent's most recent results, newest first. A
// non-positive limit returns all of them.
func (s *QCResultRepository) ListByAgent(ctx context.Context, agentID int64, limit int) ([]models.StoredResult, error) {
	query := "SELECT " + selectResultCols + " FROM qc_results WHERE agent_id = ? ORDER BY created_at DESC, id DESC LIMIT ?"
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListByAgent: %w", err)
	}
	defer rows.Close()

	var results []models.StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListByAgent row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListByAgent: %w", err)
	}
	return results, nil
}

// GetDetail reads the detail row of a result.
func (s *QCResultRepository) GetDetail(ctx context.Context, resultID int64) (models.QCDetail, error) {
	cols := make([]string, len(detailColumns))
	for i, c := range detailColumns {
		cols[i] = c.metric
	}
	query := fmt.Sprintf("SELECT %s FROM qc_details WHERE result_id = ?", strings.Join(cols, ", "))

	values := make([]sql.NullFloat64, len(detailColumns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.db.QueryRowContext(ctx, query, resultID).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QCDetail{}, fmt.Errorf("%w: detail for %d", ErrResultNotFound, resultID)
		}
		return models.QCDetail{}, fmt.Errorf("query GetDetail: %w", err)
	}

	out := models.QCDetail{ResultID: resultID, Values: make(map[string]float64)}
	for i, v := range values {
		if v.Valid {
			out.Values[detailColumns[i].metric] = v.Float64
		}
	}
	return out, nil
}

// GetAgent returns ErrAgentNotFound when the agent has not been seen yet.
func (s *QCResultRepository) GetAgent(ctx context.Context, id int64) (scoring.Agent, error) {
	const query = `SELECT id, name, email FROM agents WHERE id = ?`

	var a scoring.Agent
	err := s.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scoring.Agent{}, fmt.Errorf("%w: %d", ErrAgentNotFound, id)
		}
		return scoring.Agent{}, fmt.Errorf("query GetAgent: %w", err)
	}
	return a, nil
}

// UpsertAgent inserts the agent or refreshes its name and email.
func (s *QCResultRepository) UpsertAgent(ctx context.Context, a scoring.Agent) error {
	const query = `
		INSERT INTO agents (id, name, email, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, a.ID, a.Name, a.Email, formatTime(time.Now())); err != nil {
		return fmt.Errorf("upsert agent %d: %w", a.ID, err)
	}
	return nil
}

// GetOverallScore averages total scores in [start, end], computed in SQL.
func (s *QCResultRepository) GetOverallScore(ctx context.Context, start, end time.Time) (models.OverallScoreResult, error) {
	const query = `
		SELECT
			COALESCE(AVG(total_score), 0) AS score,
			COUNT(id) AS count
		FROM qc_results
		WHERE created_at >= ? AND created_at <= ?
	`

	var result models.OverallScoreResult
	err := s.db.QueryRowContext(ctx, query, formatTime(start), formatTime(end)).Scan(&result.Score, &result.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OverallScoreResult{}, nil
		}
		return models.OverallScoreResult{}, fmt.Errorf("query GetOverallScore: %w", err)
	}
	return result, nil
}

// dimensionScoresCTE unpivots the score columns of results in [start, end]
// into (dimension, score) rows, skipping indeterminate (NULL) scores.
func dimensionScoresCTE() string {
	parts := make([]string, len(scoreColumns))
	for i, c := range scoreColumns {
		parts[i] = fmt.Sprintf("SELECT '%s' AS dimension, id, agent_id, created_at, %s AS score FROM base WHERE %s IS NOT NULL",
			c.dim, c.column, c.column)
	}
	return `
		WITH base AS (
			SELECT * FROM qc_results WHERE created_at >= ? AND created_at <= ?
		),
		scores AS (
			` + strings.Join(parts, "\n\t\t\tUNION ALL ") + `
		)`
}

// GetSubScoresInPeriod averages each dimension per day, or per week when
// isWeekly is set. Scores are scaled to 0..100.
func (s *QCResultRepository) GetSubScoresInPeriod(ctx context.Context, start, end time.Time, isWeekly bool) ([]models.AggregatedDimensionData, error) {
	periodFormat := "%Y-%m-%d"
	if isWeekly {
		periodFormat = "%Y-W%W"
	}

	query := dimensionScoresCTE() + `
		SELECT
			dimension,
			strftime(?, created_at) AS period,
			AVG(score) * 100.0 AS period_score,
			SUM(score) * 100.0 AS total_score,
			COUNT(id) AS result_count
		FROM scores
		GROUP BY dimension, period
		ORDER BY dimension, period
	`

	rows, err := s.db.QueryContext(ctx, query, formatTime(start), formatTime(end), periodFormat)
	if err != nil {
		return nil, fmt.Errorf("query GetSubScoresInPeriod: %w", err)
	}
	defer rows.Close()

	var results []models.AggregatedDimensionData
	for rows.Next() {
		var r models.AggregatedDimensionData
		if err := rows.Scan(&r.Dimension, &r.Period, &r.PeriodScore, &r.TotalScore, &r.ResultCount); err != nil {
			return nil, fmt.Errorf("scan GetSubScoresInPeriod row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate GetSubScoresInPeriod: %w", err)
	}
	return results, nil
}

// DimensionTotal is the pseudo-dimension GetScoresByAgent uses for the
// average total score.
const DimensionTotal = "total"

// GetScoresByAgent averages each dimension and the total score per agent.
// Dimension averages are scaled to 0..100 like the total.
func (s *QCResultRepository) GetScoresByAgent(ctx context.Context, start, end time.Time) ([]models.AgentDimensionScore, error) {
	query := dimensionScoresCTE() + `,
		combined AS (
			SELECT agent_id, dimension, score * 100.0 AS score FROM scores
			UNION ALL
			SELECT agent_id, '` + DimensionTotal + `' AS dimension, total_score AS score FROM base
		)
		SELECT
			c.agent_id,
			COALESCE(a.name, '') AS agent_name,
			c.dimension,
			AVG(c.score) AS score
		FROM combined AS c
		LEFT JOIN agents AS a ON a.id = c.agent_id
		GROUP BY c.agent_id, c.dimension
		ORDER BY c.agent_id, c.dimension
	`

	rows, err := s.db.QueryContext(ctx, query, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query GetScoresByAgent: %w", err)
	}
	defer rows.Close()

	var results []models.AgentDimensionScore
	for rows.Next() {
		var r models.AgentDimensionScore
		if err := rows.Scan(&r.AgentID, &r.AgentName, &r.Dimension, &r.Score); err != nil {
			return nil, fmt.Errorf("scan GetScoresByAgent row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate GetScoresByAgent: %w", err)
	}
	return results, nil
}

// FindOrphanedResults returns result rows that have no detail row, oldest
// first. A non-positive limit returns all of them.
func (s *QCResultRepository) FindOrphanedResults(ctx context.Context, limit int) ([]models.OrphanedResult, error) {
	const query = `
		SELECT r.id, r.details_json
		FROM qc_results AS r
		LEFT JOIN qc_details AS d ON d.result_id = r.id
		WHERE d.id IS NULL
		ORDER BY r.id
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query FindOrphanedResults: %w", err)
	}
	defer rows.Close()

	var results []models.OrphanedResult
	for rows.Next() {
		var (
			o           models.OrphanedResult
			detailsJSON string
		)
		if err := rows.Scan(&o.ResultID, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scan FindOrphanedResults row: %w", err)
		}
		if err := json.Unmarshal([]byte(detailsJSON), &o.SubScores); err != nil {
			return nil, fmt.Errorf("decode details of result %d: %w", o.ResultID, err)
		}
		results = append(results, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate FindOrphanedResults: %w", err)
	}
	return results, nil
}

// DeleteDanglingDetails removes detail rows whose result no longer exists.
func (s *QCResultRepository) DeleteDanglingDetails(ctx context.Context) (int64, error) {
	const query = `DELETE FROM qc_details WHERE result_id NOT IN (SELECT id FROM qc_results)`

	r, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete dangling details: %w", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete dangling details: %w", err)
	}
	return n, nil
}
