package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/email-qc/internal/scoring"
)

// timeLayout is fixed width so text comparison orders timestamps correctly.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// scoreColumns maps each dimension to its score column on qc_results. A NULL
// score marks an indeterminate dimension.
var scoreColumns = []struct {
	dim    scoring.Dimension
	column string
}{
	{scoring.DimensionSpellingGrammar, "spelling_grammar_score"},
	{scoring.DimensionTone, "tone_score"},
	{scoring.DimensionEmpathy, "empathy_score"},
	{scoring.DimensionTemplateConsistency, "template_consistency_score"},
	{scoring.DimensionResponseTime, "response_time_score"},
}

// detailColumns are the qc_details columns; each is named after the metric it
// holds.
var detailColumns = []struct {
	dim    scoring.Dimension
	metric string
	typ    string
}{
	{scoring.DimensionSpellingGrammar, scoring.MetricSpellingErrors, "INTEGER"},
	{scoring.DimensionSpellingGrammar, scoring.MetricGrammarErrors, "INTEGER"},
	{scoring.DimensionSpellingGrammar, scoring.MetricReadabilityScore, "REAL"},
	{scoring.DimensionTone, scoring.MetricSentimentScore, "REAL"},
	{scoring.DimensionTone, scoring.MetricPositiveCount, "INTEGER"},
	{scoring.DimensionTone, scoring.MetricNegativeCount, "INTEGER"},
	{scoring.DimensionEmpathy, scoring.MetricEmpathyPhrasesCount, "INTEGER"},
	{scoring.DimensionTemplateConsistency, scoring.MetricGreeting, "INTEGER"},
	{scoring.DimensionTemplateConsistency, scoring.MetricSignature, "INTEGER"},
	{scoring.DimensionTemplateConsistency, scoring.MetricClosing, "INTEGER"},
	{scoring.DimensionTemplateConsistency, scoring.MetricFormatting, "INTEGER"},
	{scoring.DimensionResponseTime, scoring.MetricResponseTimeMins, "REAL"},
	{scoring.DimensionResponseTime, scoring.MetricIncompleteData, "INTEGER"},
}

func schema() []string {
	var scoreCols, detailCols strings.Builder
	for _, c := range scoreColumns {
		fmt.Fprintf(&scoreCols, "\t\t%s REAL,\n", c.column)
	}
	for _, c := range detailColumns {
		fmt.Fprintf(&detailCols, ",\n\t\t%s %s", c.metric, c.typ)
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	)`,
		`CREATE TABLE IF NOT EXISTS qc_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id INTEGER NOT NULL,
		article_id INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		email_body TEXT NOT NULL,
` + scoreCols.String() + `		total_score REAL NOT NULL,
		feedback TEXT NOT NULL,
		recommendations TEXT NOT NULL,
		pattern_version TEXT NOT NULL DEFAULT '',
		details_json TEXT NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_qc_results_created_at ON qc_results (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_qc_results_agent ON qc_results (agent_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS qc_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL UNIQUE` + detailCols.String() + `
	)`,
	}
}

// Migrate creates the Result Store tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
