// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

const createLedgerTableSQL = `
CREATE TABLE IF NOT EXISTS ai_usage (
    id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    route VARCHAR(255) NOT NULL,
    model VARCHAR(255) NOT NULL,
    input_tokens BIGINT NOT NULL DEFAULT 0,
    output_tokens BIGINT NOT NULL DEFAULT 0,
    cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id)
);

CREATE INDEX IF NOT EXISTS idx_ai_usage_user_time ON ai_usage(user_id, created_at);
`

// SQLLedger is the append-only AI usage ledger backed by a relational
// database. Rows are never updated or deleted.
type SQLLedger struct {
	db      *sql.DB
	dialect string
}

// NewSQLLedger creates the ledger and ensures its schema exists.
func NewSQLLedger(db *sql.DB, dialect string) (*SQLLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	l := &SQLLedger{db: db, dialect: dialect}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createLedgerTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create ai_usage table: %w", err)
	}
	return l, nil
}

// Append writes one event. The event ID and timestamp are assigned here
// when unset.
func (l *SQLLedger) Append(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO ai_usage (id, user_id, route, model, input_tokens, output_tokens, cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if l.dialect == "postgres" {
		query = `INSERT INTO ai_usage (id, user_id, route, model, input_tokens, output_tokens, cost_usd, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	}

	_, err := l.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Route, e.Model, e.InputTokens, e.OutputTokens, e.CostUSD, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}
	return nil
}

// classFilter returns the SQL predicate matching a cost class by model
// name. The mini tier matches any model containing "mini"; the gpt4
// tier matches the gpt-4.1 family prefix.
func classFilter(class plan.Class) (string, error) {
	switch class {
	case plan.ClassMini:
		return `LOWER(model) LIKE '%mini%'`, nil
	case plan.ClassGPT4:
		return `model LIKE 'gpt-4.1%'`, nil
	default:
		return "", fmt.Errorf("unknown ai class: %s", class)
	}
}

// CountInRange counts a user's events for one class in [start, end).
func (l *SQLLedger) CountInRange(ctx context.Context, userID string, class plan.Class, start, end time.Time) (int64, error) {
	filter, err := classFilter(class)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM ai_usage WHERE user_id = ? AND created_at >= ? AND created_at < ? AND %s`, filter)
	if l.dialect == "postgres" {
		query = fmt.Sprintf(
			`SELECT COUNT(*) FROM ai_usage WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 AND %s`, filter)
	}

	var count int64
	if err := l.db.QueryRowContext(ctx, query, userID, start.UTC(), end.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count usage events: %w", err)
	}
	return count, nil
}

// TodayTotals aggregates the user's activity for the current UTC day.
func (l *SQLLedger) TodayTotals(ctx context.Context, userID string, now time.Time) (DayTotals, error) {
	start, end := plan.PeriodDay.Bounds(now)

	query := `SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM ai_usage WHERE user_id = ? AND created_at >= ? AND created_at < ?`
	if l.dialect == "postgres" {
		query = `SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
			FROM ai_usage WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`
	}

	var t DayTotals
	err := l.db.QueryRowContext(ctx, query, userID, start, end).
		Scan(&t.Calls, &t.InputTokens, &t.OutputTokens, &t.CostUSD)
	if err != nil {
		return DayTotals{}, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	return t, nil
}

// dayExpr returns the dialect expression formatting created_at as a
// UTC "YYYY-MM-DD" string.
func (l *SQLLedger) dayExpr() string {
	switch l.dialect {
	case "postgres":
		return `to_char(created_at, 'YYYY-MM-DD')`
	case "mysql":
		return `DATE_FORMAT(created_at, '%Y-%m-%d')`
	default:
		return `strftime('%Y-%m-%d', created_at)`
	}
}

// DailyByModel returns per-day, per-model aggregates for the trailing
// window of days, newest day first.
func (l *SQLLedger) DailyByModel(ctx context.Context, userID string, days int, now time.Time) ([]DailyModelUsage, error) {
	if days <= 0 {
		days = 7
	}

	start, _ := plan.PeriodDay.Bounds(now.UTC().AddDate(0, 0, -(days - 1)))

	dayExpr := l.dayExpr()
	query := fmt.Sprintf(`SELECT %s AS day, model, COUNT(*),
			COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM ai_usage WHERE user_id = ? AND created_at >= ?
		GROUP BY day, model ORDER BY day DESC, model`, dayExpr)
	if l.dialect == "postgres" {
		query = fmt.Sprintf(`SELECT %s AS day, model, COUNT(*),
				COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
			FROM ai_usage WHERE user_id = $1 AND created_at >= $2
			GROUP BY day, model ORDER BY day DESC, model`, dayExpr)
	}

	rows, err := l.db.QueryContext(ctx, query, userID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DailyModelUsage
	for rows.Next() {
		var row DailyModelUsage
		if err := rows.Scan(&row.Day, &row.Model, &row.Calls, &row.InputTokens, &row.OutputTokens, &row.CostUSD); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
