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

package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

const createUsageTableSQL = `
CREATE TABLE IF NOT EXISTS api_usage (
    user_id VARCHAR(64) NOT NULL,
    period VARCHAR(10) NOT NULL,
    period_key VARCHAR(10) NOT NULL,
    count BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, period, period_key)
);
`

// SQLStore is a CounterStore backed by a relational database. Supports
// postgres, mysql and sqlite dialects over a shared connection pool.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore creates the store and ensures its schema exists.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createUsageTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create api_usage table: %w", err)
	}
	return s, nil
}

// DataUsage returns the counter for a bucket, zero when absent.
func (s *SQLStore) DataUsage(ctx context.Context, userID string, period plan.Period, periodKey string) (int64, error) {
	query := `SELECT count FROM api_usage WHERE user_id = ? AND period = ? AND period_key = ?`
	if s.dialect == "postgres" {
		query = `SELECT count FROM api_usage WHERE user_id = $1 AND period = $2 AND period_key = $3`
	}

	var count int64
	err := s.db.QueryRowContext(ctx, query, userID, string(period), periodKey).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("read", err)
	}
	return count, nil
}

// IncrementDataUsage adds one to a bucket with a single upsert
// statement, so concurrent requests never lose increments.
func (s *SQLStore) IncrementDataUsage(ctx context.Context, userID string, period plan.Period, periodKey string) error {
	var query string
	switch s.dialect {
	case "postgres":
		query = `INSERT INTO api_usage (user_id, period, period_key, count, created_at)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (user_id, period, period_key) DO UPDATE SET count = api_usage.count + 1`
	case "mysql":
		query = `INSERT INTO api_usage (user_id, period, period_key, count, created_at)
			VALUES (?, ?, ?, 1, ?)
			ON DUPLICATE KEY UPDATE count = count + 1`
	default:
		query = `INSERT INTO api_usage (user_id, period, period_key, count, created_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT (user_id, period, period_key) DO UPDATE SET count = count + 1`
	}

	if _, err := s.db.ExecContext(ctx, query, userID, string(period), periodKey, time.Now().UTC()); err != nil {
		return storeErr("increment", err)
	}
	return nil
}
