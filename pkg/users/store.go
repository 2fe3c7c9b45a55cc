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

// Package users persists API consumers and their plan assignment.
package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

const createUsersTableSQL = `
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(64) NOT NULL,
    email VARCHAR(255) NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    api_key_hash VARCHAR(64) NOT NULL,
    plan VARCHAR(50) NOT NULL DEFAULT 'free',
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_api_key_hash ON users(api_key_hash);
`

// ErrEmailTaken is returned when creating a user with an existing email.
var ErrEmailTaken = errors.New("email already registered")

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// User is an API consumer. PlanKey references the plan table; an
// unknown key resolves to the free plan at enforcement time.
type User struct {
	ID        string
	Email     string
	Name      string
	PlanKey   string
	CreatedAt time.Time
}

// Store is a SQL-backed user store.
type Store struct {
	db      *sql.DB
	dialect string
}

// NewStore creates a user store and ensures its schema exists.
func NewStore(db *sql.DB, dialect string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	s := &Store{db: db, dialect: dialect}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createUsersTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}
	return s, nil
}

// HashKey returns the hex sha256 of a raw API key. Only the hash is
// stored; the raw key is shown to the user exactly once at creation.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Create registers a new user on the free plan and returns the user
// together with the freshly generated raw API key.
func (s *Store) Create(ctx context.Context, email, name string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}

	if existing, err := s.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, "", err
	}

	keyBytes := make([]byte, 24)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, "", fmt.Errorf("failed to generate api key: %w", err)
	}
	rawKey := hex.EncodeToString(keyBytes)

	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		PlanKey:   plan.FreeKey,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO users (id, email, name, api_key_hash, plan, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if s.dialect == "postgres" {
		query = `INSERT INTO users (id, email, name, api_key_hash, plan, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	}
	if _, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, HashKey(rawKey), u.PlanKey, u.CreatedAt); err != nil {
		// Concurrent signups can pass the pre-check and race on the
		// unique email index; the insert is the authority.
		if isUniqueViolation(err) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("failed to insert user: %w", err)
	}

	return u, rawKey, nil
}

// isUniqueViolation reports whether err is a unique-index violation.
// Matched by message so the store stays decoupled from the concrete
// driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key value") // postgres
}

// FindByID returns the user with the given id.
func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, "id", id)
}

// FindByEmail returns the user with the given email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// FindByAPIKey returns the user owning the given raw API key.
func (s *Store) FindByAPIKey(ctx context.Context, rawKey string) (*User, error) {
	return s.findOne(ctx, "api_key_hash", HashKey(rawKey))
}

func (s *Store) findOne(ctx context.Context, column, value string) (*User, error) {
	query := fmt.Sprintf(`SELECT id, email, name, plan, created_at FROM users WHERE %s = ?`, column)
	if s.dialect == "postgres" {
		query = fmt.Sprintf(`SELECT id, email, name, plan, created_at FROM users WHERE %s = $1`, column)
	}

	u := &User{}
	err := s.db.QueryRowContext(ctx, query, value).Scan(&u.ID, &u.Email, &u.Name, &u.PlanKey, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// SetPlan updates a user's plan assignment. Called by the billing
// collaborator when a subscription changes.
func (s *Store) SetPlan(ctx context.Context, id, planKey string) error {
	query := `UPDATE users SET plan = ? WHERE id = ?`
	if s.dialect == "postgres" {
		query = `UPDATE users SET plan = $1 WHERE id = $2`
	}

	res, err := s.db.ExecContext(ctx, query, planKey, id)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
