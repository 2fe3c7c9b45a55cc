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

package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

// MemoryStore is an in-process user store for tests and zero-config
// development runs.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]*User
	byKey   map[string]*User
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
		byKey:   make(map[string]*User),
	}
}

// Create registers a new user on the free plan and returns the user
// together with the freshly generated raw API key.
func (s *MemoryStore) Create(_ context.Context, email, name string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return nil, "", ErrEmailTaken
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
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	s.byKey[HashKey(rawKey)] = u
	return cloned(u), rawKey, nil
}

// FindByID returns the user with the given id.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		return cloned(u), nil
	}
	return nil, ErrNotFound
}

// FindByEmail returns the user with the given email.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		return cloned(u), nil
	}
	return nil, ErrNotFound
}

// FindByAPIKey returns the user owning the given raw API key.
func (s *MemoryStore) FindByAPIKey(_ context.Context, rawKey string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byKey[HashKey(rawKey)]; ok {
		return cloned(u), nil
	}
	return nil, ErrNotFound
}

// SetPlan updates a user's plan assignment.
func (s *MemoryStore) SetPlan(_ context.Context, id, planKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PlanKey = planKey
	return nil
}

func cloned(u *User) *User {
	c := *u
	return &c
}
