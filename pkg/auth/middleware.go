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

package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kadirpekel/launchgate/pkg/logger"
	"github.com/kadirpekel/launchgate/pkg/users"
)

// UserSource resolves credentials to users. Satisfied by users.Store.
type UserSource interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
	FindByAPIKey(ctx context.Context, rawKey string) (*users.User, error)
}

// Middleware performs identity resolution for incoming requests.
type Middleware struct {
	validator *JWTValidator
	users     UserSource
}

// NewMiddleware creates the auth middleware. users may be nil, in which
// case tokens never resolve to users and every caller stays anonymous
// or token-keyed.
func NewMiddleware(validator *JWTValidator, users UserSource) *Middleware {
	return &Middleware{validator: validator, users: users}
}

// Optional resolves whatever credential the request carries and stashes
// the identity in the context. It never rejects: an invalid token just
// leaves the identity unauthenticated, still carrying the token hash so
// downstream rate limiting keys on it.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.resolve(r)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Require rejects requests whose identity did not resolve to a known
// user. It expects Optional to have run earlier in the chain and
// resolves on its own when it has not.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			id = m.resolve(r)
			r = r.WithContext(WithIdentity(r.Context(), id))
		}

		if !id.Authenticated() {
			if id.TokenHash != "" {
				writeAuthError(w, "invalid token")
			} else {
				writeAuthError(w, "auth required")
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolve builds the caller identity from the request credentials.
// Resolution order: JWT subject, bearer token as API key, X-API-Key
// header. Lookup failures are logged and leave the caller unresolved.
func (m *Middleware) resolve(r *http.Request) Identity {
	id := Identity{IP: ClientIP(r)}

	raw := bearerToken(r)
	if raw != "" {
		id.TokenHash = HashToken(raw)

		if m.validator != nil {
			if claims, err := m.validator.Validate(raw); err == nil {
				if u := m.lookupByID(r.Context(), claims.Subject); u != nil {
					id.UserID = u.ID
					id.PlanKey = u.PlanKey
					id.Email = u.Email
					id.Name = u.Name
					return id
				}
			}
		}

		if u := m.lookupByKey(r.Context(), raw); u != nil {
			id.UserID = u.ID
			id.PlanKey = u.PlanKey
			id.Email = u.Email
			id.Name = u.Name
			return id
		}
	}

	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		if id.TokenHash == "" {
			id.TokenHash = HashToken(apiKey)
		}
		if u := m.lookupByKey(r.Context(), apiKey); u != nil {
			id.UserID = u.ID
			id.PlanKey = u.PlanKey
			id.Email = u.Email
			id.Name = u.Name
		}
	}

	return id
}

func (m *Middleware) lookupByID(ctx context.Context, userID string) *users.User {
	if m.users == nil || userID == "" {
		return nil
	}
	u, err := m.users.FindByID(ctx, userID)
	if err != nil {
		logger.GetLogger().Debug("user lookup failed", "user_id", userID, "error", err)
		return nil
	}
	return u
}

func (m *Middleware) lookupByKey(ctx context.Context, rawKey string) *users.User {
	if m.users == nil || rawKey == "" {
		return nil
	}
	u, err := m.users.FindByAPIKey(ctx, rawKey)
	if err != nil {
		return nil
	}
	return u
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
