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

// Package auth resolves the caller identity used by rate limiting and
// quota enforcement. Identity extraction is split in two: an optional
// pass that never rejects (so the rate limiter can key on whatever
// credential was presented, valid or not) and a required pass that
// returns 401 on protected routes.
package auth

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Identity describes the caller of a request. Zero value means an
// anonymous caller known only by IP.
type Identity struct {
	// IP is the client address with any port stripped.
	IP string

	// TokenHash is the hex sha1 of the raw bearer token, set whenever a
	// bearer token was presented, even an invalid one. Used as the
	// per-token rate limit key so garbage tokens cannot dodge limiting.
	TokenHash string

	// UserID, PlanKey, Email and Name are populated only when the
	// credential resolved to a known user.
	UserID  string
	PlanKey string
	Email   string
	Name    string
}

// Authenticated reports whether the identity resolved to a known user.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// RateKey returns the stable per-caller rate limit key: the user id when
// authenticated, the token hash when a token was presented but did not
// resolve, and empty for purely anonymous callers.
func (id Identity) RateKey() string {
	if id.UserID != "" {
		return "usr:" + id.UserID
	}
	if id.TokenHash != "" {
		return "tok:" + id.TokenHash
	}
	return ""
}

type contextKey string

const identityKey contextKey = "launchgate.identity"

// WithIdentity stashes an identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the identity stored by the middleware. The
// second return is false when no auth middleware ran.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// HashToken returns the hex sha1 of a raw bearer token. sha1 is fine
// here: the hash is a bucketing key, not a stored credential.
func HashToken(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ClientIP extracts the caller address from a request, trusting the
// leftmost X-Forwarded-For entry when present (the router sits behind a
// terminating proxy in every deployment).
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// bearerToken returns the raw token from an Authorization: Bearer
// header, or empty when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
