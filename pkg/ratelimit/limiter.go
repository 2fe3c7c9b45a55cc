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

// Package ratelimit implements fixed-window request limiting keyed
// jointly by client IP and bearer identity. Counters live in process
// memory: the limiter is a cheap abuse brake in front of the durable
// quota layer, and losing its state on restart only forgives, never
// overcharges.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Scope names which counter rejected a request.
type Scope string

const (
	ScopeIP    Scope = "ip"
	ScopeToken Scope = "token"
)

// Decision is the outcome of a single limiter check, carrying
// everything the middleware needs to emit response headers.
type Decision struct {
	Allowed bool

	// ExceededBy names the scope that rejected the request. Empty when
	// allowed.
	ExceededBy Scope

	// Limit is the effective limit for the caller: the token limit when
	// a token scope applies, the IP limit otherwise.
	Limit int64

	// Remaining is the minimum remaining across both scopes.
	Remaining int64

	// ResetSeconds is the time until the IP window rolls over.
	ResetSeconds int64

	IPRemaining    int64
	TokenRemaining int64

	// TokenScoped reports whether a token counter participated.
	TokenScoped bool
}

type windowCounter struct {
	count   int64
	startMs int64
}

// Limiter counts requests in fixed windows. Both scopes are charged
// before either is checked, so a request rejected on one scope still
// consumed budget on the other. That asymmetry is deliberate: a caller
// hammering one credential burns their IP budget too.
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*windowCounter

	window      time.Duration
	unauthLimit int64
	authLimit   int64

	now func() time.Time
}

// Config holds limiter tunables.
type Config struct {
	// Window is the fixed window length.
	Window time.Duration

	// UnauthLimit is the per-IP limit per window.
	UnauthLimit int64

	// AuthLimit is the per-token (or per-user) limit per window.
	AuthLimit int64
}

// NewLimiter creates a limiter with the given window and limits.
func NewLimiter(cfg Config) (*Limiter, error) {
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %v", cfg.Window)
	}
	if cfg.UnauthLimit <= 0 || cfg.AuthLimit <= 0 {
		return nil, fmt.Errorf("limits must be positive, got unauth=%d auth=%d", cfg.UnauthLimit, cfg.AuthLimit)
	}
	return &Limiter{
		counters:    make(map[string]*windowCounter),
		window:      cfg.Window,
		unauthLimit: cfg.UnauthLimit,
		authLimit:   cfg.AuthLimit,
		now:         time.Now,
	}, nil
}

// SetClock overrides the limiter clock. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check charges one request against the IP scope and, when tokenKey is
// non-empty, the token scope, then reports whether the request may
// proceed. The IP scope is checked first. Reset is computed from the IP
// counter's first-seen time, which may over-state the true rollover for
// the token scope; documented behavior.
func (l *Limiter) Check(ip, tokenKey string) Decision {
	nowMs := l.now().UnixMilli()
	windowMs := l.window.Milliseconds()
	windowIdx := nowMs / windowMs

	l.mu.Lock()
	defer l.mu.Unlock()

	ipCounter := l.bump(fmt.Sprintf("ip:%s:%d", ip, windowIdx), nowMs)

	var tokenCount int64
	if tokenKey != "" {
		tokenCount = l.bump(fmt.Sprintf("%s:%d", tokenKey, windowIdx), nowMs).count
	}

	d := Decision{
		Allowed:      true,
		Limit:        l.unauthLimit,
		TokenScoped:  tokenKey != "",
		ResetSeconds: (ipCounter.startMs + windowMs - nowMs + 999) / 1000,
	}

	d.IPRemaining = max64(0, l.unauthLimit-ipCounter.count)
	d.Remaining = d.IPRemaining
	if d.TokenScoped {
		d.Limit = l.authLimit
		d.TokenRemaining = max64(0, l.authLimit-tokenCount)
		d.Remaining = min64(d.IPRemaining, d.TokenRemaining)
	}

	if ipCounter.count > l.unauthLimit {
		d.Allowed = false
		d.ExceededBy = ScopeIP
		return d
	}
	if d.TokenScoped && tokenCount > l.authLimit {
		d.Allowed = false
		d.ExceededBy = ScopeToken
	}
	return d
}

// bump increments the counter for key, creating it with the current
// time on first use. Keys embed the window index, so a new window
// always lands on a fresh counter.
func (l *Limiter) bump(key string, nowMs int64) *windowCounter {
	c, ok := l.counters[key]
	if !ok {
		c = &windowCounter{startMs: nowMs}
		l.counters[key] = c
	}
	c.count++
	return c
}

// Sweep drops counters whose window ended more than one full window
// ago. Keys embed the window index so stale entries are never read
// again; sweeping just caps memory.
func (l *Limiter) Sweep() int {
	cutoff := l.now().UnixMilli() - 2*l.window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, c := range l.counters {
		if c.startMs < cutoff {
			delete(l.counters, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until stop is closed.
func (l *Limiter) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
