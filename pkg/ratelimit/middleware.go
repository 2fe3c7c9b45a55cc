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

package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kadirpekel/launchgate/pkg/auth"
	"github.com/kadirpekel/launchgate/pkg/observability"
)

// Middleware applies the limiter to incoming requests. Paths in
// excluded bypass limiting entirely, headers included.
func Middleware(limiter *Limiter, excluded []string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(excluded))
	for _, p := range excluded {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			id, _ := auth.FromContext(r.Context())
			ip := id.IP
			if ip == "" {
				ip = auth.ClientIP(r)
			}

			d := limiter.Check(ip, id.RateKey())
			setHeaders(w, d)

			if !d.Allowed {
				observability.RateLimitDecisions.WithLabelValues("rejected", string(d.ExceededBy)).Inc()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": fmt.Sprintf("rate limit exceeded (%s)", d.ExceededBy),
				})
				return
			}

			observability.RateLimitDecisions.WithLabelValues("allowed", "").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// setHeaders writes the rate limit response headers. They are set on
// every limited request, allowed or not, so clients can pace themselves
// before hitting the wall. Headers are assigned directly to keep the
// documented casing, which Go's canonical form would mangle.
func setHeaders(w http.ResponseWriter, d Decision) {
	h := w.Header()
	h["X-RateLimit-Limit"] = []string{strconv.FormatInt(d.Limit, 10)}
	h["X-RateLimit-Remaining"] = []string{strconv.FormatInt(d.Remaining, 10)}
	h["X-RateLimit-Reset"] = []string{strconv.FormatInt(d.ResetSeconds, 10)}
	h["X-RateLimit-IP-Remaining"] = []string{strconv.FormatInt(d.IPRemaining, 10)}
	if d.TokenScoped {
		h["X-RateLimit-Token-Remaining"] = []string{strconv.FormatInt(d.TokenRemaining, 10)}
	}
}
