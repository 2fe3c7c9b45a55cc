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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kadirpekel/launchgate/pkg/auth"
	"github.com/kadirpekel/launchgate/pkg/logger"
	"github.com/kadirpekel/launchgate/pkg/observability"
)

// DataMiddleware enforces the data-class quota on a route group. A
// storage failure lets the request through unmetered: the gateway
// guards an API, it must not become its availability bottleneck.
func DataMiddleware(limiter *DataLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := auth.FromContext(r.Context())

			d, err := limiter.Check(r.Context(), id)
			if err != nil {
				if errors.Is(err, ErrAuthRequired) {
					writeError(w, http.StatusUnauthorized, map[string]string{"error": "auth required"})
					return
				}
				failOpen(r, "data", err)
				next.ServeHTTP(w, r)
				return
			}

			// A fully unlimited plan short-circuits with no headers.
			if !d.Unlimited {
				setHeader(w, "X-Plan", d.Plan)
				setHeader(w, "X-Plan-Period", string(d.Period))
				setHeader(w, "X-Plan-Data-Limit", strconv.FormatInt(d.Limit, 10))
				setHeader(w, "X-Plan-Data-Remaining", strconv.FormatInt(d.Remaining, 10))
			}

			if !d.Allowed {
				observability.QuotaDecisions.WithLabelValues("data", "rejected").Inc()
				writeError(w, http.StatusTooManyRequests, map[string]string{
					"error":  "plan data limit exceeded",
					"plan":   d.Plan,
					"period": string(d.Period),
				})
				return
			}

			observability.QuotaDecisions.WithLabelValues("data", "allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// AIMiddleware enforces the AI-class quotas for a route. The route
// pattern must match the limiter's route table; unmapped routes pass
// through unmetered.
func AIMiddleware(limiter *AILimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := auth.FromContext(r.Context())

			d, err := limiter.Check(r.Context(), id, r.URL.Path)
			if err != nil {
				if errors.Is(err, ErrAuthRequired) {
					writeError(w, http.StatusUnauthorized, map[string]string{"error": "auth required"})
					return
				}
				failOpen(r, "ai", err)
				next.ServeHTTP(w, r)
				return
			}

			// Per-class headers are emitted for every class that was
			// checked, including the one that rejected.
			for _, cs := range d.Classes {
				k := string(cs.Class)
				setHeader(w, "X-Plan-AI-"+k+"-Limit", strconv.FormatInt(cs.Limit, 10))
				setHeader(w, "X-Plan-AI-"+k+"-Remaining", strconv.FormatInt(cs.Remaining, 10))
				setHeader(w, "X-Plan-AI-"+k+"-Period", string(d.Period))
			}

			if !d.Allowed {
				observability.QuotaDecisions.WithLabelValues("ai", "rejected").Inc()
				writeError(w, http.StatusTooManyRequests, map[string]string{
					"error":  "ai quota exceeded",
					"plan":   d.Plan,
					"kind":   string(d.ExceededClass),
					"period": string(d.Period),
				})
				return
			}

			observability.QuotaDecisions.WithLabelValues("ai", "allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func failOpen(r *http.Request, class string, err error) {
	logger.GetLogger().Error("quota check failed, allowing request",
		"class", class,
		"path", r.URL.Path,
		"error", err,
	)
	observability.QuotaFailOpen.Inc()
}

// setHeader writes a header preserving its exact case. Go's canonical
// form would mangle names like X-Plan-AI-mini-Limit that clients match
// byte for byte.
func setHeader(w http.ResponseWriter, name, value string) {
	w.Header()[name] = []string{value}
}

func writeError(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
