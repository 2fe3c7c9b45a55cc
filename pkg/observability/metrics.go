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

// Package observability holds the gateway's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RateLimitDecisions counts limiter outcomes by result and scope.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "launchgate",
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limiter decisions by outcome and exceeded scope.",
	}, []string{"outcome", "scope"})

	// QuotaDecisions counts quota outcomes. The class label is "data"
	// or "ai" for both outcomes; rejected AI tiers are identified by the
	// 429 body, not the metric.
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "launchgate",
		Subsystem: "quota",
		Name:      "decisions_total",
		Help:      "Plan quota decisions by class (data or ai) and outcome.",
	}, []string{"class", "outcome"})

	// QuotaFailOpen counts requests allowed because the quota store
	// errored. A nonzero rate here means usage is leaking unmetered.
	QuotaFailOpen = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "launchgate",
		Subsystem: "quota",
		Name:      "fail_open_total",
		Help:      "Requests allowed through because the quota store was unavailable.",
	})

	// AIUsageRecorded counts AI usage events written to the ledger.
	AIUsageRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "launchgate",
		Subsystem: "usage",
		Name:      "ai_events_total",
		Help:      "AI usage events appended to the ledger, by model.",
	}, []string{"model"})
)
