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
	"time"

	"github.com/kadirpekel/launchgate/pkg/logger"
	"github.com/kadirpekel/launchgate/pkg/observability"
	"github.com/kadirpekel/launchgate/pkg/plan"
)

// Ledger is the append-and-aggregate interface of the usage store.
type Ledger interface {
	Append(ctx context.Context, e Event) error
	CountInRange(ctx context.Context, userID string, class plan.Class, start, end time.Time) (int64, error)
	TodayTotals(ctx context.Context, userID string, now time.Time) (DayTotals, error)
	DailyByModel(ctx context.Context, userID string, days int, now time.Time) ([]DailyModelUsage, error)
}

// Recorder writes usage events after AI calls complete. Recording
// failures are logged and swallowed: a completed model call must not be
// failed retroactively because bookkeeping broke, even though the
// missed event means the call goes unbilled against quota.
type Recorder struct {
	ledger Ledger
	pricer *Pricer
}

// NewRecorder creates a recorder.
func NewRecorder(ledger Ledger, pricer *Pricer) *Recorder {
	if pricer == nil {
		pricer = NewPricer(nil)
	}
	return &Recorder{ledger: ledger, pricer: pricer}
}

// Record appends one completed call, estimating its cost. The model
// name is normalized before storage: class counting and the daily
// report match on the canonical name, so a raw deployment name like
// "prod-gpt-4.1-eastus" would slip past quota if stored as-is.
func (r *Recorder) Record(ctx context.Context, userID, route, model string, inputTokens, outputTokens int64) {
	normalized := NormalizeModel(model)
	e := Event{
		UserID:       userID,
		Route:        route,
		Model:        normalized,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      r.pricer.Estimate(model, inputTokens, outputTokens),
	}
	if err := r.ledger.Append(ctx, e); err != nil {
		logger.GetLogger().Error("failed to record ai usage",
			"user_id", userID,
			"model", model,
			"error", err,
		)
		return
	}
	observability.AIUsageRecorded.WithLabelValues(normalized).Inc()
}
