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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

// MemoryLedger is an in-process ledger for tests and single-node use.
type MemoryLedger struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Append stores one event.
func (l *MemoryLedger) Append(_ context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func matchesClass(model string, class plan.Class) bool {
	switch class {
	case plan.ClassMini:
		return strings.Contains(strings.ToLower(model), "mini")
	case plan.ClassGPT4:
		return strings.HasPrefix(model, "gpt-4.1")
	default:
		return false
	}
}

// CountInRange counts a user's events for one class in [start, end).
func (l *MemoryLedger) CountInRange(_ context.Context, userID string, class plan.Class, start, end time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var count int64
	for _, e := range l.events {
		if e.UserID != userID || !matchesClass(e.Model, class) {
			continue
		}
		if e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		count++
	}
	return count, nil
}

// TodayTotals aggregates the user's activity for the current UTC day.
func (l *MemoryLedger) TodayTotals(_ context.Context, userID string, now time.Time) (DayTotals, error) {
	start, end := plan.PeriodDay.Bounds(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	var t DayTotals
	for _, e := range l.events {
		if e.UserID != userID || e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		t.Calls++
		t.InputTokens += e.InputTokens
		t.OutputTokens += e.OutputTokens
		t.CostUSD += e.CostUSD
	}
	return t, nil
}

// DailyByModel returns per-day, per-model aggregates for the trailing
// window of days, newest day first.
func (l *MemoryLedger) DailyByModel(_ context.Context, userID string, days int, now time.Time) ([]DailyModelUsage, error) {
	if days <= 0 {
		days = 7
	}
	start, _ := plan.PeriodDay.Bounds(now.UTC().AddDate(0, 0, -(days - 1)))

	l.mu.Lock()
	defer l.mu.Unlock()

	type key struct{ day, model string }
	agg := make(map[key]*DailyModelUsage)
	for _, e := range l.events {
		if e.UserID != userID || e.CreatedAt.Before(start) {
			continue
		}
		k := key{day: plan.PeriodDay.Key(e.CreatedAt), model: e.Model}
		row, ok := agg[k]
		if !ok {
			row = &DailyModelUsage{Day: k.day, Model: k.model}
			agg[k] = row
		}
		row.Calls++
		row.InputTokens += e.InputTokens
		row.OutputTokens += e.OutputTokens
		row.CostUSD += e.CostUSD
	}

	out := make([]DailyModelUsage, 0, len(agg))
	for _, row := range agg {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}
