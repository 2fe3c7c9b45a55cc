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

// Package quota enforces plan-level usage limits: a durable counter for
// the data class (charged per request) and ledger-derived counts for
// the AI classes (charged per completed model call, enforced here by
// reading back the ledger).
package quota

import (
	"context"
	"time"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

// CounterStore persists data-class usage counters. Counters are keyed
// by (user, period kind, period key) so rolling into a new calendar
// bucket starts from zero without any reset job.
type CounterStore interface {
	// DataUsage returns the current count for a bucket, zero when the
	// bucket does not exist yet.
	DataUsage(ctx context.Context, userID string, period plan.Period, periodKey string) (int64, error)

	// IncrementDataUsage atomically adds one to a bucket, creating it
	// on first use.
	IncrementDataUsage(ctx context.Context, userID string, period plan.Period, periodKey string) error
}

// EventCounter counts AI ledger events for a user and class inside a
// time range. Satisfied by usage.Ledger.
type EventCounter interface {
	CountInRange(ctx context.Context, userID string, class plan.Class, start, end time.Time) (int64, error)
}
