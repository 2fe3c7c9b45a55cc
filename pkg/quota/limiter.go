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
	"context"
	"time"

	"github.com/kadirpekel/launchgate/pkg/auth"
	"github.com/kadirpekel/launchgate/pkg/plan"
)

// DataDecision is the outcome of a data-class quota check.
type DataDecision struct {
	Allowed   bool
	Unlimited bool

	Plan      string
	Period    plan.Period
	Limit     int64
	Remaining int64
}

// ClassStatus reports one AI class's standing at decision time.
type ClassStatus struct {
	Class     plan.Class
	Limit     int64
	Used      int64
	Remaining int64
}

// AIDecision is the outcome of an AI-class quota check.
type AIDecision struct {
	Allowed   bool
	Unlimited bool

	Plan   string
	Period plan.Period

	// ExceededClass names the class that rejected. Empty when allowed.
	ExceededClass plan.Class

	// Classes holds the standing of every class checked, in check
	// order. On rejection the failing class is the last entry.
	Classes []ClassStatus
}

// DataLimiter enforces the data-class quota: check the durable counter,
// and charge it only when the request is allowed through.
type DataLimiter struct {
	plans *plan.Registry
	store CounterStore

	now func() time.Time
}

// NewDataLimiter creates a data quota limiter.
func NewDataLimiter(plans *plan.Registry, store CounterStore) *DataLimiter {
	return &DataLimiter{plans: plans, store: store, now: time.Now}
}

// SetClock overrides the limiter clock. Test hook.
func (l *DataLimiter) SetClock(now func() time.Time) { l.now = now }

// Check decides whether the caller may consume one data request and
// charges the counter when it may. Fully unlimited plans short out
// before any store access.
func (l *DataLimiter) Check(ctx context.Context, id auth.Identity) (DataDecision, error) {
	if !id.Authenticated() {
		return DataDecision{}, ErrAuthRequired
	}

	p := l.plans.Resolve(id.PlanKey)
	if p.DataUnlimited() {
		return DataDecision{Allowed: true, Unlimited: true, Plan: p.Name}, nil
	}

	period := plan.PeriodFor(p.Key)
	limit := p.DataLimit(period)
	periodKey := period.Key(l.now())

	used, err := l.store.DataUsage(ctx, id.UserID, period, periodKey)
	if err != nil {
		return DataDecision{}, err
	}

	// Remaining is reported as of before this request is charged.
	d := DataDecision{
		Plan:      p.Name,
		Period:    period,
		Limit:     limit,
		Remaining: clampZero(limit - used),
	}

	if used >= limit {
		return d, nil
	}

	if err := l.store.IncrementDataUsage(ctx, id.UserID, period, periodKey); err != nil {
		return DataDecision{}, err
	}

	d.Allowed = true
	return d, nil
}

// AILimiter enforces the AI-class quotas by counting ledger events in
// the current period. It never writes: usage is appended by the AI
// handler after the model call completes, so a rejected or failed call
// costs nothing.
type AILimiter struct {
	plans  *plan.Registry
	events EventCounter
	routes plan.RouteClasses

	now func() time.Time
}

// NewAILimiter creates an AI quota limiter.
func NewAILimiter(plans *plan.Registry, events EventCounter, routes plan.RouteClasses) *AILimiter {
	if routes == nil {
		routes = plan.DefaultRouteClasses()
	}
	return &AILimiter{plans: plans, events: events, routes: routes, now: time.Now}
}

// SetClock overrides the limiter clock. Test hook.
func (l *AILimiter) SetClock(now func() time.Time) { l.now = now }

// Check decides whether the caller may invoke the AI route. Classes are
// checked in route order and the first exhausted one rejects without
// touching the rest.
func (l *AILimiter) Check(ctx context.Context, id auth.Identity, route string) (AIDecision, error) {
	if !id.Authenticated() {
		return AIDecision{}, ErrAuthRequired
	}

	p := l.plans.Resolve(id.PlanKey)
	if p.AIUnlimited() {
		return AIDecision{Allowed: true, Unlimited: true, Plan: p.Name}, nil
	}

	period := plan.PeriodFor(p.Key)
	start, end := period.Bounds(l.now())

	d := AIDecision{
		Allowed: true,
		Plan:    p.Name,
		Period:  period,
	}

	for _, class := range l.routes.For(route) {
		limit := p.AILimit(class, period)

		used, err := l.events.CountInRange(ctx, id.UserID, class, start, end)
		if err != nil {
			return AIDecision{}, storeErr("count", err)
		}

		status := ClassStatus{
			Class:     class,
			Limit:     limit,
			Used:      used,
			Remaining: clampZero(limit - used),
		}
		d.Classes = append(d.Classes, status)

		if used >= limit {
			d.Allowed = false
			d.ExceededClass = class
			return d, nil
		}
	}

	return d, nil
}

func clampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
