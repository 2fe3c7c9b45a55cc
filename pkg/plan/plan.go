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

// Package plan holds the immutable plan table and the calendar math for
// quota periods. The registry is pure lookup: no mutation, no I/O.
package plan

import (
	"fmt"

	"github.com/kadirpekel/launchgate/pkg/config"
)

// FreeKey is the plan every unknown or absent plan key resolves to.
const FreeKey = "free"

// Plan is a resolved plan definition. A nil limit means unlimited for
// that resource/period combination.
type Plan struct {
	Key  string
	Name string

	DataDaily   *int64
	DataMonthly *int64

	AIMiniDaily   *int64
	AIMiniMonthly *int64
	AI41Daily     *int64
	AI41Monthly   *int64
}

// DataUnlimited reports whether the plan has no data-class limits at all.
func (p Plan) DataUnlimited() bool {
	return p.DataDaily == nil && p.DataMonthly == nil
}

// AIUnlimited reports whether the plan has no AI-class limits at all.
func (p Plan) AIUnlimited() bool {
	return p.AIMiniDaily == nil && p.AIMiniMonthly == nil &&
		p.AI41Daily == nil && p.AI41Monthly == nil
}

// DataLimit returns the data-class limit for the given period.
// A nil limit inside an otherwise limited plan counts as zero.
func (p Plan) DataLimit(period Period) int64 {
	if period == PeriodDay {
		return orZero(p.DataDaily)
	}
	return orZero(p.DataMonthly)
}

// AILimit returns the limit for the given AI class and period.
// A nil limit inside an otherwise limited plan counts as zero.
func (p Plan) AILimit(class Class, period Period) int64 {
	switch {
	case class == ClassMini && period == PeriodDay:
		return orZero(p.AIMiniDaily)
	case class == ClassMini:
		return orZero(p.AIMiniMonthly)
	case period == PeriodDay:
		return orZero(p.AI41Daily)
	default:
		return orZero(p.AI41Monthly)
	}
}

func orZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// Registry is the process-wide plan table. It is built once from config
// and never mutated afterwards.
type Registry struct {
	plans map[string]Plan
}

// NewRegistry builds a Registry from configuration.
func NewRegistry(cfg config.PlansConfig) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan table: %w", err)
	}

	plans := make(map[string]Plan, len(cfg))
	for key, pc := range cfg {
		plans[key] = Plan{
			Key:           key,
			Name:          pc.Name,
			DataDaily:     pc.DataDaily,
			DataMonthly:   pc.DataMonthly,
			AIMiniDaily:   pc.AIMiniDaily,
			AIMiniMonthly: pc.AIMiniMonthly,
			AI41Daily:     pc.AI41Daily,
			AI41Monthly:   pc.AI41Monthly,
		}
	}
	return &Registry{plans: plans}, nil
}

// Resolve returns the plan for the given key. Unknown or empty keys
// resolve to the free plan, the most restrictive one.
func (r *Registry) Resolve(key string) Plan {
	if p, ok := r.plans[key]; ok {
		return p
	}
	return r.plans[FreeKey]
}

// PeriodFor selects the quota accounting period for a plan key: the free
// plan is metered per calendar day, every other plan per calendar month.
func PeriodFor(planKey string) Period {
	if planKey == FreeKey || planKey == "" {
		return PeriodDay
	}
	return PeriodMonth
}
