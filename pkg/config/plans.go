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

package config

import "fmt"

// PlanConfig defines quota limits for a single plan.
// A nil limit means unlimited for that resource/period combination.
type PlanConfig struct {
	// Name is the display name of the plan.
	Name string `yaml:"name"`

	// PriceUSD is the monthly price. Informational only; nil for
	// free and custom-priced plans.
	PriceUSD *int64 `yaml:"price_usd,omitempty"`

	// DataDaily caps data-class calls per UTC calendar day.
	DataDaily *int64 `yaml:"data_daily,omitempty"`

	// DataMonthly caps data-class calls per UTC calendar month.
	DataMonthly *int64 `yaml:"data_monthly,omitempty"`

	// AIMiniDaily caps mini-tier AI calls per UTC calendar day.
	AIMiniDaily *int64 `yaml:"ai_mini_daily,omitempty"`

	// AIMiniMonthly caps mini-tier AI calls per UTC calendar month.
	AIMiniMonthly *int64 `yaml:"ai_mini_monthly,omitempty"`

	// AI41Daily caps gpt4-tier AI calls per UTC calendar day.
	AI41Daily *int64 `yaml:"ai_41_daily,omitempty"`

	// AI41Monthly caps gpt4-tier AI calls per UTC calendar month.
	AI41Monthly *int64 `yaml:"ai_41_monthly,omitempty"`
}

// PlansConfig maps a plan key to its limits.
type PlansConfig map[string]PlanConfig

// SetDefaults installs the built-in plan table when no plans are
// configured. The free plan is metered daily; paid plans monthly.
func (c *PlansConfig) SetDefaults() {
	if len(*c) > 0 {
		return
	}
	*c = PlansConfig{
		"free": {
			Name:        "Free",
			DataDaily:   Int64Ptr(100),
			AIMiniDaily: Int64Ptr(5),
			AI41Daily:   Int64Ptr(0),
		},
		"hobby": {
			Name:          "Hobby",
			PriceUSD:      Int64Ptr(9),
			DataMonthly:   Int64Ptr(50_000),
			AIMiniMonthly: Int64Ptr(200),
			AI41Monthly:   Int64Ptr(0),
		},
		"pro": {
			Name:          "Pro",
			PriceUSD:      Int64Ptr(29),
			DataMonthly:   Int64Ptr(250_000),
			AIMiniMonthly: Int64Ptr(1_000),
			AI41Monthly:   Int64Ptr(200),
		},
		"business": {
			Name:          "Business",
			PriceUSD:      Int64Ptr(99),
			DataMonthly:   Int64Ptr(2_000_000),
			AIMiniMonthly: Int64Ptr(10_000),
			AI41Monthly:   Int64Ptr(2_000),
		},
		"enterprise": {
			Name: "Enterprise",
			// all limits nil = unlimited
		},
	}
}

// Validate validates the plan table.
func (c PlansConfig) Validate() error {
	if _, ok := c["free"]; !ok {
		return fmt.Errorf("plan table must define a %q plan", "free")
	}
	for key, p := range c {
		if p.Name == "" {
			return fmt.Errorf("plan %q: name is required", key)
		}
		for field, v := range map[string]*int64{
			"data_daily":      p.DataDaily,
			"data_monthly":    p.DataMonthly,
			"ai_mini_daily":   p.AIMiniDaily,
			"ai_mini_monthly": p.AIMiniMonthly,
			"ai_41_daily":     p.AI41Daily,
			"ai_41_monthly":   p.AI41Monthly,
		} {
			if v != nil && *v < 0 {
				return fmt.Errorf("plan %q: %s must be non-negative", key, field)
			}
		}
	}
	return nil
}

// ModelPrice is the USD price per one million tokens.
type ModelPrice struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// PricingConfig maps a normalized model name to its token pricing.
type PricingConfig map[string]ModelPrice

// SetDefaults installs the built-in pricing table when empty.
// Prices follow the Azure OpenAI pricing table (USD per 1M tokens).
func (c *PricingConfig) SetDefaults() {
	if len(*c) > 0 {
		return
	}
	*c = PricingConfig{
		"gpt-4.1":    {Input: 2.00, Output: 8.00},
		"gpt-5-mini": {Input: 0.40, Output: 1.60},
	}
}

// Validate validates the pricing table.
func (c PricingConfig) Validate() error {
	for model, p := range c {
		if p.Input < 0 || p.Output < 0 {
			return fmt.Errorf("pricing for %q must be non-negative", model)
		}
	}
	return nil
}
