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
	"math"
	"strings"

	"github.com/kadirpekel/launchgate/pkg/config"
)

// NormalizeModel maps a deployment-specific model name to its pricing
// family. Deployments carry suffixes like region or date stamps, so
// matching is by substring.
func NormalizeModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gpt-4.1"):
		return "gpt-4.1"
	case strings.Contains(m, "gpt-5-mini"):
		return "gpt-5-mini"
	default:
		return model
	}
}

// Pricer estimates model call costs from the configured price table.
type Pricer struct {
	prices config.PricingConfig
}

// NewPricer creates a pricer. A nil config gets the default table.
func NewPricer(cfg config.PricingConfig) *Pricer {
	if cfg == nil {
		cfg = config.PricingConfig{}
		cfg.SetDefaults()
	}
	return &Pricer{prices: cfg}
}

// Estimate returns the USD cost of a call, rounded to 6 decimals.
// Prices are per million tokens; unknown models cost zero.
func (p *Pricer) Estimate(model string, inputTokens, outputTokens int64) float64 {
	price, ok := p.prices[NormalizeModel(model)]
	if !ok {
		return 0
	}
	cost := float64(inputTokens)/1e6*price.Input + float64(outputTokens)/1e6*price.Output
	return math.Round(cost*1e6) / 1e6
}
