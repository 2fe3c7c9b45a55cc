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

// Package config defines the launchgate configuration model.
//
// Configuration is loaded once at process start from a YAML file with
// ${ENV_VAR} / ${ENV_VAR:-default} expansion, then frozen. Components
// receive the pieces they need through their constructors; there is no
// ambient global configuration state.
package config

import "fmt"

// Config is the root configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server,omitempty"`

	// Auth configures bearer-token authentication.
	Auth AuthConfig `yaml:"auth,omitempty"`

	// Database configures the shared SQL store used for quota counters,
	// the AI usage ledger, and user records.
	Database DatabaseConfig `yaml:"database,omitempty"`

	// RateLimit configures the per-process request rate limiter.
	RateLimit RateLimitConfig `yaml:"rate_limit,omitempty"`

	// Plans overrides the built-in plan table. Empty means defaults.
	Plans PlansConfig `yaml:"plans,omitempty"`

	// Pricing overrides the built-in per-model AI pricing table.
	Pricing PricingConfig `yaml:"pricing,omitempty"`
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Auth.SetDefaults()
	c.Database.SetDefaults()
	c.RateLimit.SetDefaults()
	c.Plans.SetDefaults()
	c.Pricing.SetDefaults()
}

// Validate validates all sections.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Plans.Validate(); err != nil {
		return fmt.Errorf("plans: %w", err)
	}
	if err := c.Pricing.Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	return nil
}

// BoolPtr returns a pointer to the given bool. Convenience for optional
// boolean config fields.
func BoolPtr(b bool) *bool {
	return &b
}

// Int64Ptr returns a pointer to the given int64. Convenience for nullable
// plan limits, where nil means unlimited.
func Int64Ptr(n int64) *int64 {
	return &n
}
