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

import (
	"fmt"
	"time"
)

// RateLimitConfig configures the per-process request rate limiter.
//
// The limiter buckets requests into fixed windows of Window length and
// enforces two independent ceilings: UnauthLimit against the client IP
// (always) and AuthLimit against the bearer identity (when one is present).
//
// Example configuration:
//
//	rate_limit:
//	  enabled: true
//	  window: 24h
//	  unauth_limit: 200
//	  auth_limit: 200
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Window is the fixed window length.
	Window time.Duration `yaml:"window,omitempty"`

	// UnauthLimit is the per-window ceiling for the IP-scoped counter.
	UnauthLimit int64 `yaml:"unauth_limit,omitempty"`

	// AuthLimit is the per-window ceiling for the identity-scoped counter.
	AuthLimit int64 `yaml:"auth_limit,omitempty"`

	// SweepInterval is how often expired window counters are evicted.
	// Zero disables the background sweeper.
	SweepInterval time.Duration `yaml:"sweep_interval,omitempty"`

	// ExcludedPaths are request paths that bypass rate limiting.
	ExcludedPaths []string `yaml:"excluded_paths,omitempty"`
}

// IsEnabled returns true if rate limiting is enabled.
func (c *RateLimitConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// SetDefaults sets default values for RateLimitConfig.
func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.Window == 0 {
		c.Window = 24 * time.Hour
	}
	if c.UnauthLimit == 0 {
		c.UnauthLimit = 200
	}
	if c.AuthLimit == 0 {
		c.AuthLimit = 200
	}
	if len(c.ExcludedPaths) == 0 {
		c.ExcludedPaths = []string{"/", "/auth/signup"}
	}
}

// Validate validates the RateLimitConfig.
func (c *RateLimitConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if c.UnauthLimit <= 0 {
		return fmt.Errorf("unauth_limit must be positive")
	}
	if c.AuthLimit <= 0 {
		return fmt.Errorf("auth_limit must be positive")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must be non-negative")
	}
	return nil
}
