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

// AuthConfig configures bearer-token authentication.
//
// Tokens are HMAC-signed JWTs (HS256). The secret is shared with the
// signup/login flow that issues the tokens. API keys are an alternative
// credential resolved against the user store.
//
// Example configuration:
//
//	auth:
//	  jwt_secret: ${JWT_SECRET}
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret for bearer tokens.
	JWTSecret string `yaml:"jwt_secret,omitempty"`

	// TokenTTL bounds the lifetime of tokens issued by this process.
	TokenTTL string `yaml:"token_ttl,omitempty"`
}

// SetDefaults applies default values to AuthConfig.
func (c *AuthConfig) SetDefaults() {
	if c.JWTSecret == "" {
		c.JWTSecret = "change-me"
	}
	if c.TokenTTL == "" {
		c.TokenTTL = "720h"
	}
}

// Validate validates the AuthConfig.
func (c *AuthConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	return nil
}
