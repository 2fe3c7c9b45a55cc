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

package auth

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenClaims is the subset of JWT claims the gateway cares about.
type TokenClaims struct {
	Subject string
	Email   string
	Name    string
}

// JWTValidator verifies HS256-signed bearer tokens.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator for the given shared secret.
func NewJWTValidator(secret string) (*JWTValidator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTValidator{secret: []byte(secret)}, nil
}

// Validate parses and verifies a raw token, returning its claims. The
// subject claim is required; email and name are optional.
func (v *JWTValidator) Validate(raw string) (*TokenClaims, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims := &TokenClaims{Subject: tok.Subject()}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}
	if v, ok := tok.Get("email"); ok {
		claims.Email, _ = v.(string)
	}
	if v, ok := tok.Get("name"); ok {
		claims.Name, _ = v.(string)
	}
	return claims, nil
}

// Issue signs a token for the given user. TTL zero means no expiry.
func (v *JWTValidator) Issue(userID, email, name string, ttl time.Duration) (string, error) {
	builder := jwt.NewBuilder().
		Subject(userID).
		IssuedAt(time.Now())
	if email != "" {
		builder = builder.Claim("email", email)
	}
	if name != "" {
		builder = builder.Claim("name", name)
	}
	if ttl != 0 {
		builder = builder.Expiration(time.Now().Add(ttl))
	}

	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, v.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}
