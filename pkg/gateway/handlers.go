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

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kadirpekel/launchgate/pkg/auth"
	"github.com/kadirpekel/launchgate/pkg/logger"
	"github.com/kadirpekel/launchgate/pkg/users"
)

const version = "1.0.0"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "launchgate",
		"version": version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signupRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	u, apiKey, err := s.users.Create(r.Context(), req.Email, req.Name)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		logger.GetLogger().Error("signup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signup failed"})
		return
	}

	token, err := s.validator.Issue(u.ID, u.Email, u.Name, s.tokenTTL)
	if err != nil {
		logger.GetLogger().Error("token issue failed", "user_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signup failed"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      u.ID,
		"email":   u.Email,
		"name":    u.Name,
		"plan":    u.PlanKey,
		"api_key": apiKey,
		"token":   token,
	})
}

type exchangeRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

// handleExchange trades a long-lived API key for a short-lived bearer
// token. Invalid email and invalid key are indistinguishable to the
// caller.
func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.APIKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and api_key are required"})
		return
	}

	u, err := s.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credentials"})
		return
	}
	owner, err := s.users.FindByAPIKey(r.Context(), req.APIKey)
	if err != nil || owner.ID != u.ID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := s.validator.Issue(u.ID, u.Email, u.Name, s.tokenTTL)
	if err != nil {
		logger.GetLogger().Error("token issue failed", "user_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "exchange failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int64(s.tokenTTL.Seconds()),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	p := s.plans.Resolve(id.PlanKey)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    id.UserID,
		"email": id.Email,
		"name":  id.Name,
		"plan":  p.Key,
	})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	result, err := s.dataset.Query(r.Context(), r.URL.Path, r.URL.Query())
	if err != nil {
		logger.GetLogger().Error("dataset backend failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "dataset backend unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	// An empty or malformed body is treated as an empty payload; the
	// backend decides whether it can serve the call without input.
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		payload = map[string]any{}
	}

	result, err := s.ai.Invoke(r.Context(), r.URL.Path, payload)
	if err != nil {
		logger.GetLogger().Error("ai backend failed", "route", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ai backend unavailable"})
		return
	}

	id, _ := auth.FromContext(r.Context())
	s.recorder.Record(r.Context(), id.UserID, r.URL.Path, result.Model, result.InputTokens, result.OutputTokens)

	writeJSON(w, http.StatusOK, map[string]any{
		"model": result.Model,
		"usage": map[string]any{
			"input_tokens":  result.InputTokens,
			"output_tokens": result.OutputTokens,
			"cost_usd":      s.pricer.Estimate(result.Model, result.InputTokens, result.OutputTokens),
		},
		"output": result.Output,
	})
}

func (s *Server) handleUsageToday(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	totals, err := s.ledger.TodayTotals(r.Context(), id.UserID, time.Now())
	if err != nil {
		logger.GetLogger().Error("usage aggregation failed", "user_id", id.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "usage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleUsageDaily(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be between 1 and 90"})
			return
		}
		days = n
	}

	rows, err := s.ledger.DailyByModel(r.Context(), id.UserID, days, time.Now())
	if err != nil {
		logger.GetLogger().Error("usage aggregation failed", "user_id", id.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "usage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"usage": rows,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
