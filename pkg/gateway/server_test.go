package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirpekel/launchgate/pkg/config"
	"github.com/kadirpekel/launchgate/pkg/plan"
	"github.com/kadirpekel/launchgate/pkg/quota"
	"github.com/kadirpekel/launchgate/pkg/usage"
	"github.com/kadirpekel/launchgate/pkg/users"
)

func newTestServer(t *testing.T, mutate func(*Deps)) *Server {
	t.Helper()

	deps := Deps{
		Config: config.Default(),
		Users:  users.NewMemoryStore(),
		Quota:  quota.NewMemoryStore(),
		Ledger: usage.NewMemoryLedger(),
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := NewServer(deps)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func signup(t *testing.T, srv *Server, email string) (apiKey, token string) {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email,
		"name":  "Test User",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	apiKey, _ = resp["api_key"].(string)
	token, _ = resp["token"].(string)
	if apiKey == "" || token == "" {
		t.Fatalf("expected credentials in signup response: %v", resp)
	}
	return apiKey, token
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t, nil)

	if rec := doJSON(t, srv, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/", "", nil); rec.Code != http.StatusOK {
		t.Errorf("root: expected 200, got %d", rec.Code)
	}
}

func TestSignupAndMe(t *testing.T) {
	srv := newTestServer(t, nil)
	_, token := signup(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var me map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if me["email"] != "ada@example.com" || me["plan"] != "free" {
		t.Errorf("unexpected profile: %v", me)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv := newTestServer(t, nil)
	signup(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/auth/signup", "", map[string]string{"email": "ada@example.com"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestExchangeAPIKeyForToken(t *testing.T) {
	srv := newTestServer(t, nil)
	apiKey, _ := signup(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/auth/exchange", "", map[string]string{
		"email":   "ada@example.com",
		"api_key": apiKey,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	token, _ := resp["token"].(string)
	if token == "" || resp["token_type"] != "Bearer" {
		t.Fatalf("unexpected exchange response: %v", resp)
	}

	// The minted token works as a bearer credential.
	if rec := doJSON(t, srv, http.MethodGet, "/users/me", token, nil); rec.Code != http.StatusOK {
		t.Errorf("expected minted token to authenticate, got %d", rec.Code)
	}
}

func TestExchangeRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t, nil)
	apiKey, _ := signup(t, srv, "ada@example.com")

	cases := []map[string]string{
		{"email": "nobody@example.com", "api_key": apiKey},
		{"email": "ada@example.com", "api_key": "not-the-key"},
		{"email": "ada@example.com"},
	}
	for _, body := range cases {
		rec := doJSON(t, srv, http.MethodPost, "/auth/exchange", "", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%v: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/api/launches", "/users/me", "/ai/usage/today"} {
		rec := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}

	rec := doJSON(t, srv, http.MethodPost, "/ai/extract", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/ai/extract: expected 401, got %d", rec.Code)
	}
}

func TestDatasetRouteHeaders(t *testing.T) {
	srv := newTestServer(t, nil)
	apiKey, _ := signup(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/api/launches?year=2025", apiKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	headers := map[string]string{
		"X-Plan":                "Free",
		"X-Plan-Period":         "day",
		"X-Plan-Data-Limit":     "100",
		"X-Plan-Data-Remaining": "100",
		"X-RateLimit-Limit":     "200",
	}
	for name, want := range headers {
		if got := rec.Header()[name]; len(got) != 1 || got[0] != want {
			t.Errorf("%s: got %v, want %q", name, got, want)
		}
	}
}

func TestAIRouteMetersAndExhausts(t *testing.T) {
	srv := newTestServer(t, nil)
	apiKey, _ := signup(t, srv, "ada@example.com")

	// The free plan allows 5 mini calls per day.
	for i := 1; i <= 5; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/ai/extract", apiKey, map[string]string{"text": "hello"})
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, srv, http.MethodPost, "/ai/extract", apiKey, map[string]string{"text": "hello"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting mini quota, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "ai quota exceeded" || body["kind"] != "mini" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestGPT4RouteRejectedOnFreePlan(t *testing.T) {
	srv := newTestServer(t, nil)
	apiKey, _ := signup(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/ai/summarize", apiKey, map[string]string{"text": "hello"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for zero gpt4 budget, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["kind"] != "gpt41" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestUsageToday(t *testing.T) {
	srv := newTestServer(t, nil)
	apiKey, _ := signup(t, srv, "ada@example.com")

	for i := 0; i < 3; i++ {
		if rec := doJSON(t, srv, http.MethodPost, "/ai/classify", apiKey, nil); rec.Code != http.StatusOK {
			t.Fatalf("classify failed: %d", rec.Code)
		}
	}

	rec := doJSON(t, srv, http.MethodGet, "/ai/usage/today", apiKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var totals usage.DayTotals
	if err := json.Unmarshal(rec.Body.Bytes(), &totals); err != nil {
		t.Fatal(err)
	}
	if totals.Calls != 3 {
		t.Errorf("expected 3 calls, got %d", totals.Calls)
	}
}

func TestUsageDailyValidatesDays(t *testing.T) {
	srv := newTestServer(t, nil)
	apiKey, _ := signup(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/ai/usage?days=500", apiKey, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/ai/usage?days=7", apiKey, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimitEndToEnd(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Config.RateLimit.UnauthLimit = 3
		d.Config.RateLimit.AuthLimit = 3
	})

	var rec *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		rec = doJSON(t, srv, http.MethodGet, "/health", "", nil)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on request 4, got %d", rec.Code)
	}
	if got := rec.Header()["X-RateLimit-Remaining"]; len(got) != 1 || got[0] != "0" {
		t.Errorf("unexpected remaining header: %v", got)
	}
}

func TestSignupBypassesRateLimit(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Config.RateLimit.UnauthLimit = 1
		d.Config.RateLimit.AuthLimit = 1
	})

	for i := 0; i < 3; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/auth/signup", "", map[string]string{
			"email": fmt.Sprintf("user%d@example.com", i),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("signup %d: expected 201, got %d", i, rec.Code)
		}
	}
}

// brokenQuotaStore fails every operation.
type brokenQuotaStore struct{}

func (brokenQuotaStore) DataUsage(context.Context, string, plan.Period, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func (brokenQuotaStore) IncrementDataUsage(context.Context, string, plan.Period, string) error {
	return errors.New("connection refused")
}

func TestQuotaFailOpenEndToEnd(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Quota = brokenQuotaStore{}
	})
	apiKey, _ := signup(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/api/launches", apiKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", rec.Code)
	}
	if len(rec.Header()["X-Plan-Data-Limit"]) != 0 {
		t.Error("expected no quota headers on fail-open")
	}
}
