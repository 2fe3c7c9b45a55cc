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

// Package gateway assembles the HTTP server: routing, the middleware
// chain (identity, rate limiting, plan quotas) and the public
// endpoints in front of the dataset and AI backends.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadirpekel/launchgate/pkg/auth"
	"github.com/kadirpekel/launchgate/pkg/config"
	"github.com/kadirpekel/launchgate/pkg/logger"
	"github.com/kadirpekel/launchgate/pkg/plan"
	"github.com/kadirpekel/launchgate/pkg/quota"
	"github.com/kadirpekel/launchgate/pkg/ratelimit"
	"github.com/kadirpekel/launchgate/pkg/usage"
	"github.com/kadirpekel/launchgate/pkg/users"
)

// UserStore is what the gateway needs from the user layer: credential
// resolution for the middleware plus signup and key exchange.
type UserStore interface {
	auth.UserSource
	Create(ctx context.Context, email, name string) (*users.User, string, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// Deps carries the collaborators the server is assembled from.
type Deps struct {
	Config  *config.Config
	Users   UserStore
	Quota   quota.CounterStore
	Ledger  usage.Ledger
	Dataset DatasetBackend
	AI      AIBackend
}

// Server is the assembled gateway.
type Server struct {
	cfg    *config.Config
	router chi.Router

	users     UserStore
	validator *auth.JWTValidator
	tokenTTL  time.Duration

	plans       *plan.Registry
	limiter     *ratelimit.Limiter
	dataLimiter *quota.DataLimiter
	aiLimiter   *quota.AILimiter

	ledger   usage.Ledger
	pricer   *usage.Pricer
	recorder *usage.Recorder

	dataset DatasetBackend
	ai      AIBackend

	stopSweeper chan struct{}
}

// NewServer wires the full middleware chain and route table.
func NewServer(deps Deps) (*Server, error) {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if deps.Quota == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("usage ledger is required")
	}

	validator, err := auth.NewJWTValidator(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	tokenTTL, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid token ttl: %w", err)
	}

	plans, err := plan.NewRegistry(cfg.Plans)
	if err != nil {
		return nil, err
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		Window:      cfg.RateLimit.Window,
		UnauthLimit: cfg.RateLimit.UnauthLimit,
		AuthLimit:   cfg.RateLimit.AuthLimit,
	})
	if err != nil {
		return nil, err
	}

	pricer := usage.NewPricer(cfg.Pricing)

	s := &Server{
		cfg:         cfg,
		users:       deps.Users,
		validator:   validator,
		tokenTTL:    tokenTTL,
		plans:       plans,
		limiter:     limiter,
		dataLimiter: quota.NewDataLimiter(plans, deps.Quota),
		aiLimiter:   quota.NewAILimiter(plans, deps.Ledger, plan.DefaultRouteClasses()),
		ledger:      deps.Ledger,
		pricer:      pricer,
		recorder:    usage.NewRecorder(deps.Ledger, pricer),
		dataset:     deps.Dataset,
		ai:          deps.AI,
		stopSweeper: make(chan struct{}),
	}
	if s.dataset == nil {
		s.dataset = StaticDatasetBackend{}
	}
	if s.ai == nil {
		s.ai = EchoAIBackend{}
	}

	s.router = s.buildRouter()
	return s, nil
}

// Router exposes the handler tree. Test entrypoint.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	authMW := auth.NewMiddleware(s.validator, s.users)
	r.Use(authMW.Optional)

	if s.cfg.RateLimit.IsEnabled() {
		r.Use(ratelimit.Middleware(s.limiter, s.cfg.RateLimit.ExcludedPaths))
	}

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/exchange", s.handleExchange)

	r.Group(func(r chi.Router) {
		r.Use(authMW.Require)

		r.Get("/users/me", s.handleMe)
		r.Get("/ai/usage/today", s.handleUsageToday)
		r.Get("/ai/usage", s.handleUsageDaily)

		r.Group(func(r chi.Router) {
			r.Use(quota.DataMiddleware(s.dataLimiter))
			r.Get("/api/*", s.handleDataset)
		})

		r.Group(func(r chi.Router) {
			r.Use(quota.AIMiddleware(s.aiLimiter))
			for route := range plan.DefaultRouteClasses() {
				r.Post(route, s.handleAI)
			}
		})
	})

	return r
}

// Start runs the server until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.RateLimit.IsEnabled() && s.cfg.RateLimit.SweepInterval > 0 {
		s.limiter.StartSweeper(s.cfg.RateLimit.SweepInterval, s.stopSweeper)
	}
	defer close(s.stopSweeper)

	srv := &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.GetLogger().Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.GetLogger().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
