/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"assetbridge-nexus/internal/accounting"
	"assetbridge-nexus/internal/auth"
	"assetbridge-nexus/internal/kyc"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/premium"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

// Pinger reports store connectivity for the health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP layer delegates to
type Deps struct {
	Config     *models.Config
	Store      Pinger
	Accounting *accounting.Service
	KYC        *kyc.Service
	Premium    *premium.Service
	Auth       *auth.Service
	Redis      *redis.Client // nil disables rate limiting
}

// Server is the REST API. Handlers parse requests, call the services and
// map classified errors onto the response envelope.
type Server struct {
	cfg        *models.Config
	store      Pinger
	accounting *accounting.Service
	kyc        *kyc.Service
	premium    *premium.Service
	auth       *auth.Service
	limiter    *rateLimiter
	production bool
}

func NewServer(deps Deps) *Server {
	s := &Server{
		cfg:        deps.Config,
		store:      deps.Store,
		accounting: deps.Accounting,
		kyc:        deps.KYC,
		premium:    deps.Premium,
		auth:       deps.Auth,
		production: deps.Config.IsProduction(),
	}
	if deps.Redis != nil && deps.Config.Redis.RateLimitMax > 0 {
		s.limiter = newRateLimiter(deps.Redis, deps.Config.Redis.RateLimitMax, deps.Config.Redis.RateLimitWindow)
	}
	return s
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "persona-signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(limitBody(s.cfg.Server.MaxBodyBytes))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Post("/wallet-connect", s.walletConnect)
			r.With(s.requireAuth).Get("/me", s.me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{userId}", s.getUser)
			r.Put("/{userId}", s.updateUser)
		})

		r.Route("/credit", func(r chi.Router) {
			r.Get("/", s.listDeals)
			r.Get("/user/{userId}/investments", s.userInvestments)
			r.Get("/{dealId}", s.getDeal)
			r.Post("/{dealId}/invest", s.invest)
		})

		r.Route("/vault", func(r chi.Router) {
			r.Get("/{userId}", s.getVault)
			r.Post("/{userId}/deposit", s.deposit)
			r.Post("/{userId}/withdraw", s.withdraw)
			r.Get("/{userId}/yields", s.yields)
		})

		r.Route("/kyc", func(r chi.Router) {
			r.Get("/status/{userId}", s.kycStatus)
			r.Post("/verify", s.kycVerify)
			r.Post("/webhook", s.kycWebhook)
			r.Post("/cancel", s.kycCancel)
		})

		r.Route("/premium", func(r chi.Router) {
			r.Get("/status/{userId}", s.premiumStatus)
			r.Post("/subscribe", s.subscribe)
			r.Post("/confirm-payment", s.confirmPayment)
			r.Post("/cancel-subscription", s.cancelSubscription)
			r.Get("/analytics/{userId}", s.analytics)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Route not found"})
	})
	return r
}

type healthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
}

// HealthCheck pings the store
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "healthy", Timestamp: time.Now().UTC(), Database: "connected"}
	if err := s.HealthCheck(r.Context()); err != nil {
		status.Status = "unhealthy"
		status.Database = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Data: status})
		return
	}
	ok(w, "", status)
}
