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

// Package server exposes the pool backend over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"piron-pools-go/internal/api"
	"piron-pools-go/internal/metrics"
	"piron-pools-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const limiterIdleTimeout = 10 * time.Minute

// ServerConfig contains the dependencies of Server
type ServerConfig struct {
	Service       *api.Service
	Authenticator *Authenticator
	HTTP          models.ServerConfig
}

type Server struct {
	cfg     models.ServerConfig
	limiter *RateLimiter
	http    *http.Server
}

func NewServer(cfg ServerConfig) *Server {
	limiter := NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	router := newRouter(cfg.Service, cfg.Authenticator, limiter, cfg.HTTP.AllowedOrigins)

	return &Server{
		cfg:     cfg.HTTP,
		limiter: limiter,
		http: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case err, ok := <-errChan:
			if ok {
				return fmt.Errorf("http server failed: %w", err)
			}
			return nil
		case <-ticker.C:
			if n := s.limiter.Cleanup(limiterIdleTimeout); n > 0 {
				zap.L().Debug("Dropped idle rate limiters", zap.Int("count", n))
			}
		case <-ctx.Done():
			zap.L().Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
			defer cancel()
			if err := s.http.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
				return err
			}
			zap.L().Info("HTTP server stopped gracefully")
			return nil
		}
	}
}

func newRouter(svc *api.Service, auth *Authenticator, limiter *RateLimiter, allowedOrigins []string) chi.Router {
	h := &handler{svc: svc}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Handler)
		r.Use(limiter.Handler)

		r.Get("/metrics/platform", h.platformMetrics)

		r.Route("/pools", func(r chi.Router) {
			r.Get("/", h.listPools)
			r.Get("/address/{address}", h.getPoolByAddress)
			r.Get("/{poolId}", h.getPool)
			r.Get("/{poolId}/transactions", h.poolTransactions)
		})

		r.Get("/me", h.me)
		r.Put("/me/wallet", h.linkWallet)
		r.Post("/kyc", h.submitKYC)
		r.Post("/deposits", h.recordDeposit)
		r.Get("/transactions", h.myTransactions)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.listNotifications)
			r.Post("/read-all", h.markAllNotificationsRead)
			r.Post("/{notificationId}/read", h.markNotificationRead)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/access", h.accessState)
			r.Post("/bootstrap", h.bootstrap)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin(svc))

				r.Route("/pools", func(r chi.Router) {
					r.Post("/", h.createPool)
					r.Delete("/{poolId}", h.deletePool)
					r.Patch("/{poolId}/status", h.updatePoolStatus)
					r.Post("/{poolId}/approve", h.approvePool)
					r.Post("/{poolId}/reject", h.rejectPool)
					r.Post("/{poolId}/sync", h.syncPoolFromChain)
					r.Put("/{poolId}/sync", h.overwritePoolCounters)
					r.Post("/{poolId}/close-epoch", h.closeEpoch)
				})

				r.Route("/admins", func(r chi.Router) {
					r.Get("/", h.listAdmins)
					r.Post("/", h.createAdmin)
					r.Patch("/{adminId}", h.updateAdmin)
					r.Delete("/{adminId}", h.deleteAdmin)
				})
				r.Get("/actions", h.listAdminActions)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.listUsers)
					r.Get("/{userId}", h.getUser)
					r.Delete("/{userId}", h.deleteUser)
					r.Post("/{userId}/kyc", h.decideKYC)
				})

				r.Route("/settings", func(r chi.Router) {
					r.Get("/", h.listSettings)
					r.Get("/{key}", h.getSetting)
					r.Put("/{key}", h.setSetting)
				})
			})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if ww.Status() >= http.StatusInternalServerError {
			zap.L().Warn("HTTP request", fields...)
			return
		}
		zap.L().Debug("HTTP request", fields...)
	})
}
