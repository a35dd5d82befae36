package server

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reelforge/hookrelay/internal/config"
	"github.com/reelforge/hookrelay/internal/ingest"
	"github.com/reelforge/hookrelay/internal/ledger"
	"github.com/reelforge/hookrelay/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and the
// webhook routes.
func NewRouter(cfg *config.Config, deliveries *ledger.Ledger, router *ingest.Router, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", handler.Health)

	verify := !cfg.AllowUnsignedWebhooks

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		githubHandler := handler.NewGitHubHandler(cfg.GitHubWebhookSecret, verify, deliveries, router, logger)
		renderHandler := handler.NewRenderHandler(cfg.RenderWebhookSecret, verify, deliveries, router, logger)

		r.Post("/webhook/github", githubHandler.Handle)
		r.Get("/webhook/github", handler.Health)
		r.Post("/webhook/render", renderHandler.Handle)
		r.Get("/webhook/render", handler.Health)
	})

	return r
}
