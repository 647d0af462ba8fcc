package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router
func NewRouter(handlers *Handlers, authMiddleware *AuthMiddleware, loggingMiddleware *LoggingMiddleware) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - ORDER MATTERS!
	r.Use(middleware.RequestID)      // Generate request ID first
	r.Use(middleware.RealIP)         // Extract real IP
	r.Use(loggingMiddleware.Handler) // Add logger to context with request ID
	r.Use(middleware.Recoverer)      // Panic recovery
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint (no auth required)
	r.Get("/health", handlers.Health)

	// Webhook ingestion: authenticated by shared-secret signature, not API key
	r.Post("/webhook/github", handlers.Webhook)

	// Query API (with authentication)
	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Events and derived analysis
		r.Get("/events", handlers.RecentEvents)
		r.Get("/analysis", handlers.Analysis)
		r.Get("/deployments/summary", handlers.DeploymentSummary)
		r.Get("/workflows/status", handlers.WorkflowStatus)

		// Troubleshooting
		r.Get("/runs/{run_id}/troubleshoot", handlers.Troubleshoot)

		// PR templates
		r.Get("/templates", handlers.Templates)
		r.Post("/templates/suggest", handlers.SuggestTemplate)
	})

	return r
}
