package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agileforge/agentgov/app"
	"github.com/agileforge/agentgov/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	decisionHandler := handlers.NewDecisionHandler(deps.Governance, deps.Logger)
	quotaHandler := handlers.NewQuotaHandler(deps.Governance, deps.Logger)
	executionHandler := handlers.NewExecutionHandler(deps.Governance, deps.Logger)

	// Governance surface. The tenant always comes from the caller's
	// verified claims, never from request parameters.
	r.Route("/ai", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		// Decision ledger audit
		r.Get("/decisions", decisionHandler.HandleListDecisions)
		r.Get("/decisions/{id}", decisionHandler.HandleGetDecision)

		// Approval workflow (admin only)
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireRole("admin"))
			r.Post("/decisions/{id}/approve", decisionHandler.HandleApproveDecision)
			r.Post("/decisions/{id}/reject", decisionHandler.HandleRejectDecision)
		})

		// Quota and usage
		r.Get("/quota", quotaHandler.HandleQuotaStatus)
		r.Get("/usage/statistics", quotaHandler.HandleUsageStatistics)

		// Execution audit log
		r.Get("/executions", executionHandler.HandleListExecutions)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
