package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/sacbeh/gatehouse/internal/handlers"
	"github.com/sacbeh/gatehouse/internal/middleware"
	"github.com/sacbeh/gatehouse/internal/models"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	meHandler *handlers.MeHandler,
	adminHandler *handlers.AdminHandler,
	sessions middleware.SessionVerifier,
	rateLimit middleware.RateLimitConfig,
) {
	// Credential endpoints are rate limited per client IP
	router.With(middleware.RateLimitByIP(rateLimit)).Post("/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(rateLimit)).Post("/auth/login", authHandler.Login)

	// Logout and session verification read the bearer token themselves.
	// Keeping them outside the session guard lets logout answer 204 for
	// tokens that are already retired.
	router.Post("/auth/logout", authHandler.Logout)
	router.Get("/auth/session", authHandler.Session)

	// Session-guarded routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions))

		r.Get("/me", meHandler.Me)
		r.Get("/me/roles", meHandler.Roles)
		r.Get("/me/permissions", meHandler.Permissions)

		// Account administration additionally requires user_management
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(models.PermissionUserManagement))

			r.Get("/admin/accounts", adminHandler.ListAccounts)
			r.Get("/admin/accounts/{email}", adminHandler.GetAccount)
			r.Put("/admin/accounts/{id}/status", adminHandler.UpdateStatus)
			r.Post("/admin/accounts/{id}/roles", adminHandler.AssignRole)
			r.Delete("/admin/accounts/{id}/roles/{role}", adminHandler.RevokeRole)
		})
	})
}
