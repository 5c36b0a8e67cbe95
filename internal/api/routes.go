package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amo-platform/amo-server/internal/auth"
)

// setupAPIRoutes configures the API routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)

	// Public authentication routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/google", s.handleGoogleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/signup", s.handleSignup)
		r.Post("/verify", s.handleVerify)
		r.Post("/verify/resend", s.handleResendVerification)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.With(s.requireClass(auth.ClassAuthenticated)).
			Get("/auth/me", s.handleGetCurrentAccount)

		r.Route("/accounts", func(r chi.Router) {
			r.Use(s.requireClass(auth.ClassAdminAccounts))
			r.Get("/", s.handleListAccounts)
			r.Get("/{id}", s.handleGetAccount)
			r.Put("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
			r.Get("/{id}/activities", s.handleListAccountActivities)
		})

		r.Route("/tenants", func(r chi.Router) {
			// Single-tenant reads: admins reach any tenant, users only
			// their own.
			r.With(s.requireClass(auth.ClassTenantSelf)).
				Get("/{id}", s.handleGetTenant)
			r.With(s.requireClass(auth.ClassTenantSelf)).
				Get("/{id}/activities", s.handleListTenantActivities)
			r.With(s.requireClass(auth.ClassTenantSelf)).
				Get("/{id}/license", s.handleGetTenantLicense)

			r.Group(func(r chi.Router) {
				r.Use(s.requireClass(auth.ClassAdminTenants))
				r.Get("/", s.handleListTenants)
				r.Post("/", s.handleCreateTenant)
				r.Put("/{id}", s.handleUpdateTenant)
				r.Delete("/{id}", s.handleDeleteTenant)
				r.Post("/{id}/lock", s.handleLockTenant)
				r.Post("/{id}/unlock", s.handleUnlockTenant)
			})
		})

		r.Route("/licenses", func(r chi.Router) {
			r.Use(s.requireClass(auth.ClassAdminLicenses))
			r.Get("/", s.handleListLicenses)
			r.Post("/", s.handleRenewLicense)
			r.Get("/{id}", s.handleGetLicense)
		})
	})
}

// handleHealth returns service health
func (s *RESTServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
