package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/amo-platform/amo-server/internal/activity"
	"github.com/amo-platform/amo-server/internal/auth"
	"github.com/amo-platform/amo-server/internal/config"
	"github.com/amo-platform/amo-server/internal/license"
	"github.com/amo-platform/amo-server/internal/mail"
	"github.com/amo-platform/amo-server/internal/storage"
	"github.com/amo-platform/amo-server/internal/validation"
	"github.com/amo-platform/amo-server/internal/verification"
)

// requestTimeout bounds every request, including the underlying store
// calls
const requestTimeout = 10 * time.Second

// RESTServer represents the REST API server
type RESTServer struct {
	config       *config.Config
	store        storage.Store
	jwt          *auth.JWTManager
	auth         *auth.Authenticator
	authz        *auth.Authorizer
	verification *verification.Flow
	licenses     *license.Service
	recorder     *activity.Recorder
	validator    *validation.Validator
	router       chi.Router
	server       *http.Server
}

// NewRESTServer creates a new REST API server. All collaborators are
// injected so tests can substitute fakes.
func NewRESTServer(cfg *config.Config, store storage.Store, sender mail.Sender, verifier auth.AssertionVerifier, nc *nats.Conn) *RESTServer {
	jwtManager := auth.NewJWTManager(&cfg.JWT)
	recorder := activity.NewRecorder(store, nc)

	s := &RESTServer{
		config:       cfg,
		store:        store,
		jwt:          jwtManager,
		auth:         auth.NewAuthenticator(store, jwtManager, verifier),
		authz:        auth.NewAuthorizer(store),
		verification: verification.NewFlow(store, sender, recorder),
		licenses:     license.NewService(store, recorder),
		recorder:     recorder,
		validator:    validation.NewValidator(),
		router:       chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router, used by handler tests
func (s *RESTServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type contextKey string

const claimsKey contextKey = "claims"

// claimsFromContext returns the session claims set by authMiddleware,
// nil for unauthenticated requests
func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// authMiddleware resolves the bearer token into session claims
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := s.jwt.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireClass gates a route subtree with the declarative policy for
// the given route class. Tenant-scoped classes take the resource owner
// from the {id} path parameter.
func (s *RESTServer) requireClass(class auth.RouteClass) func(http.Handler) http.Handler {
	policy, ok := auth.PolicyFor(class)
	if !ok {
		panic(fmt.Sprintf("no policy for route class %q", class))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tenantID *uuid.UUID
			if policy.TenantScoped {
				id, err := uuid.Parse(chi.URLParam(r, "id"))
				if err != nil {
					s.respondError(w, http.StatusBadRequest, "invalid tenant id")
					return
				}
				tenantID = &id
			}

			claims := claimsFromContext(r.Context())
			if err := s.authz.Authorize(r.Context(), claims, policy.Requirement(tenantID)); err != nil {
				s.respondAppError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
