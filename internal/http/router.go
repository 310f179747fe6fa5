// Package httpapi assembles the engine's HTTP surface: the read-only audit
// query API, the operator admin endpoints, and the health/metrics plumbing.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "glint/internal/audit/handler"
	"glint/internal/jwtauth"
	retentionhandler "glint/internal/retention/handler"
	"glint/pkg/platform/httputil"
	adminmw "glint/pkg/platform/middleware/admin"
	authmw "glint/pkg/platform/middleware/auth"
	"glint/pkg/platform/middleware/metadata"
	"glint/pkg/platform/middleware/requestid"
	"glint/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger *slog.Logger

	Audit     *audithandler.Handler
	Retention *retentionhandler.Handler

	// OperatorTokenHash is the bcrypt hash gating /admin. Empty disables
	// the admin surface entirely.
	OperatorTokenHash string

	// JWT validates bearer tokens on the read-only audit API.
	JWT *jwtauth.Service

	// Health reports readiness of downstream dependencies.
	Health func(ctx context.Context) error
}

// New builds the router. The audit API accepts either operator credential
// (JWT for compliance tooling, the shared token for break-glass access);
// admin endpoints require the token.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthz(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	jwtGate := authmw.RequireOperator(jwtValidator{deps.JWT}, deps.Logger)
	tokenGate := adminmw.RequireOperatorToken(deps.OperatorTokenHash, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(either(tokenGate, jwtGate))
		deps.Audit.Register(r)
	})

	if deps.OperatorTokenHash != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(tokenGate)
			deps.Retention.Register(r)
		})
	}

	return r
}

// either applies the token gate when the operator header is present and the
// JWT gate otherwise.
func either(tokenGate, jwtGate func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withToken := tokenGate(next)
		withJWT := jwtGate(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Operator-Token") != "" {
				withToken.ServeHTTP(w, r)
				return
			}
			withJWT.ServeHTTP(w, r)
		})
	}
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// jwtValidator adapts the JWT service to the auth middleware contract.
type jwtValidator struct {
	svc *jwtauth.Service
}

func (v jwtValidator) ValidateToken(tokenString string) (string, string, error) {
	claims, err := v.svc.ValidateToken(tokenString)
	if err != nil {
		return "", "", err
	}
	return claims.ActorID, claims.Role, nil
}
