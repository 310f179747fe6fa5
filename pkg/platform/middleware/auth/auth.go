package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"glint/pkg/requestcontext"
)

// Validator verifies an operator bearer token and returns the actor it
// represents. The concrete implementation lives in internal/jwtauth.
type Validator interface {
	ValidateToken(tokenString string) (actorID, role string, err error)
}

// RequireOperator gates the read-only audit API behind operator JWTs.
// The verified actor is placed in context for audit attribution.
func RequireOperator(validator Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			actorID, role, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), requestcontext.ActorInfo{
				Type:       "user",
				ID:         actorID,
				Role:       role,
				AuthMethod: "jwt",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
