package admin

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"glint/pkg/requestcontext"
)

// RequireOperatorToken gates compliance-operator endpoints behind a shared
// token whose bcrypt hash is held in config. Verification is constant-time by
// virtue of bcrypt. Successful requests carry an admin actor in context so
// every privileged mutation is attributable in the audit trail.
func RequireOperatorToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Operator-Token")
			if token == "" || bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "operator token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"operator token required"}`))
				return
			}

			ctx := requestcontext.WithActor(r.Context(), requestcontext.ActorInfo{
				Type:       "admin",
				ID:         "operator",
				Role:       "compliance_operator",
				AuthMethod: "admin_token",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
