package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"glint/internal/audit"
	audithandler "glint/internal/audit/handler"
	auditstore "glint/internal/audit/store"
	"glint/internal/jwtauth"
	"glint/internal/retention"
	retentionhandler "glint/internal/retention/handler"
	"glint/internal/retention/legalhold"
	eventstore "glint/internal/retention/store"
)

const operatorToken = "test-operator-token"

type noopRunner struct{}

func (noopRunner) RunWith(context.Context, retention.Policy) (*retention.PurgeEvent, error) {
	return &retention.PurgeEvent{}, nil
}

type noopAuditor struct{}

func (noopAuditor) Mutate(ctx context.Context, entry audit.Entry, fn func(ctx context.Context) error) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return fn(ctx)
}

func newTestRouter(t *testing.T, health func(ctx context.Context) error) (http.Handler, *jwtauth.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	auditSvc, err := audit.NewService(auditstore.NewInMemoryStore())
	require.NoError(t, err)

	registry, err := legalhold.NewRegistry(legalhold.NewInMemoryStore())
	require.NoError(t, err)

	policy := retention.NewPolicy(nil, false)
	jwtSvc := jwtauth.New("test-signing-key", "glint", "glint-audit")

	hash, err := bcrypt.GenerateFromPassword([]byte(operatorToken), bcrypt.MinCost)
	require.NoError(t, err)

	router := New(Deps{
		Logger:            logger,
		Audit:             audithandler.New(auditSvc, logger),
		Retention:         retentionhandler.New(registry, noopRunner{}, eventstore.NewInMemoryEventStore(), noopAuditor{}, policy, logger),
		OperatorTokenHash: string(hash),
		JWT:               jwtSvc,
		Health:            health,
	})
	return router, jwtSvc
}

func TestRouter_AuditRequiresCredentials(t *testing.T) {
	router, jwtSvc := newTestRouter(t, nil)

	t.Run("anonymous is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid JWT is accepted", func(t *testing.T) {
		token, err := jwtSvc.GenerateToken("op-1", "compliance_operator", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("operator token is accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.Header.Set("X-Operator-Token", operatorToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong operator token is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.Header.Set("X-Operator-Token", "wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouter_AdminRequiresOperatorToken(t *testing.T) {
	router, jwtSvc := newTestRouter(t, nil)

	t.Run("JWT is not enough for admin", func(t *testing.T) {
		token, err := jwtSvc.GenerateToken("op-1", "compliance_operator", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/retention", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("operator token grants admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/retention", nil)
		req.Header.Set("X-Operator-Token", operatorToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_Healthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router, _ := newTestRouter(t, func(context.Context) error { return nil })
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		router, _ := newTestRouter(t, func(context.Context) error { return errors.New("db down") })
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRouter_MetricsExposed(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
