package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"glint/internal/audit"
	"glint/pkg/platform/httputil"
	"glint/pkg/requestcontext"
)

// Service defines the read-only audit operations the API exposes. There is
// deliberately no write endpoint: records enter the log only through the
// write-through interceptor.
type Service interface {
	List(ctx context.Context, q audit.Query) ([]audit.Record, error)
}

// Handler wires the audit query endpoint to the audit service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audit handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.HandleList)
}

// HandleList handles GET /audit requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	q, err := parseListQuery(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid audit query",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	q.Normalize()

	records, err := h.service.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit records listed",
		"request_id", requestID,
		"org_id", q.OrgID,
		"category", q.Category,
		"count", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromRecords(records, q))
}
