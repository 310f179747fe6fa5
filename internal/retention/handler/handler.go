package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"glint/internal/audit"
	"glint/internal/retention"
	"glint/internal/retention/legalhold"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
	"glint/pkg/platform/httputil"
	"glint/pkg/requestcontext"
)

const defaultEventPageSize = 50

// HoldService defines the legal hold operations the API exposes.
type HoldService interface {
	Create(ctx context.Context, req legalhold.CreateRequest) (*legalhold.Hold, error)
	List(ctx context.Context) ([]legalhold.Hold, error)
	Release(ctx context.Context, holdID id.HoldID) (*legalhold.Hold, error)
}

// PurgeRunner triggers retention runs with an explicit policy.
type PurgeRunner interface {
	RunWith(ctx context.Context, policy retention.Policy) (*retention.PurgeEvent, error)
}

// EventLister pages through recorded purge runs.
type EventLister interface {
	ListEvents(ctx context.Context, limit, offset int) ([]retention.PurgeEvent, error)
	LastSuccess(ctx context.Context) (retention.PurgeEvent, bool, error)
}

// Auditor runs a mutation and its audit record in one transaction. Legal
// hold changes go through it so hold management is itself on the record.
type Auditor interface {
	Mutate(ctx context.Context, entry audit.Entry, mutation func(ctx context.Context) error) error
}

// Handler wires the operator-facing retention endpoints.
type Handler struct {
	holds   HoldService
	runner  PurgeRunner
	events  EventLister
	auditor Auditor
	policy  retention.Policy
	logger  *slog.Logger
}

// New constructs the retention admin handler.
func New(holds HoldService, runner PurgeRunner, events EventLister, auditor Auditor, policy retention.Policy, logger *slog.Logger) *Handler {
	return &Handler{
		holds:   holds,
		runner:  runner,
		events:  events,
		auditor: auditor,
		policy:  policy,
		logger:  logger,
	}
}

// Register mounts the retention endpoints on the router. The router wraps
// them with the operator-token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/legal-holds", h.HandleCreateHold)
	r.Get("/legal-holds", h.HandleListHolds)
	r.Post("/legal-holds/{holdID}/release", h.HandleReleaseHold)
	r.Get("/retention", h.HandleGetPolicy)
	r.Get("/purge-events", h.HandleListPurgeEvents)
	r.Post("/purge/run", h.HandleRunPurge)
}

// HandleCreateHold handles POST /admin/legal-holds.
func (h *Handler) HandleCreateHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateHoldRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	domainReq := req.ToDomain()

	var hold *legalhold.Hold
	err := h.auditor.Mutate(ctx, holdEntry(domainReq, "legal_hold_create"), func(txCtx context.Context) error {
		created, err := h.holds.Create(txCtx, domainReq)
		if err != nil {
			return err
		}
		hold = created
		return nil
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "legal hold creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromHold(*hold, requestcontext.Now(ctx)))
}

// HandleListHolds handles GET /admin/legal-holds.
func (h *Handler) HandleListHolds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holds, err := h.holds.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "legal hold listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(ctx)
	resp := HoldListResponse{Holds: make([]HoldResponse, 0, len(holds))}
	for _, hold := range holds {
		resp.Holds = append(resp.Holds, FromHold(hold, now))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleReleaseHold handles POST /admin/legal-holds/{holdID}/release.
func (h *Handler) HandleReleaseHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	holdID, err := id.ParseHoldID(chi.URLParam(r, "holdID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var hold *legalhold.Hold
	entry := audit.Entry{
		Category:     audit.CategoryAdmin,
		OrgID:        id.PlatformOrgID,
		ResourceType: "legal_hold",
		ResourceID:   holdID.String(),
		Action:       "legal_hold_release",
	}
	err = h.auditor.Mutate(ctx, entry, func(txCtx context.Context) error {
		released, err := h.holds.Release(txCtx, holdID)
		if err != nil {
			return err
		}
		hold = released
		return nil
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "legal hold release failed",
			"request_id", requestID,
			"hold_id", holdID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromHold(*hold, requestcontext.Now(ctx)))
}

// HandleGetPolicy handles GET /admin/retention.
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := PolicyResponse{
		Settings: h.policy.Snapshot(),
		DryRun:   h.policy.DryRun(),
	}
	last, found, err := h.events.LastSuccess(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "last purge run lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else if found {
		resp.LastSuccessfulRun = last.FinishedAt.Format(time.RFC3339Nano)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleListPurgeEvents handles GET /admin/purge-events.
func (h *Handler) HandleListPurgeEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultEventPageSize
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer"))
			return
		}
		offset = n
	}

	events, err := h.events.ListEvents(ctx, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "purge event listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list purge events"))
		return
	}

	resp := PurgeEventListResponse{Events: make([]PurgeEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, FromPurgeEvent(e))
	}
	if len(events) == limit {
		next := offset + limit
		resp.NextOffset = &next
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRunPurge handles POST /admin/purge/run.
func (h *Handler) HandleRunPurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	// An empty body means "run with the configured settings".
	var req RunPurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	policy := h.policy
	if req.DryRun != nil {
		policy = policy.WithDryRun(*req.DryRun)
	}

	event, err := h.runner.RunWith(ctx, policy)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual purge run failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual purge run finished",
		"request_id", requestID,
		"run_id", event.ID,
		"dry_run", event.DryRun,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromPurgeEvent(*event))
}

// holdEntry builds the audit entry for a hold mutation. Holds scoped to an
// org are recorded against it; platform-wide holds go to the reserved
// platform org.
func holdEntry(req legalhold.CreateRequest, action string) audit.Entry {
	orgID := id.PlatformOrgID
	if req.OrgID != nil {
		orgID = *req.OrgID
	}
	after := map[string]any{
		"reason": req.Reason,
	}
	if req.InvestigationID != "" {
		after["investigation_id"] = string(req.InvestigationID)
	}
	if req.Start != nil {
		after["start"] = req.Start.Format(time.RFC3339Nano)
	}
	if req.End != nil {
		after["end"] = req.End.Format(time.RFC3339Nano)
	}
	return audit.Entry{
		Category:     audit.CategoryAdmin,
		OrgID:        orgID,
		ResourceType: "legal_hold",
		Action:       action,
		AfterState:   after,
	}
}
