package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glint/internal/audit"
	"glint/internal/retention"
	"glint/internal/retention/legalhold"
	eventstore "glint/internal/retention/store"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
)

// recordingAuditor validates entries and runs the mutation directly; the
// transactional pairing is covered by the interceptor's own tests.
type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Mutate(ctx context.Context, entry audit.Entry, mutation func(ctx context.Context) error) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := mutation(ctx); err != nil {
		return err
	}
	a.entries = append(a.entries, entry)
	return nil
}

type stubRunner struct {
	gotPolicy retention.Policy
	event     *retention.PurgeEvent
	err       error
}

func (r *stubRunner) RunWith(_ context.Context, policy retention.Policy) (*retention.PurgeEvent, error) {
	r.gotPolicy = policy
	if r.err != nil {
		return nil, r.err
	}
	return r.event, nil
}

type fixture struct {
	router  http.Handler
	holds   *legalhold.Registry
	events  *eventstore.InMemoryEventStore
	runner  *stubRunner
	auditor *recordingAuditor
}

func newFixture(t *testing.T, policy retention.Policy) *fixture {
	t.Helper()

	registry, err := legalhold.NewRegistry(legalhold.NewInMemoryStore())
	require.NoError(t, err)

	f := &fixture{
		holds:   registry,
		events:  eventstore.NewInMemoryEventStore(),
		runner:  &stubRunner{event: &retention.PurgeEvent{ID: id.NewRunID(), Actor: "system"}},
		auditor: &recordingAuditor{},
	}

	h := New(f.holds, f.runner, f.events, f.auditor, policy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/admin", h.Register)
	f.router = r
	return f
}

func defaultPolicy() retention.Policy {
	return retention.NewPolicy(map[audit.Category]int{audit.CategoryConfig: 30}, false)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateHold(t *testing.T) {
	orgID := uuid.MustParse("77777777-7777-7777-7777-777777777777").String()

	t.Run("creates an org-scoped hold and audits it", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())

		rec := postJSON(t, f.router, "/admin/legal-holds", map[string]any{
			"org_id": orgID,
			"reason": "regulatory inquiry",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp HoldResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, orgID, resp.OrgID)
		assert.True(t, resp.Active)

		require.Len(t, f.auditor.entries, 1)
		entry := f.auditor.entries[0]
		assert.Equal(t, audit.CategoryAdmin, entry.Category)
		assert.Equal(t, "legal_hold_create", entry.Action)
		assert.Equal(t, orgID, entry.OrgID.String())
	})

	t.Run("platform-wide hold is audited against the platform org", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())

		rec := postJSON(t, f.router, "/admin/legal-holds", map[string]any{
			"investigation_id": "INV-2026-017",
			"reason":           "litigation",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		require.Len(t, f.auditor.entries, 1)
		assert.Equal(t, id.PlatformOrgID, f.auditor.entries[0].OrgID)
	})

	t.Run("rejects a hold without scope", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())

		rec := postJSON(t, f.router, "/admin/legal-holds", map[string]any{
			"reason": "no scope",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.auditor.entries)
	})
}

func TestHandleReleaseHold(t *testing.T) {
	t.Run("releases an active hold", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())
		hold, err := f.holds.Create(context.Background(), legalhold.CreateRequest{
			InvestigationID: "INV-1",
			Reason:          "litigation",
		})
		require.NoError(t, err)

		rec := postJSON(t, f.router, "/admin/legal-holds/"+hold.ID.String()+"/release", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HoldResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ReleasedAt)
	})

	t.Run("unknown hold is 404", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())
		rec := postJSON(t, f.router, "/admin/legal-holds/"+id.NewHoldID().String()+"/release", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("double release is 409", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())
		hold, err := f.holds.Create(context.Background(), legalhold.CreateRequest{
			InvestigationID: "INV-1",
			Reason:          "litigation",
		})
		require.NoError(t, err)

		path := "/admin/legal-holds/" + hold.ID.String() + "/release"
		require.Equal(t, http.StatusOK, postJSON(t, f.router, path, nil).Code)
		assert.Equal(t, http.StatusConflict, postJSON(t, f.router, path, nil).Code)
	})
}

func TestHandleGetPolicy(t *testing.T) {
	t.Run("reports settings with no runs yet", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())

		req := httptest.NewRequest(http.MethodGet, "/admin/retention", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp PolicyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(30), resp.Settings["retention_config_days"])
		assert.False(t, resp.DryRun)
		assert.Empty(t, resp.LastSuccessfulRun)
	})

	t.Run("includes the last successful run", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())
		finished := time.Date(2026, 8, 2, 3, 1, 0, 0, time.UTC)
		require.NoError(t, f.events.AppendEvent(context.Background(), &retention.PurgeEvent{
			ID:         id.NewRunID(),
			Actor:      "system",
			StartedAt:  finished.Add(-time.Minute),
			FinishedAt: finished,
		}))

		req := httptest.NewRequest(http.MethodGet, "/admin/retention", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp PolicyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, finished.Format(time.RFC3339Nano), resp.LastSuccessfulRun)
	})
}

func TestHandleListPurgeEvents(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	now := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, f.events.AppendEvent(context.Background(), &retention.PurgeEvent{
		ID:         id.NewRunID(),
		Actor:      "system",
		StartedAt:  now,
		FinishedAt: now.Add(time.Minute),
		Counts:     map[string]retention.TableCounts{"config": {Eligible: 3, Purged: 2, Held: 1}},
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/purge-events", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PurgeEventListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, int64(2), resp.Events[0].Counts["config"].Purged)
	assert.Equal(t, int64(1), resp.Events[0].Counts["config"].Held)
}

func TestHandleRunPurge(t *testing.T) {
	t.Run("empty body runs with configured policy", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())

		rec := postJSON(t, f.router, "/admin/purge/run", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, f.runner.gotPolicy.DryRun())
	})

	t.Run("dry_run override is honored", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())

		rec := postJSON(t, f.router, "/admin/purge/run", map[string]any{"dry_run": true})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, f.runner.gotPolicy.DryRun())
	})

	t.Run("overlapping run maps to 409", func(t *testing.T) {
		f := newFixture(t, defaultPolicy())
		f.runner.err = dErrors.New(dErrors.CodeConflict, "a purge run is already in progress")

		rec := postJSON(t, f.router, "/admin/purge/run", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
