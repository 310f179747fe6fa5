package handler

import (
	"time"

	"glint/internal/retention"
	"glint/internal/retention/legalhold"
)

// HoldResponse is the wire form of one legal hold.
type HoldResponse struct {
	ID              string `json:"id"`
	OrgID           string `json:"org_id,omitempty"`
	Start           string `json:"start,omitempty"`
	End             string `json:"end,omitempty"`
	InvestigationID string `json:"investigation_id,omitempty"`
	Reason          string `json:"reason"`
	CreatedBy       string `json:"created_by,omitempty"`
	CreatedAt       string `json:"created_at"`
	ReleasedAt      string `json:"released_at,omitempty"`
	Active          bool   `json:"active"`
}

// FromHold converts a domain hold to its wire form.
func FromHold(h legalhold.Hold, now time.Time) HoldResponse {
	resp := HoldResponse{
		ID:              h.ID.String(),
		InvestigationID: string(h.InvestigationID),
		Reason:          h.Reason,
		CreatedBy:       h.CreatedBy,
		CreatedAt:       h.CreatedAt.Format(time.RFC3339Nano),
		Active:          h.Active(now),
	}
	if h.OrgID != nil {
		resp.OrgID = h.OrgID.String()
	}
	if h.Start != nil {
		resp.Start = h.Start.Format(time.RFC3339Nano)
	}
	if h.End != nil {
		resp.End = h.End.Format(time.RFC3339Nano)
	}
	if h.ReleasedAt != nil {
		resp.ReleasedAt = h.ReleasedAt.Format(time.RFC3339Nano)
	}
	return resp
}

// HoldListResponse wraps the hold listing.
type HoldListResponse struct {
	Holds []HoldResponse `json:"holds"`
}

// PolicyResponse is the effective retention configuration.
type PolicyResponse struct {
	Settings          map[string]any `json:"settings"`
	DryRun            bool           `json:"dry_run"`
	LastSuccessfulRun string         `json:"last_successful_run,omitempty"`
}

// PurgeEventResponse is the wire form of one purge run record.
type PurgeEventResponse struct {
	ID         string                           `json:"id"`
	Actor      string                           `json:"actor"`
	StartedAt  string                           `json:"started_at"`
	FinishedAt string                           `json:"finished_at"`
	DryRun     bool                             `json:"dry_run"`
	Policy     map[string]any                   `json:"policy,omitempty"`
	Counts     map[string]retention.TableCounts `json:"counts"`
	Aborted    bool                             `json:"aborted"`
	Error      string                           `json:"error,omitempty"`
}

// FromPurgeEvent converts a purge event to its wire form.
func FromPurgeEvent(e retention.PurgeEvent) PurgeEventResponse {
	return PurgeEventResponse{
		ID:         e.ID.String(),
		Actor:      e.Actor,
		StartedAt:  e.StartedAt.Format(time.RFC3339Nano),
		FinishedAt: e.FinishedAt.Format(time.RFC3339Nano),
		DryRun:     e.DryRun,
		Policy:     e.Policy,
		Counts:     e.Counts,
		Aborted:    e.Aborted,
		Error:      e.Error,
	}
}

// PurgeEventListResponse wraps the purge event listing.
type PurgeEventListResponse struct {
	Events     []PurgeEventResponse `json:"events"`
	NextOffset *int                 `json:"next_offset,omitempty"`
}
