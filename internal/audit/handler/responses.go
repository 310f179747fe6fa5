package handler

import (
	"time"

	"glint/internal/audit"
)

// RecordResponse is the wire form of one audit record.
type RecordResponse struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	OccurredAt string `json:"occurred_at"`

	ActorType  string `json:"actor_type,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorRole  string `json:"actor_role,omitempty"`
	AuthMethod string `json:"auth_method,omitempty"`

	OrgID        string `json:"org_id"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id,omitempty"`
	Action       string `json:"action"`

	BeforeState map[string]any `json:"before_state,omitempty"`
	AfterState  map[string]any `json:"after_state,omitempty"`

	FlagKey         string `json:"flag_key,omitempty"`
	IntegrationType string `json:"integration_type,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
	ClientIP        string `json:"client_ip,omitempty"`
	UserAgent       string `json:"user_agent,omitempty"`
}

// ListResponse pages through audit records. NextOffset is only set when the
// page was full, so clients stop paginating when it is absent.
type ListResponse struct {
	Records    []RecordResponse `json:"records"`
	NextOffset *int             `json:"next_offset,omitempty"`
}

// FromRecord converts a domain record to its wire form.
func FromRecord(r audit.Record) RecordResponse {
	return RecordResponse{
		ID:              r.ID.String(),
		Category:        string(r.Category),
		OccurredAt:      r.OccurredAt.Format(time.RFC3339Nano),
		ActorType:       r.ActorType,
		ActorID:         r.ActorID,
		ActorRole:       r.ActorRole,
		AuthMethod:      r.AuthMethod,
		OrgID:           r.OrgID.String(),
		ResourceType:    r.ResourceType,
		ResourceID:      r.ResourceID,
		Action:          r.Action,
		BeforeState:     r.BeforeState,
		AfterState:      r.AfterState,
		FlagKey:         r.FlagKey,
		IntegrationType: r.IntegrationType,
		RequestID:       r.RequestID,
		ClientIP:        r.ClientIP,
		UserAgent:       r.UserAgent,
	}
}

// FromRecords builds the list response for one page.
func FromRecords(records []audit.Record, q audit.Query) ListResponse {
	resp := ListResponse{Records: make([]RecordResponse, 0, len(records))}
	for _, r := range records {
		resp.Records = append(resp.Records, FromRecord(r))
	}
	if len(records) == q.Limit {
		next := q.Offset + q.Limit
		resp.NextOffset = &next
	}
	return resp
}
