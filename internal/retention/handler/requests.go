package handler

import (
	"time"

	"glint/internal/retention/legalhold"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
)

// CreateHoldRequest is the wire form of a new legal hold.
type CreateHoldRequest struct {
	OrgID           string `json:"org_id,omitempty"`
	Start           string `json:"start,omitempty"`
	End             string `json:"end,omitempty"`
	InvestigationID string `json:"investigation_id,omitempty"`
	Reason          string `json:"reason"`

	parsed legalhold.CreateRequest
}

// Validate parses and validates the request; the parsed domain request is
// cached for ToDomain.
func (r *CreateHoldRequest) Validate() error {
	req := legalhold.CreateRequest{
		InvestigationID: id.InvestigationID(r.InvestigationID),
		Reason:          r.Reason,
	}

	if r.OrgID != "" {
		orgID, err := id.ParseOrgID(r.OrgID)
		if err != nil {
			return err
		}
		req.OrgID = &orgID
	}
	if r.Start != "" {
		start, err := time.Parse(time.RFC3339, r.Start)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "start must be RFC3339")
		}
		req.Start = &start
	}
	if r.End != "" {
		end, err := time.Parse(time.RFC3339, r.End)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "end must be RFC3339")
		}
		req.End = &end
	}

	if err := req.Validate(); err != nil {
		return err
	}
	r.parsed = req
	return nil
}

// ToDomain returns the validated domain request.
func (r *CreateHoldRequest) ToDomain() legalhold.CreateRequest {
	return r.parsed
}

// RunPurgeRequest triggers a manual purge run. DryRun nil means "use the
// configured setting".
type RunPurgeRequest struct {
	DryRun *bool `json:"dry_run,omitempty"`
}

// Validate implements httputil.Validatable; there is nothing to check.
func (r *RunPurgeRequest) Validate() error { return nil }
