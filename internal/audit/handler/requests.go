package handler

import (
	"net/http"
	"strconv"
	"time"

	"glint/internal/audit"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
)

// parseListQuery converts the request's query string into a domain query.
// All filters are optional; malformed values are rejected rather than
// silently ignored so a compliance export never misses records because of a
// typo in a filter.
func parseListQuery(r *http.Request) (audit.Query, error) {
	var q audit.Query
	params := r.URL.Query()

	if raw := params.Get("org_id"); raw != "" {
		orgID, err := id.ParseOrgID(raw)
		if err != nil {
			return q, err
		}
		q.OrgID = orgID
	}

	if raw := params.Get("category"); raw != "" {
		category := audit.Category(raw)
		if !category.Valid() {
			return q, dErrors.New(dErrors.CodeInvalidInput, "unknown audit category")
		}
		q.Category = category
	}

	q.FlagKey = params.Get("flag_key")
	q.IntegrationType = params.Get("integration_type")

	if raw := params.Get("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeInvalidInput, "start must be RFC3339")
		}
		q.Start = start
	}
	if raw := params.Get("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeInvalidInput, "end must be RFC3339")
		}
		q.End = end
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, dErrors.New(dErrors.CodeInvalidInput, "end must not precede start")
	}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return q, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer")
		}
		if limit > audit.MaxQueryLimit {
			return q, dErrors.New(dErrors.CodeInvalidInput, "limit exceeds maximum of "+strconv.Itoa(audit.MaxQueryLimit))
		}
		q.Limit = limit
	}
	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return q, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer")
		}
		q.Offset = offset
	}

	return q, nil
}
