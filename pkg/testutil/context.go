package testutil

import (
	"context"
	"net/http"
	"time"

	"glint/pkg/requestcontext"
)

// WithActor stamps an acting principal onto the request context, simulating
// what the auth middleware does for authenticated requests.
func WithActor(req *http.Request, actor requestcontext.ActorInfo) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithOperator stamps an operator actor authenticated via JWT.
func WithOperator(req *http.Request, actorID string) *http.Request {
	return WithActor(req, requestcontext.ActorInfo{
		Type:       "user",
		ID:         actorID,
		Role:       "compliance_operator",
		AuthMethod: "jwt",
	})
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request-scoped clock, so services that read
// requestcontext.Now see a deterministic time.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
