// Package requestid propagates a per-request correlation ID through
// context.Context, so log lines emitted anywhere during a request's
// lifetime (admin HTTP handlers, scheduler-triggered scrape runs invoked
// from an HTTP endpoint) can be grep'd together.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const key contextKey = "request_id"

// New generates a fresh request ID.
func New() string {
	return uuid.NewString()
}

// WithRequestID attaches id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key, id)
}

// FromContext returns the request ID attached to ctx, or "" if none is set.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(key).(string)
	return id
}
