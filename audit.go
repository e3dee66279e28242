package webhooks

import (
	"context"

	"github.com/google/uuid"
)

// AuditLog records the raw traffic of a listener. LogRequest receives the
// payload exactly as received, before it is decoded; LogResponse receives the
// reply exactly as it will be sent.
//
// The request id of the cycle is available through RequestID(ctx) in both
// calls, so implementations can correlate the two records.
type AuditLog interface {
	LogRequest(ctx context.Context, raw []byte) error
	LogResponse(ctx context.Context, raw []byte) error
}

// WithAuditLog adds an audit log. Multiple logs are called in order. A failing
// log aborts the listen cycle with *AuditError.
func WithAuditLog(a AuditLog) Option {
	return func(l *Listener) {
		l.audit = append(l.audit, a)
	}
}

type requestIDKey struct{}

// WithRequestID returns a context carrying id as the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ensureRequestID returns ctx with a request id, generating one if needed.
func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := RequestID(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}
