package webhooks

import (
	"context"
	"time"
)

// OnDecodeFunc is called after a payload has been turned into a typed event.
// Use this to enrich the context with logging fields or trace spans.
// The returned context is used for the rest of the request.
type OnDecodeFunc func(ctx context.Context, t EventType) context.Context

// OnDispatchFunc is called just before the handler executes.
type OnDispatchFunc func(ctx context.Context, t EventType)

// OnSuccessFunc is called after the handler returned a decision that was
// encoded successfully.
type OnSuccessFunc func(ctx context.Context, t EventType, duration time.Duration)

// OnFailureFunc is called after the handler fails, returns no decision, or
// returns a decision that cannot be encoded.
type OnFailureFunc func(ctx context.Context, t EventType, err error, duration time.Duration)

// OnNoHandlerFunc is called when no handler is registered for the event type.
// Return nil to reply with the default response, return an error to fail.
type OnNoHandlerFunc func(ctx context.Context, t EventType) error

// OnDecodeErrorFunc is called when a payload cannot be turned into an event.
// The error is returned from Listen regardless of the hook.
type OnDecodeErrorFunc func(ctx context.Context, raw []byte, err error)

// hooks holds all configured hook functions.
type hooks struct {
	onDecode      []OnDecodeFunc
	onDispatch    []OnDispatchFunc
	onSuccess     []OnSuccessFunc
	onFailure     []OnFailureFunc
	onNoHandler   []OnNoHandlerFunc
	onDecodeError []OnDecodeErrorFunc
}

// Option configures a Listener.
type Option func(*Listener)

// WithOnDecode adds a hook called after a payload is decoded into an event.
// Multiple hooks are called in order, with context chaining through each.
//
// Example:
//
//	webhooks.WithOnDecode(func(ctx context.Context, t webhooks.EventType) context.Context {
//	    return logx.WithCtx(ctx, slog.String("event", t.String()))
//	})
func WithOnDecode(fn OnDecodeFunc) Option {
	return func(l *Listener) {
		l.hooks.onDecode = append(l.hooks.onDecode, fn)
	}
}

// WithOnDispatch adds a hook called just before the handler executes.
// Multiple hooks are called in order.
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(l *Listener) {
		l.hooks.onDispatch = append(l.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after the handler completes successfully.
// Multiple hooks are called in order.
//
// Example:
//
//	webhooks.WithOnSuccess(func(ctx context.Context, t webhooks.EventType, d time.Duration) {
//	    handled.WithLabelValues(t.String()).Observe(d.Seconds())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(l *Listener) {
		l.hooks.onSuccess = append(l.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after the handler fails.
// Multiple hooks are called in order.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(l *Listener) {
		l.hooks.onFailure = append(l.hooks.onFailure, fn)
	}
}

// WithOnNoHandler adds a hook called when no handler is registered for the
// event type. Return nil to reply {"result":"ok"}, return an error to fail.
// Multiple hooks are called in order; first error wins.
//
// Example:
//
//	webhooks.WithOnNoHandler(func(ctx context.Context, t webhooks.EventType) error {
//	    logger.WarnContext(ctx, "unhandled event", "event", t)
//	    return nil
//	})
func WithOnNoHandler(fn OnNoHandlerFunc) Option {
	return func(l *Listener) {
		l.hooks.onNoHandler = append(l.hooks.onNoHandler, fn)
	}
}

// WithOnDecodeError adds a hook called when a payload cannot be decoded into
// an event. Multiple hooks are called in order.
func WithOnDecodeError(fn OnDecodeErrorFunc) Option {
	return func(l *Listener) {
		l.hooks.onDecodeError = append(l.hooks.onDecodeError, fn)
	}
}

// OnDispatchHook is an optional interface that handlers can implement to add
// handler-specific pre-dispatch behavior. Called after global OnDispatch hooks.
type OnDispatchHook interface {
	OnDispatch(ctx context.Context, t EventType)
}

// OnSuccessHook is an optional interface that handlers can implement to add
// handler-specific behavior on success. Called after global OnSuccess hooks.
type OnSuccessHook interface {
	OnSuccess(ctx context.Context, t EventType, duration time.Duration)
}

// OnFailureHook is an optional interface that handlers can implement to add
// handler-specific behavior on failure. Called after global OnFailure hooks.
type OnFailureHook interface {
	OnFailure(ctx context.Context, t EventType, err error, duration time.Duration)
}
