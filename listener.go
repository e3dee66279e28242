package webhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Listener routes webhook payloads to the handler registered for their event
// type and returns the encoded reply.
//
// Usage:
//  1. Create a listener with NewListener
//  2. Register handlers with On or Register
//  3. Process payloads with Listen
//
// Listener is safe for concurrent use after configuration. Do not call On or
// Register after calling Listen.
type Listener struct {
	factory  *Factory
	handlers map[EventType]Handler
	audit    []AuditLog
	logger   *slog.Logger
	hooks    hooks
}

// NewListener creates a Listener with the given options.
//
// Example:
//
//	l := webhooks.NewListener(
//	    webhooks.WithLogger(logger),
//	    webhooks.WithAuditLog(redisaudit.New(client)),
//	    webhooks.WithOnSuccess(func(ctx context.Context, t webhooks.EventType, d time.Duration) {
//	        latency.WithLabelValues(t.String()).Observe(d.Seconds())
//	    }),
//	)
func NewListener(opts ...Option) *Listener {
	l := &Listener{
		factory:  defaultFactory,
		handlers: make(map[EventType]Handler),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithInspector sets the inspector used to discriminate payloads.
func WithInspector(i Inspector) Option {
	return func(l *Listener) {
		l.factory = NewFactory(i)
	}
}

// On registers h for events of type t. Only one handler may be registered per
// event type.
func (l *Listener) On(t EventType, h Handler) error {
	if !t.Valid() {
		return &RegistrationError{EventType: t, Reason: ErrUnknownEventType}
	}
	if isNil(h) {
		return &RegistrationError{EventType: t, Reason: ErrNilHandler}
	}
	if _, ok := l.handlers[t]; ok {
		return &RegistrationError{EventType: t, Reason: ErrDuplicateHandler}
	}
	l.handlers[t] = h
	return nil
}

// Handles reports whether a handler is registered for t.
func (l *Listener) Handles(t EventType) bool {
	_, ok := l.handlers[t]
	return ok
}

// Listen decodes raw, dispatches the event and returns the reply to send.
//
// The processing flow:
//  1. Attach a request id to ctx unless it already carries one
//  2. Pass the raw payload to every audit log
//  3. Decode the payload into a typed event
//  4. Look up the handler by event type; without one the reply is {"result":"ok"}
//  5. Call the handler and encode its decision
//  6. Pass the encoded reply to every audit log
//
// Decoding, handler, encoding and audit errors are returned as is; no reply
// is produced in that case. An empty payload returns ErrEmptyPayload before
// anything is logged.
func (l *Listener) Listen(ctx context.Context, raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyPayload
	}

	ctx, _ = ensureRequestID(ctx)

	if err := l.logRequest(ctx, raw); err != nil {
		return nil, err
	}

	ev, err := l.factory.New(raw)
	if err != nil {
		l.callOnDecodeError(ctx, raw, err)
		return nil, err
	}

	t := ev.Type()
	ctx = l.callOnDecode(ctx, t)

	var out []byte
	if h, ok := l.handlers[t]; ok {
		out, err = l.dispatch(ctx, t, h, ev)
	} else {
		out, err = l.handleNoHandler(ctx, t)
	}
	if err != nil {
		return nil, err
	}

	if err := l.logResponse(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// dispatch runs h and encodes its decision.
func (l *Listener) dispatch(ctx context.Context, t EventType, h Handler, ev Event) ([]byte, error) {
	l.callOnDispatch(ctx, t, h)
	l.logger.DebugContext(ctx, "dispatching event", "event_name", t)

	start := time.Now()
	out, err := l.invoke(ctx, t, h, ev)
	duration := time.Since(start)

	if err != nil {
		l.logger.ErrorContext(ctx, "handler failed", "event_name", t, "error", err, "duration", duration)
		l.callOnFailure(ctx, t, h, err, duration)
		return nil, err
	}

	l.callOnSuccess(ctx, t, h, duration)
	return out, nil
}

func (l *Listener) invoke(ctx context.Context, t EventType, h Handler, ev Event) ([]byte, error) {
	d, err := h.Handle(ctx, ev)
	if err != nil {
		return nil, err
	}
	if isNil(d) {
		return nil, &HandlerContractError{EventType: t}
	}

	out, err := d.Encode()
	if err != nil {
		var serr *SerializationError
		if !errors.As(err, &serr) {
			err = &SerializationError{Err: err}
		}
		return nil, err
	}
	return out, nil
}

// handleNoHandler replies with the default response unless a hook fails.
func (l *Listener) handleNoHandler(ctx context.Context, t EventType) ([]byte, error) {
	l.logger.InfoContext(ctx, "no handler registered", "event_name", t)

	for _, fn := range l.hooks.onNoHandler {
		if err := fn(ctx, t); err != nil {
			return nil, err
		}
	}
	return OK(), nil
}

func (l *Listener) logRequest(ctx context.Context, raw []byte) error {
	for _, a := range l.audit {
		if err := a.LogRequest(ctx, raw); err != nil {
			return &AuditError{Phase: "request", Err: err}
		}
	}
	return nil
}

func (l *Listener) logResponse(ctx context.Context, raw []byte) error {
	for _, a := range l.audit {
		if err := a.LogResponse(ctx, raw); err != nil {
			return &AuditError{Phase: "response", Err: err}
		}
	}
	return nil
}

// callOnDecode calls OnDecode hooks.
func (l *Listener) callOnDecode(ctx context.Context, t EventType) context.Context {
	for _, fn := range l.hooks.onDecode {
		ctx = fn(ctx, t)
	}
	return ctx
}

// callOnDispatch calls global and handler OnDispatch hooks.
func (l *Listener) callOnDispatch(ctx context.Context, t EventType, h Handler) {
	for _, fn := range l.hooks.onDispatch {
		fn(ctx, t)
	}
	if hh, ok := h.(OnDispatchHook); ok {
		hh.OnDispatch(ctx, t)
	}
}

// callOnSuccess calls global and handler OnSuccess hooks.
func (l *Listener) callOnSuccess(ctx context.Context, t EventType, h Handler, duration time.Duration) {
	for _, fn := range l.hooks.onSuccess {
		fn(ctx, t, duration)
	}
	if hh, ok := h.(OnSuccessHook); ok {
		hh.OnSuccess(ctx, t, duration)
	}
}

// callOnFailure calls global and handler OnFailure hooks.
func (l *Listener) callOnFailure(ctx context.Context, t EventType, h Handler, err error, duration time.Duration) {
	for _, fn := range l.hooks.onFailure {
		fn(ctx, t, err, duration)
	}
	if hh, ok := h.(OnFailureHook); ok {
		hh.OnFailure(ctx, t, err, duration)
	}
}

func (l *Listener) callOnDecodeError(ctx context.Context, raw []byte, err error) {
	l.logger.DebugContext(ctx, "decode failed", "error", err)
	for _, fn := range l.hooks.onDecodeError {
		fn(ctx, raw, err)
	}
}

// String describes the registered event types, for diagnostics.
func (l *Listener) String() string {
	var registered []EventType
	for _, t := range EventTypes() {
		if l.Handles(t) {
			registered = append(registered, t)
		}
	}
	return fmt.Sprintf("webhooks.Listener%v", registered)
}
