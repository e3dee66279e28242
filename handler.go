package webhooks

import (
	"context"
	"fmt"
	"reflect"
)

// Handler turns an event into the reply sent back to the platform.
//
// Handle must return a non-nil Decision or an error. Returning neither is a
// contract violation reported as *HandlerContractError.
//
// Example:
//
//	type acceptedHandler struct {
//	    crm CRM
//	}
//
//	func (h *acceptedHandler) Handle(ctx context.Context, ev webhooks.Event) (webhooks.Decision, error) {
//	    e := ev.(*webhooks.ChatAccepted)
//	    card, err := h.crm.Lookup(ctx, e.Visitor.Email)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return webhooks.NewResponse().SetCRMLink(card.URL), nil
//	}
type Handler interface {
	Handle(ctx context.Context, ev Event) (Decision, error)
}

// HandlerFunc is a function adapter for Handler:
//
//	l.On(webhooks.EventChatUpdated, webhooks.HandlerFunc(func(ctx context.Context, ev webhooks.Event) (webhooks.Decision, error) {
//	    return webhooks.NewResponse(), nil
//	}))
type HandlerFunc func(ctx context.Context, ev Event) (Decision, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) (Decision, error) {
	return f(ctx, ev)
}

// Register adds a handler for the event variant E. The event type is taken
// from E, so the handler receives the concrete variant without a type switch.
//
// This is a package-level function (not a method) due to Go generics limitations:
// methods cannot have type parameters independent of the receiver.
//
// Example:
//
//	webhooks.Register(l, func(ctx context.Context, e *webhooks.ChatFinished) (webhooks.Decision, error) {
//	    return webhooks.NewResponse(), archive(ctx, e.Chat)
//	})
func Register[E Event](l *Listener, fn func(ctx context.Context, ev E) (Decision, error)) error {
	var zero E
	if any(zero) == nil {
		return &RegistrationError{Reason: fmt.Errorf("%w: %T is not an event variant", ErrUnknownEventType, (*E)(nil))}
	}
	t := zero.Type()
	if fn == nil {
		return &RegistrationError{EventType: t, Reason: ErrNilHandler}
	}

	return l.On(t, HandlerFunc(func(ctx context.Context, ev Event) (Decision, error) {
		e, ok := ev.(E)
		if !ok {
			return nil, fmt.Errorf("handler for %q got %T", t, ev)
		}
		return fn(ctx, e)
	}))
}

// isNil reports whether v is nil or an interface holding a nil pointer, map,
// slice, channel or function.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
