package webhooks

import (
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned by Listen when the request body is empty.
var ErrEmptyPayload = errors.New("empty payload")

// Registration failure reasons. Match them with errors.Is on a *RegistrationError.
var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrNilHandler       = errors.New("handler is not invocable")
	ErrDuplicateHandler = errors.New("handler already registered")
)

// DecodeError reports a webhook body that is not a JSON object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode webhook payload: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// MissingDiscriminatorError reports a payload without a usable event_name.
type MissingDiscriminatorError struct {
	Field string
}

func (e *MissingDiscriminatorError) Error() string {
	return fmt.Sprintf("payload does not contain %q field (not a webhook request?)", e.Field)
}

// UnknownEventTypeError reports an event_name outside the known set.
type UnknownEventTypeError struct {
	EventType string
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.EventType)
}

// InvalidShapeError reports a field whose value cannot be converted to the
// declared shape. It covers both missing required values and wrong types.
type InvalidShapeError struct {
	Field string
	Shape string
	Err   error
}

func (e *InvalidShapeError) Error() string {
	msg := fmt.Sprintf("field %q: invalid data for %s", e.Field, e.Shape)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidShapeError) Unwrap() error { return e.Err }

// RegistrationError reports a handler that could not be registered.
// Reason is one of ErrUnknownEventType, ErrNilHandler or ErrDuplicateHandler.
type RegistrationError struct {
	EventType EventType
	Reason    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register handler for %q: %v", e.EventType, e.Reason)
}

func (e *RegistrationError) Unwrap() error { return e.Reason }

// HandlerContractError reports a handler that returned neither a decision nor
// an error. The handler is misbehaving, not the input.
type HandlerContractError struct {
	EventType EventType
}

func (e *HandlerContractError) Error() string {
	return fmt.Sprintf("handler for %q returned an invalid response", e.EventType)
}

// SerializationError reports a decision that could not be encoded.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string { return "encode response: " + e.Err.Error() }
func (e *SerializationError) Unwrap() error { return e.Err }

// AuditError reports a failing AuditLog. Phase is "request" or "response".
type AuditError struct {
	Phase string
	Err   error
}

func (e *AuditError) Error() string { return "audit " + e.Phase + ": " + e.Err.Error() }
func (e *AuditError) Unwrap() error { return e.Err }

// IsInputError reports whether err was caused by the incoming payload rather
// than by configuration, a handler, or a collaborator.
func IsInputError(err error) bool {
	var (
		decodeErr  *DecodeError
		missingErr *MissingDiscriminatorError
		unknownErr *UnknownEventTypeError
		shapeErr   *InvalidShapeError
	)
	return errors.Is(err, ErrEmptyPayload) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &missingErr) ||
		errors.As(err, &unknownErr) ||
		errors.As(err, &shapeErr)
}
