package logging

import (
	"log/slog"
	"time"
)

// Common field names so that every component logs the same keys.
const (
	FieldRequestID = "request_id"
	FieldEventName = "event_name"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldBackend   = "backend"
	FieldAddr      = "addr"
)

func RequestID(id string) slog.Attr {
	return slog.String(FieldRequestID, id)
}

func EventName(name string) slog.Attr {
	return slog.String(FieldEventName, name)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for d in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

func Backend(name string) slog.Attr {
	return slog.String(FieldBackend, name)
}

func Addr(addr string) slog.Attr {
	return slog.String(FieldAddr, addr)
}
