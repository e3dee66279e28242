package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
	"github.com/ChezRD/jivochat-webhooks-api/internal/logging"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const contentTypeJSON = "application/json; charset=utf-8"

// DefaultMaxBodyBytes limits request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Observer receives the status code of every served request.
type Observer interface {
	ObserveHTTP(code int)
}

// Handler serves webhook callbacks through a webhooks.Listener.
type Handler struct {
	listener *webhooks.Listener
	logger   *logging.Logger
	observer Observer
	maxBody  int64
}

type Option func(*Handler)

func WithLogger(l *logging.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxBodyBytes caps the size of accepted request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(h *Handler) {
		h.observer = o
	}
}

func NewHandler(l *webhooks.Listener, opts ...Option) *Handler {
	h := &Handler{
		listener: l,
		logger:   logging.Default(),
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id := r.Header.Get(HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, id)
	ctx := webhooks.WithRequestID(r.Context(), id)

	status := h.serve(ctx, w, r)

	if h.observer != nil {
		h.observer.ObserveHTTP(status)
	}
	h.logger.InfoContext(ctx, "webhook served",
		logging.Method(r.Method),
		logging.Path(r.URL.Path),
		logging.Status(status),
		logging.Duration(time.Since(start)),
	)
}

func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return writeResult(w, http.StatusMethodNotAllowed, "method not allowed")
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return writeResult(w, http.StatusRequestEntityTooLarge, "request body too large")
		}
		h.logger.WarnContext(ctx, "failed to read request body", logging.Error(err))
		return writeResult(w, http.StatusBadRequest, "failed to read request body")
	}

	reply, err := h.listener.Listen(ctx, body)
	switch {
	case errors.Is(err, webhooks.ErrEmptyPayload):
		w.WriteHeader(http.StatusOK)
		return http.StatusOK
	case webhooks.IsInputError(err):
		h.logger.WarnContext(ctx, "rejected webhook payload", logging.Error(err))
		return writeResult(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.ErrorContext(ctx, "webhook processing failed", logging.Error(err))
		return writeResult(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(reply); err != nil {
		h.logger.WarnContext(ctx, "failed to write reply", logging.Error(err))
	}
	return http.StatusOK
}

// writeResult writes {"result": msg} with the given status.
func writeResult(w http.ResponseWriter, status int, msg string) int {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(struct {
		Result string `json:"result"`
	}{msg}); err != nil {
		slog.Warn("failed to write result", slog.String(logging.FieldError, err.Error()))
	}
	return status
}
