// Package metrics exposes Prometheus collectors for a webhooks.Listener.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

const namespace = "jivohook"

// Outcome label values of HandlerDuration.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors of one listener.
type Metrics struct {
	EventsTotal       *prometheus.CounterVec
	UnhandledTotal    *prometheus.CounterVec
	DecodeErrorsTotal *prometheus.CounterVec
	HandlerDuration   *prometheus.HistogramVec
	HTTPRequestsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of webhook events decoded",
			},
			[]string{"event_name"},
		),
		UnhandledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unhandled_events_total",
				Help:      "Total number of events answered with the default reply",
			},
			[]string{"event_name"},
		),
		DecodeErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Total number of payloads that could not be decoded",
			},
			[]string{"reason"},
		),
		HandlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Duration of handler calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_name", "outcome"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of webhook HTTP requests by status code",
			},
			[]string{"code"},
		),
	}
}

// Options returns listener options that feed the collectors.
func (m *Metrics) Options() []webhooks.Option {
	return []webhooks.Option{
		webhooks.WithOnDecode(func(ctx context.Context, t webhooks.EventType) context.Context {
			m.EventsTotal.WithLabelValues(t.String()).Inc()
			return ctx
		}),
		webhooks.WithOnSuccess(func(_ context.Context, t webhooks.EventType, d time.Duration) {
			m.HandlerDuration.WithLabelValues(t.String(), OutcomeSuccess).Observe(d.Seconds())
		}),
		webhooks.WithOnFailure(func(_ context.Context, t webhooks.EventType, _ error, d time.Duration) {
			m.HandlerDuration.WithLabelValues(t.String(), OutcomeFailure).Observe(d.Seconds())
		}),
		webhooks.WithOnNoHandler(func(_ context.Context, t webhooks.EventType) error {
			m.UnhandledTotal.WithLabelValues(t.String()).Inc()
			return nil
		}),
		webhooks.WithOnDecodeError(func(_ context.Context, _ []byte, err error) {
			m.DecodeErrorsTotal.WithLabelValues(Reason(err)).Inc()
		}),
	}
}

// ObserveHTTP counts a served request by status code.
func (m *Metrics) ObserveHTTP(code int) {
	m.HTTPRequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// Reason classifies a decode error for the reason label.
func Reason(err error) string {
	var (
		decodeErr  *webhooks.DecodeError
		missingErr *webhooks.MissingDiscriminatorError
		unknownErr *webhooks.UnknownEventTypeError
		shapeErr   *webhooks.InvalidShapeError
	)
	switch {
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &missingErr):
		return "missing_event_name"
	case errors.As(err, &unknownErr):
		return "unknown_event"
	case errors.As(err, &shapeErr):
		return "invalid_shape"
	default:
		return "other"
	}
}
