// Package natsaudit publishes raw webhook traffic to NATS.
//
// Requests go to <prefix>.request and replies to <prefix>.response. Both
// messages carry the request id in the Jivohook-Request-Id header.
package natsaudit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

const (
	DefaultSubjectPrefix = "jivohook.audit"

	HeaderRequestID = "Jivohook-Request-Id"
	HeaderEventName = "Jivohook-Event-Name"
)

// Publisher is the subset of *nats.Conn used by Log.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// Log is a webhooks.AuditLog that publishes to NATS.
type Log struct {
	pub    Publisher
	prefix string
}

var _ webhooks.AuditLog = (*Log)(nil)

// New creates a Log publishing through pub under prefix. An empty prefix
// selects DefaultSubjectPrefix.
func New(pub Publisher, prefix string) *Log {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Log{pub: pub, prefix: prefix}
}

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "jivohook",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Connect opens a NATS connection for cfg.
func Connect(cfg Config) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

// Subject returns the subject used for kind ("request" or "response").
func (l *Log) Subject(kind string) string {
	return l.prefix + "." + kind
}

// LogRequest implements webhooks.AuditLog.
func (l *Log) LogRequest(ctx context.Context, raw []byte) error {
	msg := l.message(ctx, "request", raw)
	if t, ok := webhooks.PeekEventType(raw); ok {
		msg.Header.Set(HeaderEventName, t.String())
	}
	return l.publish(ctx, msg)
}

// LogResponse implements webhooks.AuditLog.
func (l *Log) LogResponse(ctx context.Context, raw []byte) error {
	return l.publish(ctx, l.message(ctx, "response", raw))
}

func (l *Log) message(ctx context.Context, kind string, raw []byte) *nats.Msg {
	id, ok := webhooks.RequestID(ctx)
	if !ok {
		id = uuid.NewString()
	}

	msg := nats.NewMsg(l.Subject(kind))
	msg.Data = append([]byte(nil), raw...)
	msg.Header.Set(HeaderRequestID, id)
	return msg
}

func (l *Log) publish(ctx context.Context, msg *nats.Msg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}
