// Package redisaudit stores raw webhook traffic in Redis.
//
// Every request is kept in a hash at <prefix>:request:<id> and its reply at
// <prefix>:response:<id>. The ids of the most recent requests are kept, newest
// first, in the list <prefix>:requests.
package redisaudit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

const (
	DefaultKeyPrefix  = "jivohook"
	DefaultTTL        = 7 * 24 * time.Hour
	DefaultMaxEntries = 10000
)

// ErrNotFound is returned when no record exists for a request id.
var ErrNotFound = errors.New("audit record not found")

// Log is a webhooks.AuditLog backed by Redis.
type Log struct {
	client     redis.Cmdable
	prefix     string
	ttl        time.Duration
	maxEntries int64
	now        func() time.Time
}

var _ webhooks.AuditLog = (*Log)(nil)

// Option configures a Log.
type Option func(*Log)

// WithKeyPrefix sets the prefix of every key written.
func WithKeyPrefix(prefix string) Option {
	return func(l *Log) { l.prefix = prefix }
}

// WithTTL sets how long records are kept. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(l *Log) { l.ttl = ttl }
}

// WithMaxEntries caps the length of the recent requests list.
func WithMaxEntries(n int64) Option {
	return func(l *Log) { l.maxEntries = n }
}

// New creates a Log writing through client.
func New(client redis.Cmdable, opts ...Option) *Log {
	l := &Log{
		client:     client,
		prefix:     DefaultKeyPrefix,
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record is a stored request or response.
type Record struct {
	ID        string
	EventName string
	Raw       []byte
	At        time.Time
}

// LogRequest implements webhooks.AuditLog.
func (l *Log) LogRequest(ctx context.Context, raw []byte) error {
	id := requestID(ctx)
	key := l.key("request", id)
	list := l.prefix + ":requests"

	eventType, _ := webhooks.PeekEventType(raw)

	pipe := l.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"raw":         raw,
		"event_name":  eventType.String(),
		"received_at": l.now().UTC().Format(time.RFC3339Nano),
	})
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	pipe.LPush(ctx, list, id)
	if l.maxEntries > 0 {
		pipe.LTrim(ctx, list, 0, l.maxEntries-1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store request %s: %w", id, err)
	}
	return nil
}

// LogResponse implements webhooks.AuditLog.
func (l *Log) LogResponse(ctx context.Context, raw []byte) error {
	id := requestID(ctx)
	key := l.key("response", id)

	pipe := l.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"raw":     raw,
		"sent_at": l.now().UTC().Format(time.RFC3339Nano),
	})
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store response %s: %w", id, err)
	}
	return nil
}

// Request returns the stored request with the given id.
func (l *Log) Request(ctx context.Context, id string) (Record, error) {
	return l.load(ctx, l.key("request", id), id, "received_at")
}

// Response returns the stored response to the request with the given id.
func (l *Log) Response(ctx context.Context, id string) (Record, error) {
	return l.load(ctx, l.key("response", id), id, "sent_at")
}

// Recent returns up to n request ids, newest first.
func (l *Log) Recent(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := l.client.LRange(ctx, l.prefix+":requests", 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent requests: %w", err)
	}
	return ids, nil
}

func (l *Log) load(ctx context.Context, key, id, atField string) (Record, error) {
	fields, err := l.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", key, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}

	rec := Record{ID: id, EventName: fields["event_name"], Raw: []byte(fields["raw"])}
	if at, err := time.Parse(time.RFC3339Nano, fields[atField]); err == nil {
		rec.At = at
	}
	return rec, nil
}

func (l *Log) key(kind, id string) string {
	return l.prefix + ":" + kind + ":" + id
}

func requestID(ctx context.Context) string {
	if id, ok := webhooks.RequestID(ctx); ok {
		return id
	}
	return uuid.NewString()
}
