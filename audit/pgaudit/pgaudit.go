// Package pgaudit stores raw webhook traffic in PostgreSQL.
package pgaudit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

// ErrNotFound is returned when no record exists for a request id.
var ErrNotFound = errors.New("audit record not found")

// Schema creates the audit tables. Bodies are stored as bytea because a
// request body is recorded before it is known to be valid JSON or even valid
// UTF-8.
const Schema = `
CREATE TABLE IF NOT EXISTS webhook_request_log (
	id          uuid PRIMARY KEY,
	event_name  text NOT NULL DEFAULT '',
	body        bytea NOT NULL,
	received_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook_response_log (
	request_id uuid PRIMARY KEY,
	body       bytea NOT NULL,
	sent_at    timestamptz NOT NULL
);
`

// DB is the subset of *pgxpool.Pool used by Log.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Log is a webhooks.AuditLog backed by PostgreSQL.
type Log struct {
	db  DB
	now func() time.Time
}

var _ webhooks.AuditLog = (*Log)(nil)

// New creates a Log using db.
func New(db DB) *Log {
	return &Log{db: db, now: time.Now}
}

// Connect opens a connection pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the audit tables if they do not exist.
func (l *Log) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// LogRequest implements webhooks.AuditLog.
func (l *Log) LogRequest(ctx context.Context, raw []byte) error {
	id := recordID(ctx)
	query := `
		INSERT INTO webhook_request_log (id, event_name, body, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET event_name = EXCLUDED.event_name, body = EXCLUDED.body, received_at = EXCLUDED.received_at
	`
	eventType, _ := webhooks.PeekEventType(raw)
	if _, err := l.db.Exec(ctx, query, id, textColumn(eventType.String()), raw, l.now().UTC()); err != nil {
		return fmt.Errorf("insert request %s: %w", id, err)
	}
	return nil
}

// LogResponse implements webhooks.AuditLog.
func (l *Log) LogResponse(ctx context.Context, raw []byte) error {
	id := recordID(ctx)
	query := `
		INSERT INTO webhook_response_log (request_id, body, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (request_id) DO UPDATE
		SET body = EXCLUDED.body, sent_at = EXCLUDED.sent_at
	`
	if _, err := l.db.Exec(ctx, query, id, raw, l.now().UTC()); err != nil {
		return fmt.Errorf("insert response %s: %w", id, err)
	}
	return nil
}

// Exchange is a stored request and, once sent, its response. Response is
// nil until a reply has been logged.
type Exchange struct {
	ID         uuid.UUID
	EventName  string
	Request    []byte
	ReceivedAt time.Time
	Response   []byte
	SentAt     *time.Time
}

// Get returns the exchange recorded under the request id.
func (l *Log) Get(ctx context.Context, requestID string) (Exchange, error) {
	query := `
		SELECT r.id, r.event_name, r.body, r.received_at, s.body, s.sent_at
		FROM webhook_request_log r
		LEFT JOIN webhook_response_log s ON s.request_id = r.id
		WHERE r.id = $1
	`
	var ex Exchange
	err := l.db.QueryRow(ctx, query, ToUUID(requestID)).Scan(
		&ex.ID, &ex.EventName, &ex.Request, &ex.ReceivedAt, &ex.Response, &ex.SentAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Exchange{}, ErrNotFound
	}
	if err != nil {
		return Exchange{}, fmt.Errorf("load exchange %s: %w", requestID, err)
	}
	return ex, nil
}

// ToUUID maps a request id to the uuid it is stored under. Ids that are not
// uuids are mapped to a name-based uuid, so the same id always yields the
// same key.
func ToUUID(id string) uuid.UUID {
	if u, err := uuid.Parse(id); err == nil {
		return u
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
}

// textColumn makes s storable in a text column, which rejects NUL and
// invalid UTF-8.
func textColumn(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

func recordID(ctx context.Context) uuid.UUID {
	if id, ok := webhooks.RequestID(ctx); ok {
		return ToUUID(id)
	}
	return uuid.New()
}
