package pgaudit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
	row   pgx.Row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row { return f.row }

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestToUUID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, ToUUID(id.String()))

	derived := ToUUID("req-1")
	assert.Equal(t, derived, ToUUID("req-1"))
	assert.NotEqual(t, derived, ToUUID("req-2"))
}

func TestLog_WritesWithRequestID(t *testing.T) {
	db := &fakeDB{}
	l := New(db)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := webhooks.WithRequestID(context.Background(), "req-1")

	require.NoError(t, l.LogRequest(ctx, []byte(`{"event_name":"chat_finished"}`)))
	require.NoError(t, l.LogResponse(ctx, []byte(`{"result":"ok"}`)))

	require.Len(t, db.calls, 2)
	assert.Contains(t, db.calls[0].sql, "webhook_request_log")
	assert.Equal(t, []any{ToUUID("req-1"), "chat_finished", []byte(`{"event_name":"chat_finished"}`), l.now()}, db.calls[0].args)
	assert.Contains(t, db.calls[1].sql, "webhook_response_log")
	assert.Equal(t, ToUUID("req-1"), db.calls[1].args[0])
	assert.Equal(t, []byte(`{"result":"ok"}`), db.calls[1].args[1])
}

func TestTextColumn(t *testing.T) {
	assert.Equal(t, "chat_accepted", textColumn("chat_accepted"))
	assert.Equal(t, "ab", textColumn("a\x00b"))
	assert.Equal(t, "a\uFFFDb", textColumn("a\xffb"))
}

func TestLog_Errors(t *testing.T) {
	cause := errors.New("connection reset")
	l := New(&fakeDB{err: cause, row: errRow{err: pgx.ErrNoRows}})
	ctx := context.Background()

	assert.ErrorIs(t, l.LogRequest(ctx, []byte(`{}`)), cause)
	assert.ErrorIs(t, l.LogResponse(ctx, []byte(`{}`)), cause)
	assert.ErrorIs(t, l.EnsureSchema(ctx), cause)

	_, err := l.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	l = New(&fakeDB{row: errRow{err: cause}})
	_, err = l.Get(ctx, "broken")
	assert.ErrorIs(t, err, cause)
}

func setupTestDatabase(t *testing.T) *Log {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("jivohook_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	l := New(pool)
	require.NoError(t, l.EnsureSchema(ctx))
	require.NoError(t, l.EnsureSchema(ctx))
	return l
}

func TestLog_Postgres(t *testing.T) {
	l := setupTestDatabase(t)
	ctx := webhooks.WithRequestID(context.Background(), uuid.NewString())
	id, _ := webhooks.RequestID(ctx)

	t.Run("request without response", func(t *testing.T) {
		require.NoError(t, l.LogRequest(ctx, []byte(`{"event_name":"chat_accepted"}`)))

		ex, err := l.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, ex.ID.String())
		assert.Equal(t, "chat_accepted", ex.EventName)
		assert.Equal(t, []byte(`{"event_name":"chat_accepted"}`), ex.Request)
		assert.Nil(t, ex.Response)
		assert.Nil(t, ex.SentAt)
	})

	t.Run("request with response", func(t *testing.T) {
		require.NoError(t, l.LogResponse(ctx, []byte(`{"result":"ok"}`)))

		ex, err := l.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, ex.Response)
		assert.Equal(t, []byte(`{"result":"ok"}`), ex.Response)
		require.NotNil(t, ex.SentAt)
	})

	t.Run("invalid json is kept verbatim", func(t *testing.T) {
		bad := webhooks.WithRequestID(context.Background(), "not-a-uuid")
		require.NoError(t, l.LogRequest(bad, []byte(`{oops`)))

		ex, err := l.Get(bad, "not-a-uuid")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{oops`), ex.Request)
		assert.Empty(t, ex.EventName)
	})

	t.Run("binary body is kept verbatim", func(t *testing.T) {
		bin := webhooks.WithRequestID(context.Background(), uuid.NewString())
		binID, _ := webhooks.RequestID(bin)
		raw := []byte("\x00\xff")
		require.NoError(t, l.LogRequest(bin, raw))
		require.NoError(t, l.LogResponse(bin, raw))

		ex, err := l.Get(bin, binID)
		require.NoError(t, err)
		assert.Equal(t, raw, ex.Request)
		assert.Equal(t, raw, ex.Response)
	})

	t.Run("event name with NUL is stored", func(t *testing.T) {
		nul := webhooks.WithRequestID(context.Background(), uuid.NewString())
		nulID, _ := webhooks.RequestID(nul)
		require.NoError(t, l.LogRequest(nul, []byte(`{"event_name":"chat\u0000x"}`)))

		ex, err := l.Get(nul, nulID)
		require.NoError(t, err)
		assert.Equal(t, "chatx", ex.EventName)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := l.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("through a listener", func(t *testing.T) {
		listener := webhooks.NewListener(webhooks.WithAuditLog(l))
		lctx := webhooks.WithRequestID(context.Background(), "listener-1")

		out, err := listener.Listen(lctx, []byte(`{"event_name":"client_updated"}`))
		require.NoError(t, err)

		ex, err := l.Get(lctx, "listener-1")
		require.NoError(t, err)
		require.NotNil(t, ex.Response)
		assert.Equal(t, out, ex.Response)
	})
}
