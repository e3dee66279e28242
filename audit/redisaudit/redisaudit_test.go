package redisaudit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestLog_RequestResponse(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := New(client, WithKeyPrefix("test"), WithTTL(time.Hour))
	l.now = fixedNow
	ctx := webhooks.WithRequestID(context.Background(), "req-1")

	raw := []byte(`{"event_name":"chat_accepted","chat_id":1}`)
	require.NoError(t, l.LogRequest(ctx, raw))
	require.NoError(t, l.LogResponse(ctx, []byte(`{"result":"ok"}`)))

	t.Run("request hash", func(t *testing.T) {
		assert.Equal(t, string(raw), mr.HGet("test:request:req-1", "raw"))
		assert.Equal(t, "chat_accepted", mr.HGet("test:request:req-1", "event_name"))
		assert.Equal(t, time.Hour, mr.TTL("test:request:req-1"))

		rec, err := l.Request(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, Record{ID: "req-1", EventName: "chat_accepted", Raw: raw, At: fixedNow()}, rec)
	})

	t.Run("response hash", func(t *testing.T) {
		assert.Equal(t, time.Hour, mr.TTL("test:response:req-1"))

		rec, err := l.Response(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, `{"result":"ok"}`, string(rec.Raw))
		assert.Equal(t, fixedNow(), rec.At)
	})

	t.Run("recent list", func(t *testing.T) {
		ids, err := l.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"req-1"}, ids)
	})

	t.Run("records expire", func(t *testing.T) {
		mr.FastForward(2 * time.Hour)

		_, err := l.Request(ctx, "req-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLog_InvalidPayloadIsStillRecorded(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := New(client)
	ctx := webhooks.WithRequestID(context.Background(), "bad")

	require.NoError(t, l.LogRequest(ctx, []byte(`{not json`)))

	assert.Equal(t, `{not json`, mr.HGet("jivohook:request:bad", "raw"))
	assert.Equal(t, "", mr.HGet("jivohook:request:bad", "event_name"))
}

func TestLog_GeneratesIDWithoutContext(t *testing.T) {
	_, client := setupTestRedis(t)
	l := New(client)
	ctx := context.Background()

	require.NoError(t, l.LogRequest(ctx, []byte(`{}`)))

	ids, err := l.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Len(t, ids[0], 36)
}

func TestLog_TrimsRecentList(t *testing.T) {
	_, client := setupTestRedis(t)
	l := New(client, WithMaxEntries(2), WithTTL(0))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, l.LogRequest(webhooks.WithRequestID(context.Background(), id), []byte(`{}`)))
	}

	ids, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids)

	none, err := l.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLog_Errors(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := New(client)
	ctx := webhooks.WithRequestID(context.Background(), "x")

	mr.SetError("LOADING")
	assert.Error(t, l.LogRequest(ctx, []byte(`{}`)))
	assert.Error(t, l.LogResponse(ctx, []byte(`{}`)))
	mr.SetError("")

	_, err := l.Request(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLog_WithListener(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := webhooks.NewListener(webhooks.WithAuditLog(New(client)))
	ctx := webhooks.WithRequestID(context.Background(), "req-9")

	out, err := l.Listen(ctx, []byte(`{"event_name":"chat_updated"}`))
	require.NoError(t, err)

	assert.Equal(t, string(out), mr.HGet("jivohook:response:req-9", "raw"))
	assert.Equal(t, "chat_updated", mr.HGet("jivohook:request:req-9", "event_name"))
}
