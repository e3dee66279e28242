package natsaudit

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (p *fakePublisher) PublishMsg(m *nats.Msg) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, m)
	return nil
}

func TestLog_Publish(t *testing.T) {
	pub := &fakePublisher{}
	l := New(pub, "hooks")
	ctx := webhooks.WithRequestID(context.Background(), "req-1")

	raw := []byte(`{"event_name":"offline_message"}`)
	require.NoError(t, l.LogRequest(ctx, raw))
	require.NoError(t, l.LogResponse(ctx, []byte(`{"result":"ok"}`)))

	require.Len(t, pub.msgs, 2)

	req := pub.msgs[0]
	assert.Equal(t, "hooks.request", req.Subject)
	assert.Equal(t, raw, req.Data)
	assert.Equal(t, "req-1", req.Header.Get(HeaderRequestID))
	assert.Equal(t, "offline_message", req.Header.Get(HeaderEventName))

	resp := pub.msgs[1]
	assert.Equal(t, "hooks.response", resp.Subject)
	assert.Equal(t, `{"result":"ok"}`, string(resp.Data))
	assert.Equal(t, "req-1", resp.Header.Get(HeaderRequestID))
	assert.Empty(t, resp.Header.Get(HeaderEventName))
}

func TestLog_Defaults(t *testing.T) {
	pub := &fakePublisher{}
	l := New(pub, "")

	require.NoError(t, l.LogRequest(context.Background(), []byte(`not json`)))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "jivohook.audit.request", pub.msgs[0].Subject)
	assert.Len(t, pub.msgs[0].Header.Get(HeaderRequestID), 36)
	assert.Empty(t, pub.msgs[0].Header.Get(HeaderEventName))
}

func TestLog_Errors(t *testing.T) {
	cause := errors.New("nats: connection closed")
	l := New(&fakePublisher{err: cause}, "hooks")

	err := l.LogRequest(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "hooks.request")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(&fakePublisher{}, "").LogResponse(ctx, []byte(`{}`)), context.Canceled)
}

func TestLog_FailClosedInListener(t *testing.T) {
	l := webhooks.NewListener(webhooks.WithAuditLog(New(&fakePublisher{err: errors.New("down")}, "")))

	_, err := l.Listen(context.Background(), []byte(`{"event_name":"chat_updated"}`))

	var auditErr *webhooks.AuditError
	require.ErrorAs(t, err, &auditErr)
	assert.Equal(t, "request", auditErr.Phase)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, nats.DefaultURL, cfg.URL)
	assert.Equal(t, -1, cfg.MaxReconnects)
}
