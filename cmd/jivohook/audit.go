package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
	"github.com/ChezRD/jivochat-webhooks-api/audit/natsaudit"
	"github.com/ChezRD/jivochat-webhooks-api/audit/pgaudit"
	"github.com/ChezRD/jivochat-webhooks-api/audit/redisaudit"
	"github.com/ChezRD/jivochat-webhooks-api/internal/config"
)

// openAudit connects the configured audit backend. The returned close
// function is never nil. A nil AuditLog means auditing is disabled.
func openAudit(ctx context.Context, cfg config.AuditConfig) (webhooks.AuditLog, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.AuditNone, "":
		return nil, noop, nil

	case config.AuditRedis:
		log, client, err := openRedisAudit(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return log, func() { _ = client.Close() }, nil

	case config.AuditPostgres:
		pool, err := pgaudit.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, noop, err
		}
		log := pgaudit.New(pool)
		if err := log.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return log, pool.Close, nil

	case config.AuditNATS:
		natsCfg := natsaudit.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		conn, err := natsaudit.Connect(natsCfg)
		if err != nil {
			return nil, noop, err
		}
		return natsaudit.New(conn, cfg.NATS.SubjectPrefix), func() { _ = conn.Drain() }, nil
	}

	return nil, noop, fmt.Errorf("unknown audit backend %q", cfg.Backend)
}

func openRedisAudit(ctx context.Context, cfg config.RedisAuditConfig) (*redisaudit.Log, *redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	log := redisaudit.New(client,
		redisaudit.WithKeyPrefix(cfg.KeyPrefix),
		redisaudit.WithTTL(cfg.TTL),
		redisaudit.WithMaxEntries(cfg.MaxEntries),
	)
	return log, client, nil
}

// errNoReader is returned by audit commands for backends that cannot be read back.
var errNoReader = errors.New("audit backend does not support reading records")
