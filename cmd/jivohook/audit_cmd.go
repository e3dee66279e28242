package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChezRD/jivochat-webhooks-api/audit/pgaudit"
	"github.com/ChezRD/jivochat-webhooks-api/audit/redisaudit"
	"github.com/ChezRD/jivochat-webhooks-api/internal/config"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded webhook traffic",
	}
	cmd.AddCommand(newAuditRecentCmd(), newAuditShowCmd())
	return cmd
}

func loadAuditConfig(cmd *cobra.Command) (config.AuditConfig, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.AuditConfig{}, err
	}
	return cfg.Audit, nil
}

func newAuditRecentCmd() *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent request ids (redis backend)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAuditConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Backend != config.AuditRedis {
				return fmt.Errorf("%w: %s", errNoReader, cfg.Backend)
			}

			log, client, err := openRedisAudit(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			return printRecent(cmd.Context(), cmd.OutOrStdout(), log, limit)
		},
	}
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "number of ids to list")
	return cmd
}

func newAuditShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Print a recorded request and its reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAuditConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			switch cfg.Backend {
			case config.AuditRedis:
				log, client, err := openRedisAudit(ctx, cfg.Redis)
				if err != nil {
					return err
				}
				defer client.Close()
				return printRedisExchange(ctx, cmd.OutOrStdout(), log, args[0])

			case config.AuditPostgres:
				pool, err := pgaudit.Connect(ctx, cfg.Postgres.DSN)
				if err != nil {
					return err
				}
				defer pool.Close()

				ex, err := pgaudit.New(pool).Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printPostgresExchange(cmd.OutOrStdout(), ex)
			}
			return fmt.Errorf("%w: %s", errNoReader, cfg.Backend)
		},
	}
}

func printRecent(ctx context.Context, w io.Writer, log *redisaudit.Log, n int64) error {
	ids, err := log.Recent(ctx, n)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}

func printRedisExchange(ctx context.Context, w io.Writer, log *redisaudit.Log, id string) error {
	req, err := log.Request(ctx, id)
	if err != nil {
		return fmt.Errorf("request %s: %w", id, err)
	}
	fmt.Fprintf(w, "request %s %s at %s\n%s\n", req.ID, req.EventName, req.At.Format(time.RFC3339), req.Raw)

	resp, err := log.Response(ctx, id)
	if errors.Is(err, redisaudit.ErrNotFound) {
		_, err = fmt.Fprintln(w, "no response recorded")
		return err
	}
	if err != nil {
		return fmt.Errorf("response %s: %w", id, err)
	}
	_, err = fmt.Fprintf(w, "response at %s\n%s\n", resp.At.Format(time.RFC3339), resp.Raw)
	return err
}

func printPostgresExchange(w io.Writer, ex pgaudit.Exchange) error {
	fmt.Fprintf(w, "request %s %s at %s\n%s\n", ex.ID, ex.EventName, ex.ReceivedAt.Format(time.RFC3339), ex.Request)
	if ex.Response == nil || ex.SentAt == nil {
		_, err := fmt.Fprintln(w, "no response recorded")
		return err
	}
	_, err := fmt.Fprintf(w, "response at %s\n%s\n", ex.SentAt.Format(time.RFC3339), ex.Response)
	return err
}
