package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
	"github.com/ChezRD/jivochat-webhooks-api/internal/config"
	"github.com/ChezRD/jivochat-webhooks-api/internal/logging"
	"github.com/ChezRD/jivochat-webhooks-api/internal/server"
	"github.com/ChezRD/jivochat-webhooks-api/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook HTTP receiver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	logger.Info("starting jivohook",
		logging.Addr(fmt.Sprintf(":%d", cfg.Server.Port)),
		logging.Path(cfg.Server.Path),
		logging.Backend(cfg.Audit.Backend),
	)

	opts := []webhooks.Option{webhooks.WithLogger(logger.Logger)}

	auditLog, closeAudit, err := openAudit(ctx, cfg.Audit)
	if err != nil {
		return err
	}
	defer closeAudit()
	if auditLog != nil {
		opts = append(opts, webhooks.WithAuditLog(auditLog))
	}

	routes := server.RouterConfig{WebhookPath: cfg.Server.Path, MetricsPath: cfg.Metrics.Path}
	handlerOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)
		opts = append(opts, m.Options()...)
		handlerOpts = append(handlerOpts, server.WithObserver(m))
		routes.Gatherer = reg
	}

	listener := webhooks.NewListener(opts...)
	if err := registerHandlers(listener, cfg.Response); err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}
	logger.Debug("listener configured", "listener", listener.String())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(routes, server.NewHandler(listener, handlerOpts...)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server.Run(ctx, srv, cfg.Server.WriteTimeout, logger)
}
