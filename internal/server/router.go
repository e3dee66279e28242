package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChezRD/jivochat-webhooks-api/internal/logging"
)

// RouterConfig selects the routes of NewRouter.
type RouterConfig struct {
	WebhookPath string
	MetricsPath string
	// Gatherer backs the metrics route. The route is not registered when nil.
	Gatherer    prometheus.Gatherer
}

// NewRouter constructs a ServeMux with the webhook, health and metrics routes.
func NewRouter(cfg RouterConfig, h http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(cfg.WebhookPath, h)

	// Health endpoints
	mux.HandleFunc("/healthz", health)
	mux.HandleFunc("/readyz", health)

	if cfg.Gatherer != nil && cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run serves srv until ctx is cancelled, then shuts it down within timeout.
func Run(ctx context.Context, srv *http.Server, timeout time.Duration, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server listening", logging.Addr(srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return <-errCh
}
