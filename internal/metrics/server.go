package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsReadHeaderTimeout = 5 * time.Second

// Enabled reports whether addr names a listener rather than one of the
// disable keywords.
func Enabled(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	switch strings.ToLower(addr) {
	case "off", "disabled", "false":
		return false
	}
	return true
}

// StartServer serves /metrics on addr until ctx is done. It returns nil
// values when metrics are disabled.
func StartServer(ctx context.Context, addr string, logger *slog.Logger) (*http.Server, <-chan error) {
	if !Enabled(addr) {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              strings.TrimSpace(addr),
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv, errCh
}
