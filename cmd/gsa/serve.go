package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/gmp"
	httpapp "github.com/open-gsa/gsa/internal/http"
	"github.com/open-gsa/gsa/internal/metrics"
	"github.com/open-gsa/gsa/internal/store"
	"github.com/spf13/cobra"
)

const (
	sessionCookieName = "gsa_session"
	shutdownTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the console HTTP server.",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return withExitCode(exitCodeUsage, err)
	}
	logger := slog.Default()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessions, stopSessions := newSessionManager(cfg, pool)
	defer stopSessions()

	client := gmp.NewClient(store.New(pool, logger), gmp.ClientOptions{
		CacheTTL:    cfg.CacheTTL,
		DefaultRows: cfg.PageRows,
		Logger:      logger,
	})
	srv, err := httpapp.NewEchoServer(httpapp.Options{
		Config:   cfg,
		Client:   client,
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	_, metricsErr := metrics.StartServer(ctx, cfg.MetricsAddr, logger)

	// Request contexts end when shutdown starts so open live views return
	// instead of holding the server until the timeout.
	requestCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return requestCtx },
	}
	httpServer.RegisterOnShutdown(cancelRequests)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "auto_refresh_interval", cfg.AutoRefreshInterval.String())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down", "live_views", srv.Hub().Len())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-metricsErr:
		return err
	}
}

// newSessionManager keeps sessions in PostgreSQL so list state survives
// restarts and is shared between replicas.
func newSessionManager(cfg config.Config, pool *pgxpool.Pool) (*scs.SessionManager, func()) {
	st := pgxstore.New(pool)
	sessions := scs.New()
	sessions.Store = st
	sessions.Lifetime = cfg.SessionLifetime
	sessions.Cookie.Name = sessionCookieName
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.SessionCookieSecure
	return sessions, st.StopCleanup
}
