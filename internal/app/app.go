package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/miipal/internal/config"
	"github.com/vovakirdan/miipal/internal/core"
	"github.com/vovakirdan/miipal/internal/store"
	"github.com/vovakirdan/miipal/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/miipal/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             core.Hub
	store           store.PresenceStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	var (
		st      store.PresenceStore
		journal core.PresenceJournal
	)
	if cfg.DatabasePath != "" {
		sqliteStore, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		// Bindings never survive a restart.
		if n, err := sqliteStore.CloseOpenSessions(context.Background(), time.Now()); err != nil {
			logger.Warn().Err(err).Msg("failed to close stale sessions")
		} else if n > 0 {
			logger.Info().Int64("sessions", n).Msg("closed stale sessions")
		}
		st, journal = sqliteStore, sqliteStore
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("presence journal enabled")
	}

	hub := core.NewHub(core.HubOptions{
		Router:  routerOptions(cfg),
		Journal: journal,
		Logger:  logger,
	})
	server := transporthttp.NewServer(hub, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func routerOptions(cfg *config.Config) core.RouterOptions {
	return core.RouterOptions{
		MaxNameLength: cfg.MaxNameLength,
		SenderPolicy:  senderPolicy(cfg.SenderPolicy),
	}
}

func senderPolicy(name string) core.SenderPolicy {
	if name == config.SenderPolicyBinding {
		return core.SenderFromBinding
	}
	return core.SenderFromPayload
}

// Run starts the hub and the HTTP server and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store == nil {
		return
	}
	if _, err := a.store.CloseOpenSessions(context.Background(), time.Now()); err != nil {
		a.log.Warn().Err(err).Msg("failed to close open sessions")
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
