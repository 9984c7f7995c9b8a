// Package app assembles the HTTP server runtime: router, listener, and
// graceful shutdown around the shared api.Deps.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/docugen/docugen/pkg/config"
	"github.com/docugen/docugen/pkg/server/api"
	"github.com/docugen/docugen/pkg/server/httpx"
)

// shutdownGrace bounds how long in-flight requests may take to drain.
const shutdownGrace = 10 * time.Second

// App is the assembled HTTP server.
type App struct {
	cfg    config.ServerConfig
	deps   *api.Deps
	server *http.Server
	logger zerolog.Logger
}

// New builds the server app. Storage initialization and controller wiring
// are the caller's responsibility; deps arrive ready to serve.
func New(cfg config.ServerConfig, deps *api.Deps) (*App, error) {
	if deps == nil || deps.Ready == nil {
		return nil, fmt.Errorf("server deps incomplete: ready flag is required")
	}

	router := httpx.NewRouter(cfg, deps)
	addr := fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port)

	return &App{
		cfg:  cfg,
		deps: deps,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		},
		logger: log.With().Str("component", "server").Logger(),
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests. The
// readiness flag flips to true just before the listener opens and back to
// false as shutdown begins.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.deps.Ready.Store(true)
	a.logger.Info().Str("addr", a.server.Addr).Msg("HTTP server listening")

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		a.deps.Ready.Store(false)
		return err
	case <-ctx.Done():
	}

	a.deps.Ready.Store(false)
	a.logger.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Graceful shutdown did not finish, closing")
		_ = a.server.Close()
		return err
	}
	return <-errCh
}
