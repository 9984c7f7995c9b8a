package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/docugen/docugen/pkg/event"
	"github.com/docugen/docugen/pkg/jobexec"
	"github.com/docugen/docugen/pkg/metrics"
	"github.com/docugen/docugen/pkg/render"
	"github.com/docugen/docugen/pkg/server/api"
	"github.com/docugen/docugen/pkg/server/app"
	"github.com/docugen/docugen/pkg/storage"
)

// NewServeCommand constructs the 'serve' command that runs the HTTP API.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the document generation HTTP API",
		GroupID: "core",
		RunE:    runServeCommand,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	cmd.Flags().Int("port", 0, "Listen port (overrides config)")
	cmd.Flags().Bool("gc", true, "Run retention garbage collection on startup")

	return cmd
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil && cmd.Root() != nil {
		ctx = cmd.Root().Context()
	}

	logger := log.With().Str("command", "serve").Logger()

	manager, ok := managerFromContext(ctx)
	if !ok {
		return fmt.Errorf("configuration missing from context")
	}
	cfg := manager.Get()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	storageConfig, hasStorage := storage.ConfigFromContext(ctx)
	if !hasStorage {
		return fmt.Errorf("the server requires storage; remove --no-storage")
	}

	backend, err := storage.NewBackend(ctx, storageConfig)
	if err != nil {
		return fmt.Errorf("create storage backend: %w", err)
	}
	if err := backend.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close storage backend")
		}
	}()

	if runGC, _ := cmd.Flags().GetBool("gc"); runGC && storageConfig.Retention.IsEnabled() {
		result, err := backend.GarbageCollect(ctx, storage.GCOptions{})
		if err != nil {
			logger.Warn().Err(err).Msg("Startup garbage collection failed")
		} else if result.JobsDeleted > 0 {
			logger.Info().Int("deleted", result.JobsDeleted).Msg("retention garbage collection done")
		}
	}

	collector := metrics.NewCollector()
	events := event.NewManager()

	controller := jobexec.NewService(render.NewLocalRenderer(backend)).
		WithStorage(backend).
		WithEvents(events).
		WithMetrics(collector)

	deps := &api.Deps{
		Controller: controller,
		Storage:    backend,
		Metrics:    collector,
		Config:     api.DefaultConfig(),
		Ready:      &atomic.Bool{},
	}

	application, err := app.New(cfg.Server, deps)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.Server.Addr).Int("port", cfg.Server.Port).Msg("starting HTTP API")
	return application.Run(runCtx)
}
