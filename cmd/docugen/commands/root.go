package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/docugen/docugen/pkg/config"
	"github.com/docugen/docugen/pkg/storage"
)

const cliExecutable = "docugen"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

// configManagerKey carries the loaded *config.Manager for subcommands.
const configManagerKey contextKey = "config-manager"

// managerFromContext retrieves the config manager placed by the root command.
func managerFromContext(ctx context.Context) (*config.Manager, bool) {
	mgr, ok := ctx.Value(configManagerKey).(*config.Manager)
	return mgr, ok
}

// NewCommand constructs the top-level docugen CLI command, wiring global
// flags, configuration loading, and shared workspace preparation.
func NewCommand() *cobra.Command {
	var (
		configFile      string
		storageDir      string
		storageDisabled bool
		verbosityCount  int
		verbose         bool
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Docugen is a bulk document generation engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			manager := config.NewManager()
			if err := manager.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			cfg := manager.Get()
			if err := configureLogging(cfg.Log, verbosityCount, verbose); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), configManagerKey, manager)

			if !storageDisabled {
				storageConfig, err := resolveStorageConfig(cfg, storageDir)
				if err != nil {
					return fmt.Errorf("get storage config: %w", err)
				}
				ctx = storage.WithConfig(ctx, storageConfig)
				log.Info().Str("storage_root", storageConfig.WorkspaceRoot).Msg("storage ready")
			} else {
				log.Info().Msg("storage disabled for this run")
			}

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().StringVar(&storageDir, "storage-dir", "", "Override storage root directory")
	cmd.PersistentFlags().BoolVar(&storageDisabled, "no-storage", false, "Disable job persistence for this run")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (shows service layer logs)")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "generate", Title: "Generation Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(GenerateCmd)
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewTemplatesCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// resolveStorageConfig builds the storage config from the loaded
// configuration, honoring the --storage-dir override.
func resolveStorageConfig(cfg config.Config, storageDir string) (*storage.Config, error) {
	storageConfig, err := storage.DefaultConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.WorkspaceRoot != "" {
		storageConfig.WorkspaceRoot = cfg.Storage.WorkspaceRoot
	}
	if storageDir != "" {
		storageConfig.WorkspaceRoot = storageDir
	}
	storageConfig.Retention.MaxAgeDays = cfg.Storage.MaxAgeDays
	storageConfig.Retention.MaxJobs = cfg.Storage.MaxJobs
	return storageConfig, nil
}

// configureLogging applies the log configuration globally. Verbosity flags
// take precedence over the configured level:
// --verbose shows debug and above, else -v count: 0=>configured, 1=>Info, 2+=>Debug.
func configureLogging(cfg config.LogConfig, verbosityCount int, verbose bool) error {
	switch {
	case verbose, verbosityCount >= 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case verbosityCount == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		zerolog.SetGlobalLevel(level)
	}

	var sink *os.File
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sink = f
	default:
		sink = os.Stderr
	}

	if cfg.Format == "json" {
		log.Logger = zerolog.New(sink).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: sink}).With().Timestamp().Logger()
	}
	return nil
}
