package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docugen/docugen/cmd/docugen/internal/bind"
	"github.com/docugen/docugen/pkg/engine"
	"github.com/docugen/docugen/pkg/jobexec"
	"github.com/docugen/docugen/pkg/output"
	"github.com/docugen/docugen/pkg/render"
	"github.com/docugen/docugen/pkg/storage"
)

// GenerateCmd defines the 'generate' command for running one job from a
// manifest file to completion.
var GenerateCmd = &cobra.Command{
	Use:   "generate <manifest.yaml>",
	Short: "Generate documents from a job manifest",
	Long: `Reads a YAML manifest describing the documents to generate, runs the job
with the configured concurrency, and prints a summary when it finishes.
Interrupting the run (Ctrl-C) cancels the job; in-flight renders are
discarded.`,
	GroupID: "generate",
	Args:    cobra.ExactArgs(1),
	RunE:    runGenerateCommand,
}

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	out := setupOutputPipeline(cmd)
	manifestPath := args[0]

	logger := log.With().Str("command", "generate").Logger()
	logger.Info().Str("manifest", manifestPath).Msg("Initializing generate command")

	out.Diag(output.LevelVerbose, "Initializing generate command", map[string]any{
		"manifest": manifestPath,
	})

	ctx := cmd.Context()
	if ctx == nil && cmd.Root() != nil {
		ctx = cmd.Root().Context()
	}

	manager, ok := managerFromContext(ctx)
	if !ok {
		return fmt.Errorf("configuration missing from context")
	}
	cfg := manager.Get()

	params, err := bind.BindGenerateOptions(cmd, manifestPath, cfg.Engine)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to bind generate options")
		out.Error(err)
		return err
	}

	catalog, err := loadTemplateCatalog(cfg.Engine.TemplatesDir, logger)
	if err != nil {
		out.Error(err)
		return err
	}
	if err := checkTemplate(catalog, params, out); err != nil {
		logger.Error().Err(err).Msg("Template check failed")
		out.Error(err)
		return err
	}

	backend, persist, cleanup, err := openArtifactBackend(ctx, logger)
	if err != nil {
		out.Error(err)
		return err
	}
	defer cleanup()

	svc := jobexec.NewService(render.NewLocalRenderer(backend))
	if persist {
		svc = svc.WithStorage(backend)
	}

	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		svc = svc.WithProgressSink(&progressPrinter{
			logger: logger,
			out:    out,
		})
	}

	// Cancel the job on Ctrl-C instead of tearing the process down
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := svc.CreateJob(runCtx, params)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create job")
		out.Error(err)
		return err
	}

	outputFormat, _ := cmd.Flags().GetString("output")
	if strings.EqualFold(outputFormat, "text") {
		verbosityCount, _ := cmd.Flags().GetCount("verbosity")
		if verbosityCount == 0 {
			out.Info(fmt.Sprintf("Starting generation of %d documents...", len(params.Items)))
		}
	}

	if err := svc.Start(runCtx, job.ID()); err != nil {
		logger.Error().Err(err).Msg("Failed to start job")
		out.Error(err)
		return err
	}
	if err := svc.Wait(runCtx, job.ID()); err != nil {
		// Interrupt: ask for cancellation and wait for the drain
		logger.Warn().Err(err).Msg("Run interrupted, cancelling job")
		out.Warning("Interrupted, cancelling job...")
		if cancelErr := svc.Cancel(job.ID()); cancelErr != nil {
			logger.Warn().Err(cancelErr).Msg("Cancel after interrupt failed")
		}
		if waitErr := svc.Wait(context.Background(), job.ID()); waitErr != nil {
			return waitErr
		}
	}

	results, err := svc.Results(job.ID())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to collect job results")
		out.Error(err)
		return err
	}

	progress, err := svc.Progress(job.ID())
	if err != nil {
		return err
	}

	return renderGenerateOutput(out, outputFormat, results, progress, logger)
}

// openArtifactBackend resolves the storage backend for the run. Without a
// storage config (--no-storage) artifacts still need somewhere to land, so a
// throwaway workspace is used and job metadata is not persisted.
func openArtifactBackend(ctx context.Context, logger zerolog.Logger) (storage.Backend, bool, func(), error) {
	storageConfig, persist := storage.ConfigFromContext(ctx)
	cleanup := func() {}

	if !persist {
		tempRoot, err := os.MkdirTemp("", "docugen-run-")
		if err != nil {
			return nil, false, cleanup, fmt.Errorf("create ephemeral workspace: %w", err)
		}
		storageConfig = &storage.Config{WorkspaceRoot: tempRoot}
		logger.Info().Str("workspace", tempRoot).Msg("using ephemeral workspace, artifacts are not retained")
	}

	backend, err := storage.NewBackend(ctx, storageConfig)
	if err != nil {
		return nil, false, cleanup, fmt.Errorf("create storage backend: %w", err)
	}
	if err := backend.Initialize(ctx); err != nil {
		return nil, false, cleanup, fmt.Errorf("initialize storage: %w", err)
	}

	cleanup = func() {
		if err := backend.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close storage backend")
		}
	}
	return backend, persist, cleanup, nil
}

func renderGenerateOutput(out output.Output, outputFormat string, results *jobexec.Results, progress engine.Snapshot, logger zerolog.Logger) error {
	switch strings.ToLower(outputFormat) {
	case "json":
		jsonData, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			logger.Error().Err(err).Msg("Failed to marshal results to JSON")
			return err
		}
		fmt.Println(string(jsonData))
	case "yaml":
		yamlData, err := yaml.Marshal(results)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to marshal results to YAML")
			return err
		}
		fmt.Println(string(yamlData))
	default:
		printGenerateSummary(out, results, progress)
		printArtifactTextOutput(out, results)
	}

	if len(results.FailedItems) > 0 && results.StateLabel == engine.JobFailed.String() {
		return fmt.Errorf("%d of %d items failed", len(results.FailedItems), progress.Total)
	}
	return nil
}

// printGenerateSummary displays a human-readable summary table of the run
func printGenerateSummary(out output.Output, results *jobexec.Results, progress engine.Snapshot) {
	duration := "N/A"
	if progress.AverageItemDuration > 0 {
		duration = fmt.Sprintf("%.1fs avg/item", progress.AverageItemDuration.Seconds())
	}

	headers := []string{"Metric", "Value"}
	rows := [][]string{
		{"Job", progress.Name},
		{"State", results.StateLabel},
		{"Documents", fmt.Sprintf("%d", progress.Total)},
		{"Completed", fmt.Sprintf("%d", progress.Completed)},
		{"Failed", fmt.Sprintf("%d", progress.Failed)},
	}
	if progress.Skipped > 0 {
		rows = append(rows, []string{"Skipped", fmt.Sprintf("%d", progress.Skipped)})
	}
	rows = append(rows, []string{"Render Time", duration})

	out.Table(headers, rows)
}

func printArtifactTextOutput(out output.Output, results *jobexec.Results) {
	if len(results.CompletedArtifacts) > 0 {
		out.Info("--- Generated Documents ---")
		for _, artifact := range results.CompletedArtifacts {
			out.Info(fmt.Sprintf("- Document: %s", artifact.DocumentNumber))
			out.Info(fmt.Sprintf("    Artifact: %s (%d bytes)", artifact.Artifact.Location, artifact.Artifact.Size))
		}
	} else {
		out.Info("No documents were generated.")
	}

	for _, failed := range results.FailedItems {
		out.Warning(fmt.Sprintf("[%s] %s: %s", failed.Error.Kind, failed.DocumentNumber, failed.Error.Message))
	}
}

type progressPrinter struct {
	logger zerolog.Logger
	out    output.Output
}

// OnProgress implements jobexec.ProgressSink.
func (p *progressPrinter) OnProgress(snap engine.Snapshot) {
	p.logger.Info().
		Str("job_id", snap.JobID).
		Str("state", snap.StateLabel).
		Int("completed", snap.Completed).
		Int("failed", snap.Failed).
		Int("generating", snap.Generating).
		Int("percentage", snap.Percentage).
		Msg("job progress")

	if p.out == nil {
		return
	}

	icon := "⏳"
	if snap.State.IsTerminal() {
		icon = "✓"
		if snap.Failed > 0 {
			icon = "✗"
		}
	}
	message := fmt.Sprintf("%s %s: %d/%d (%d%%)", icon, snap.StateLabel, snap.Completed+snap.Failed+snap.Skipped, snap.Total, snap.Percentage)
	if !snap.EstimatedCompletion.IsZero() {
		message += fmt.Sprintf(" - ETA %s", snap.EstimatedCompletion.Format("15:04:05"))
	}
	p.out.Info(message)
}

func init() {
	GenerateCmd.Flags().String("name", "", "Override the job name from the manifest")
	GenerateCmd.Flags().String("template", "", "Document template ID (overrides manifest)")
	GenerateCmd.Flags().String("format", "", "Artifact grouping: single_archive, individual_files (overrides manifest)")
	GenerateCmd.Flags().Int("concurrency", 0, "Max simultaneous renders (overrides manifest)")
	GenerateCmd.Flags().String("timeout", "", "Per-item render timeout, e.g. '30s' (overrides manifest)")
	GenerateCmd.Flags().Bool("email", false, "Request notification when the job finishes")
	GenerateCmd.Flags().Bool("progress", false, "Print live progress updates during the run")
	GenerateCmd.Flags().Bool("json", false, "Emit machine-readable JSON Lines events")
	GenerateCmd.Flags().StringP("output", "o", "text", "Results format: text, json, yaml")
}
