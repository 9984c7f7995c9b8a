package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/docugen/docugen/pkg/engine"
	"github.com/docugen/docugen/pkg/jobexec"
	"github.com/docugen/docugen/pkg/output"
	"github.com/docugen/docugen/pkg/template"
)

// NewTemplatesCommand creates the 'templates' command listing the template
// catalog (built-ins plus any manifests from the configured templates
// directory).
func NewTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Short:   "List available document templates",
		GroupID: "core",
		RunE:    runTemplatesCommand,
	}
	cmd.Flags().String("templates-dir", "", "Directory of template manifests to merge into the catalog")
	cmd.Flags().Bool("json", false, "Emit machine-readable JSON Lines events")
	return cmd
}

func runTemplatesCommand(cmd *cobra.Command, args []string) error {
	out := setupOutputPipeline(cmd)
	logger := log.With().Str("command", "templates").Logger()

	dir, _ := cmd.Flags().GetString("templates-dir")
	if dir == "" {
		if manager, ok := managerFromContext(cmd.Context()); ok {
			dir = manager.Get().Engine.TemplatesDir
		}
	}

	catalog, err := loadTemplateCatalog(dir, logger)
	if err != nil {
		out.Error(err)
		return err
	}

	headers := []string{"ID", "Name", "Version", "Document Types", "Source"}
	rows := make([][]string, 0, catalog.Count())
	for _, info := range catalog.List() {
		docTypes := "any"
		if len(info.DocumentTypes) > 0 {
			docTypes = strings.Join(info.DocumentTypes, ", ")
		}
		source := "custom"
		if info.BuiltIn {
			source = "built-in"
		}
		rows = append(rows, []string{info.ID, info.Name, info.Version, docTypes, source})
	}

	out.Table(headers, rows)
	return nil
}

// loadTemplateCatalog builds the catalog of built-in templates, merged with
// manifests from dir when one is configured.
func loadTemplateCatalog(dir string, logger zerolog.Logger) (*template.Catalog, error) {
	catalog := template.NewCatalog()
	if dir == "" {
		return catalog, nil
	}

	if err := catalog.LoadDir(dir); err != nil {
		return nil, fmt.Errorf("load templates from %s: %w", dir, err)
	}
	logger.Debug().Str("dir", dir).Int("templates", catalog.Count()).Msg("merged template manifests")
	return catalog, nil
}

// checkTemplate validates the job's template against the catalog. An unknown
// template ID fails the run; a template that does not cover one of the job's
// document types only warns, since a custom renderer may still accept it.
func checkTemplate(catalog *template.Catalog, params jobexec.Params, out output.Output) error {
	info, ok := catalog.Get(params.Settings.TemplateID)
	if !ok {
		return engine.NewValidationError("template_id",
			fmt.Sprintf("unknown template %q, run 'docugen templates' to list available templates", params.Settings.TemplateID))
	}

	warned := make(map[engine.DocumentType]bool)
	for _, item := range params.Items {
		if info.Supports(item.DocumentType) || warned[item.DocumentType] {
			continue
		}
		warned[item.DocumentType] = true
		out.Warning(fmt.Sprintf("template %q does not declare support for %s documents", info.ID, item.DocumentType))
	}
	return nil
}
