package bind

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docugen/docugen/pkg/config"
	"github.com/docugen/docugen/pkg/engine"
	"github.com/docugen/docugen/pkg/jobexec"
)

// Manifest is the on-disk YAML description of one generation job.
type Manifest struct {
	Name     string           `yaml:"name"`
	Settings ManifestSettings `yaml:"settings"`
	Items    []ManifestItem   `yaml:"items"`
}

// ManifestSettings mirrors the job settings section of the manifest.
// Zero values fall back to the configured engine defaults. Concurrency and
// email_on_completion are coerced loosely so hand-written manifests with
// quoted numbers or quoted booleans still bind.
type ManifestSettings struct {
	TemplateID        string `yaml:"template_id"`
	OutputFormat      string `yaml:"output_format"`
	Concurrency       any    `yaml:"concurrency"`
	EmailOnCompletion any    `yaml:"email_on_completion"`
	ItemTimeout       string `yaml:"item_timeout"`
}

// ManifestItem is one document entry in the manifest.
type ManifestItem struct {
	ID             string  `yaml:"id"`
	DocumentType   string  `yaml:"document_type"`
	DocumentNumber string  `yaml:"document_number"`
	Amount         float64 `yaml:"amount"`
	Currency       string  `yaml:"currency"`
	Priority       string  `yaml:"priority"`
}

// BindGenerateOptions loads the manifest and merges it with command flags
// into jobexec.Params for the service layer.
//
// Precedence for each setting: explicit flag > manifest value > engine
// defaults from the loaded configuration.
//
// Flags read:
//   - --name: Override the job name from the manifest
//   - --template: Document template ID
//   - --format: Artifact grouping (single_archive, individual_files)
//   - --concurrency: Hard cap on simultaneous renders
//   - --timeout: Per-item render timeout (e.g. "30s")
//   - --email: Request notification when the job finishes
//
// Returns an error if the manifest cannot be read or fails validation.
func BindGenerateOptions(cmd *cobra.Command, manifestPath string, defaults config.EngineConfig) (jobexec.Params, error) {
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return jobexec.Params{}, err
	}

	settings, err := resolveSettings(cmd, manifest.Settings, defaults)
	if err != nil {
		return jobexec.Params{}, err
	}

	items := make([]engine.ItemSpec, 0, len(manifest.Items))
	for i, entry := range manifest.Items {
		docType, err := engine.ParseDocumentType(entry.DocumentType)
		if err != nil {
			return jobexec.Params{}, fmt.Errorf("manifest item %d: %w", i, err)
		}
		priority, err := engine.ParsePriority(entry.Priority)
		if err != nil {
			return jobexec.Params{}, fmt.Errorf("manifest item %d: %w", i, err)
		}
		items = append(items, engine.ItemSpec{
			ID:             entry.ID,
			DocumentType:   docType,
			DocumentNumber: entry.DocumentNumber,
			Amount:         entry.Amount,
			Currency:       entry.Currency,
			Priority:       priority,
		})
	}

	name := manifest.Name
	if override, _ := cmd.Flags().GetString("name"); override != "" {
		name = override
	}

	return jobexec.Params{
		Name:     name,
		Items:    items,
		Settings: settings,
	}, nil
}

// LoadManifest reads and decodes a manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return manifest, nil
}

func resolveSettings(cmd *cobra.Command, ms ManifestSettings, defaults config.EngineConfig) (engine.Settings, error) {
	settings := engine.Settings{
		TemplateID:        defaults.TemplateID,
		OutputFormat:      engine.OutputFormat(defaults.OutputFormat),
		Concurrency:       defaults.Concurrency,
		ItemTimeout:       defaults.ItemTimeout,
		EmailOnCompletion: false,
	}

	if ms.TemplateID != "" {
		settings.TemplateID = ms.TemplateID
	}
	if ms.OutputFormat != "" {
		settings.OutputFormat = engine.OutputFormat(ms.OutputFormat)
	}
	if ms.Concurrency != nil {
		if n := cast.ToInt(ms.Concurrency); n > 0 {
			settings.Concurrency = n
		}
	}
	if ms.EmailOnCompletion != nil && cast.ToBool(ms.EmailOnCompletion) {
		settings.EmailOnCompletion = true
	}
	if ms.ItemTimeout != "" {
		d, err := time.ParseDuration(ms.ItemTimeout)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("manifest item_timeout: %w", err)
		}
		settings.ItemTimeout = d
	}

	if template, _ := cmd.Flags().GetString("template"); template != "" {
		settings.TemplateID = template
	}
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		settings.OutputFormat = engine.OutputFormat(format)
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		settings.Concurrency = concurrency
	}
	if timeout, _ := cmd.Flags().GetString("timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("invalid --timeout: %w", err)
		}
		settings.ItemTimeout = d
	}
	if email, _ := cmd.Flags().GetBool("email"); email {
		settings.EmailOnCompletion = true
	}

	return settings, nil
}
