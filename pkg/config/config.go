// pkg/config/config.go
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Global Koanf instance, initialized once at startup.
var (
	k    *koanf.Koanf
	once sync.Once
)

// InitGlobalConfig initializes the global Koanf instance.
// This should be called early in the application lifecycle, before Load.
func InitGlobalConfig() {
	once.Do(func() {
		k = koanf.New(".")
	})
}

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex // To protect currentConfig during runtime updates
}

// NewManager creates a new Manager backed by the global Koanf instance,
// initializing it if not already done.
func NewManager() *Manager {
	InitGlobalConfig()
	return &Manager{
		koanfInstance: k,
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default
// values. These serve as the baseline if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1",
			Port:           8642,
			MetricsEnabled: true,
			ReadTimeout:    30,
			WriteTimeout:   60,
		},
		Engine: EngineConfig{
			Concurrency:  4,
			OutputFormat: "individual_files",
			TemplateID:   "default",
			ItemTimeout:  0,
			TemplatesDir: "",
		},
		Storage: StorageConfig{
			WorkspaceRoot: "",
			MaxAgeDays:    0,
			MaxJobs:       0,
		},
	}
}

// Load loads configuration from the standard sources based on precedence.
// It populates the manager's currentConfig.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (--log.level=debug)
//  2. Environment variables (DOCUGEN_LOG_LEVEL=debug)
//  3. Config file (YAML)
//  4. Default values
//
// Environment variables use the DOCUGEN_ prefix; the first underscore after
// the prefix becomes the section separator:
//
//	DOCUGEN_LOG_LEVEL             -> log.level
//	DOCUGEN_SERVER_PORT           -> server.port
//	DOCUGEN_STORAGE_WORKSPACE_ROOT -> storage.workspace_root
//
// For custom source ordering, use LoadWithSources() instead.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		debugFlag := flags.Lookup("debug")
		if debugFlag != nil && debugFlag.Value.String() == "true" {
			debug = true
		}
	}

	sources := DefaultSources(customConfigFilePath, flags, debug)
	return m.LoadWithSources(sources)
}

// LoadWithSources loads configuration from the provided sources in priority
// order. Sources with lower priority values are loaded first, higher
// priority sources override lower priority values.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})

	for _, src := range sources {
		if err := src.Load(m.koanfInstance); err != nil {
			return fmt.Errorf("error loading config from %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := m.koanfInstance.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	m.currentConfig = newCfg

	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfgCopy := m.currentConfig
	return cfgCopy
}

// GetValue retrieves a configuration value by key path.
// Example: GetValue("engine.concurrency")
// Returns nil if key doesn't exist.
func (m *Manager) GetValue(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance.Get(key)
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map for Koanf's
// confmap.Provider. This is a bit manual but ensures Koanf knows all keys.
func DefaultConfigAsMap() map[string]any {
	def := DefaultConfig()
	return map[string]any{
		// Log configuration
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		// Server configuration
		"server.addr":            def.Server.Addr,
		"server.port":            def.Server.Port,
		"server.metrics_enabled": def.Server.MetricsEnabled,
		"server.read_timeout":    def.Server.ReadTimeout,
		"server.write_timeout":   def.Server.WriteTimeout,

		// Engine defaults
		"engine.concurrency":   def.Engine.Concurrency,
		"engine.output_format": def.Engine.OutputFormat,
		"engine.template_id":   def.Engine.TemplateID,
		"engine.item_timeout":  def.Engine.ItemTimeout,
		"engine.templates_dir": def.Engine.TemplatesDir,

		// Storage configuration
		"storage.workspace_root": def.Storage.WorkspaceRoot,
		"storage.max_age_days":   def.Storage.MaxAgeDays,
		"storage.max_jobs":       def.Storage.MaxJobs,
	}
}

// BindFlags defines command-line flags corresponding to configuration
// settings. These flags allow overriding config file / environment variable
// settings. This function should be called when setting up Cobra commands.
func BindFlags(flags *pflag.FlagSet) {
	var flagvar bool
	flags.BoolVar(&flagvar, "debug", false, "Enable debug logging")

	// The main --config / -c flag for specifying the config file path is
	// defined directly on the root Cobra command's PersistentFlags.
}
