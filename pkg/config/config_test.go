package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to reset global variables for testing
func resetGlobalConfig() {
	k = nil
	once = sync.Once{}
}

func TestInitGlobalConfig_InitializesKoanfOnce(t *testing.T) {
	resetGlobalConfig()
	InitGlobalConfig()
	assert.NotNil(t, k, "Global koanf instance should be initialized")
}

func TestInitGlobalConfig_IsIdempotent(t *testing.T) {
	resetGlobalConfig()
	InitGlobalConfig()
	firstInstance := k
	InitGlobalConfig()
	secondInstance := k
	assert.Equal(t, firstInstance, secondInstance, "Koanf instance should not change on repeated InitGlobalConfig calls")
}

func TestNewManager_InitializesManagerWithGlobalKoanf(t *testing.T) {
	resetGlobalConfig()
	manager := NewManager()
	assert.NotNil(t, manager, "Manager should not be nil")
	assert.NotNil(t, manager.koanfInstance, "Manager's koanfInstance should not be nil")
	assert.Equal(t, k, manager.koanfInstance, "Manager's koanfInstance should use the global Koanf instance")
}

func TestNewManager_MultipleManagersShareGlobalKoanf(t *testing.T) {
	resetGlobalConfig()
	manager1 := NewManager()
	manager2 := NewManager()
	assert.Equal(t, manager1.koanfInstance, manager2.koanfInstance, "All managers should share the same global Koanf instance")
}

func TestDefaultConfig_ReturnsExpectedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Log.Level, "Default log level should be 'info'")
	assert.Equal(t, "text", cfg.Log.Format, "Default log format should be 'text'")
	assert.Equal(t, "", cfg.Log.File, "Default log file should be empty")
	assert.Equal(t, 4, cfg.Engine.Concurrency, "Default engine concurrency should be 4")
	assert.Equal(t, "individual_files", cfg.Engine.OutputFormat)
	assert.Equal(t, 8642, cfg.Server.Port)
}

func TestManager_Load_LoadsDefaultsWhenNoFlags(t *testing.T) {
	resetGlobalConfig()
	manager := NewManager()
	err := manager.Load(nil, "")
	assert.NoError(t, err, "Load should not return error when loading defaults")
	cfg := manager.Get()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Engine.Concurrency)
}

func TestManager_Load_OverridesWithFlags(t *testing.T) {
	resetGlobalConfig()
	manager := NewManager()
	flags := newTestFlagSet()
	_ = flags.Set("log.level", "error")
	_ = flags.Set("log.format", "json")
	_ = flags.Set("engine.concurrency", "16")
	err := manager.Load(flags, "")
	assert.NoError(t, err, "Load should not return error when loading with flags")
	cfg := manager.Get()
	assert.Equal(t, "error", cfg.Log.Level, "Flag should override log level")
	assert.Equal(t, "json", cfg.Log.Format, "Flag should override log format")
	assert.Equal(t, 16, cfg.Engine.Concurrency, "Flag should override engine concurrency")
}

func TestManager_Load_DebugFlagSetsLogLevelToDebug(t *testing.T) {
	resetGlobalConfig()
	manager := NewManager()
	flags := newTestFlagSet()
	_ = flags.Set("debug", "true")
	err := manager.Load(flags, "")
	assert.NoError(t, err, "Load should not return error when loading with debug flag")
	cfg := manager.Get()
	assert.Equal(t, "debug", cfg.Log.Level, "Debug flag should set log level to debug")
}

func TestManager_Load_ConfigFile(t *testing.T) {
	resetGlobalConfig()

	dir := t.TempDir()
	path := filepath.Join(dir, "docugen.yaml")
	content := []byte(`
log:
  level: warn
engine:
  concurrency: 8
  template_id: quarterly
storage:
  workspace_root: /tmp/docugen-test
  max_jobs: 50
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	manager := NewManager()
	err := manager.Load(nil, path)
	require.NoError(t, err)

	cfg := manager.Get()
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Engine.Concurrency)
	assert.Equal(t, "quarterly", cfg.Engine.TemplateID)
	assert.Equal(t, "/tmp/docugen-test", cfg.Storage.WorkspaceRoot)
	assert.Equal(t, 50, cfg.Storage.MaxJobs)
	assert.Equal(t, "text", cfg.Log.Format, "Unset file keys should keep defaults")
}

func TestManager_Load_MissingConfigFileErrors(t *testing.T) {
	resetGlobalConfig()
	manager := NewManager()
	err := manager.Load(nil, "/nonexistent/docugen.yaml")
	assert.Error(t, err, "Load should fail when an explicit config file does not exist")
}

func TestManager_Load_EnvVarsOverrideDefaults(t *testing.T) {
	resetGlobalConfig()

	t.Setenv("DOCUGEN_LOG_LEVEL", "warn")
	t.Setenv("DOCUGEN_LOG_FORMAT", "json")
	t.Setenv("DOCUGEN_SERVER_PORT", "9999")

	manager := NewManager()
	err := manager.Load(nil, "")
	assert.NoError(t, err, "Load should not return error when loading with env vars")

	cfg := manager.Get()
	assert.Equal(t, "warn", cfg.Log.Level, "ENV var should override log level")
	assert.Equal(t, "json", cfg.Log.Format, "ENV var should override log format")
	assert.Equal(t, 9999, cfg.Server.Port, "ENV var should override server port")
}

func TestManager_Load_EnvVarMultiWordKeys(t *testing.T) {
	resetGlobalConfig()

	// Only the first underscore after the prefix is a section separator.
	t.Setenv("DOCUGEN_STORAGE_WORKSPACE_ROOT", "/var/lib/docugen")
	t.Setenv("DOCUGEN_ENGINE_OUTPUT_FORMAT", "single_archive")

	manager := NewManager()
	err := manager.Load(nil, "")
	assert.NoError(t, err)

	cfg := manager.Get()
	assert.Equal(t, "/var/lib/docugen", cfg.Storage.WorkspaceRoot)
	assert.Equal(t, "single_archive", cfg.Engine.OutputFormat)
}

func TestManager_Load_FlagsOverrideEnvVars(t *testing.T) {
	resetGlobalConfig()

	t.Setenv("DOCUGEN_LOG_LEVEL", "warn")

	manager := NewManager()
	flags := newTestFlagSet()
	_ = flags.Set("log.level", "error") // Flag should win over env var

	err := manager.Load(flags, "")
	assert.NoError(t, err, "Load should not return error")

	cfg := manager.Get()
	assert.Equal(t, "error", cfg.Log.Level, "CLI flag should override ENV var")
}

func TestBindFlags_AddsDebugFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	debugFlag := flags.Lookup("debug")
	assert.NotNil(t, debugFlag, "BindFlags should add a 'debug' flag")
	assert.Equal(t, "false", debugFlag.DefValue, "Debug flag should default to false")
}

func TestDefaultSources_DebugOverrideOnTop(t *testing.T) {
	flags := newTestFlagSet()
	sources := DefaultSources("", flags, true)

	highest := sources[0].Priority()
	for _, src := range sources {
		if src.Priority() > highest {
			highest = src.Priority()
		}
	}
	assert.Equal(t, PriorityOverride, highest, "Debug override should carry the highest priority")
}

func newTestFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "info", "")
	flags.String("log.format", "text", "")
	flags.Int("engine.concurrency", 4, "")
	flags.Bool("debug", false, "")
	return flags
}
