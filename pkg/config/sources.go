// pkg/config/sources.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix for configuration environment variables.
const EnvPrefix = "DOCUGEN_"

// Source priorities, lowest loaded first so higher values win.
const (
	PriorityDefaults = 10
	PriorityFile     = 20
	PriorityEnv      = 30
	PriorityFlags    = 40
	PriorityOverride = 50
)

// ConfigSource is one layer of the configuration chain. Sources are loaded
// in ascending Priority order; later loads override earlier keys.
type ConfigSource interface {
	Name() string
	Priority() int
	Load(k *koanf.Koanf) error
}

// DefaultSources returns the standard configuration chain:
// defaults < config file < environment < flags. The debug override sits on
// top so --debug always wins.
func DefaultSources(configFilePath string, flags *pflag.FlagSet, debug bool) []ConfigSource {
	sources := []ConfigSource{
		defaultsSource{},
		envSource{},
	}
	if configFilePath != "" {
		sources = append(sources, fileSource{path: configFilePath})
	}
	if flags != nil {
		sources = append(sources, flagSource{flags: flags})
	}
	if debug {
		sources = append(sources, overrideSource{values: map[string]any{"log.level": "debug"}})
	}
	return sources
}

type defaultsSource struct{}

func (defaultsSource) Name() string  { return "defaults" }
func (defaultsSource) Priority() int { return PriorityDefaults }

func (defaultsSource) Load(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil)
}

type fileSource struct {
	path string
}

func (s fileSource) Name() string  { return "file:" + s.path }
func (s fileSource) Priority() int { return PriorityFile }

func (s fileSource) Load(k *koanf.Koanf) error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("config file %s does not exist", s.path)
	}
	return k.Load(file.Provider(s.path), yaml.Parser())
}

type envSource struct{}

func (envSource) Name() string  { return "env" }
func (envSource) Priority() int { return PriorityEnv }

// Load maps DOCUGEN_SECTION_SOME_KEY to section.some_key: only the first
// underscore becomes the section delimiter, so multi-word keys survive.
func (envSource) Load(k *koanf.Koanf) error {
	return k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil)
}

type flagSource struct {
	flags *pflag.FlagSet
}

func (flagSource) Name() string  { return "flags" }
func (flagSource) Priority() int { return PriorityFlags }

func (s flagSource) Load(k *koanf.Koanf) error {
	return k.Load(posflag.Provider(s.flags, ".", k), nil)
}

type overrideSource struct {
	values map[string]any
}

func (overrideSource) Name() string  { return "override" }
func (overrideSource) Priority() int { return PriorityOverride }

func (s overrideSource) Load(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(s.values, "."), nil)
}
