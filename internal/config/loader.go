package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables.
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader for the given project root.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to
// lowest):
// 1. Environment variables (FLINT_*)
// 2. Config file (.flint/config.yml or .flint/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".flint")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("FLINT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("rules.select")
	v.BindEnv("rules.ignore")
	v.BindEnv("cache.enabled")
	v.BindEnv("cache.dir")
	v.BindEnv("fix.mode")
	v.BindEnv("jobs")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("rules.select", defaults.Rules.Select)
	v.SetDefault("rules.ignore", defaults.Rules.Ignore)
	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.exclude", defaults.Paths.Exclude)
	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("fix.mode", defaults.Fix.Mode)
	v.SetDefault("jobs", defaults.Jobs)
}
