package config

import (
	"sort"
	"strings"
)

// Config is the complete flint configuration. It can be loaded from
// .flint/config.yml with environment variable overrides.
type Config struct {
	Rules     RulesConfig `yaml:"rules" mapstructure:"rules"`
	Paths     PathsConfig `yaml:"paths" mapstructure:"paths"`
	Cache     CacheConfig `yaml:"cache" mapstructure:"cache"`
	Fix       FixConfig   `yaml:"fix" mapstructure:"fix"`
	Jobs      int         `yaml:"jobs" mapstructure:"jobs"`
	Overrides []Override  `yaml:"overrides" mapstructure:"overrides"`
}

// RulesConfig selects the rule battery.
type RulesConfig struct {
	Select []string `yaml:"select" mapstructure:"select"` // enabled codes; empty enables all
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // codes removed after select
}

// PathsConfig defines which files to analyze and which to skip.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for units
	Exclude []string `yaml:"exclude" mapstructure:"exclude"` // glob patterns to skip
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"` // override default .flint/cache
}

// FixConfig sets the default fix mode; CLI flags override it.
type FixConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // off | safe | all
}

// Override adjusts rule selection for paths matching a glob. The first
// matching override wins.
type Override struct {
	Path   string   `yaml:"path" mapstructure:"path"`
	Select []string `yaml:"select" mapstructure:"select"`
	Ignore []string `yaml:"ignore" mapstructure:"ignore"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Rules: RulesConfig{},
		Paths: PathsConfig{
			Include: []string{"**/*.py", "**/*.pyi"},
			Exclude: []string{"**/.git/**", "**/.flint/**", "**/venv/**", "**/.venv/**", "**/__pycache__/**"},
		},
		Cache: CacheConfig{Enabled: true},
		Fix:   FixConfig{Mode: "off"},
		Jobs:  0, // 0 means GOMAXPROCS
	}
}

// Settings is the fully-resolved effective configuration for one path.
// Its fingerprint participates in the cache key, so two paths under
// different overrides never share a cache slot.
type Settings struct {
	// Select and Ignore are kept sorted for a stable fingerprint.
	Select  []string
	Ignore  []string
	FixMode string
}

// Enabled returns the selected code set minus ignores, or nil when the
// selection is "everything" (the caller subtracts Ignored itself).
func (s Settings) Enabled() map[string]struct{} {
	if len(s.Select) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(s.Select))
	for _, c := range s.Select {
		set[c] = struct{}{}
	}
	for _, c := range s.Ignore {
		delete(set, c)
	}
	return set
}

// Ignored returns the ignore list as a set.
func (s Settings) Ignored() map[string]struct{} {
	if len(s.Ignore) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(s.Ignore))
	for _, c := range s.Ignore {
		set[c] = struct{}{}
	}
	return set
}

// Fingerprint serializes the settings deterministically for cache keys.
func (s Settings) Fingerprint() string {
	var b strings.Builder
	b.WriteString("select=")
	b.WriteString(strings.Join(s.Select, ","))
	b.WriteString(";ignore=")
	b.WriteString(strings.Join(s.Ignore, ","))
	b.WriteString(";fix=")
	b.WriteString(s.FixMode)
	return b.String()
}

// SettingsFor resolves the effective settings for a path relative to
// the project root, applying the first matching override.
func (c *Config) SettingsFor(relPath string) Settings {
	s := Settings{
		Select:  sortedCopy(c.Rules.Select),
		Ignore:  sortedCopy(c.Rules.Ignore),
		FixMode: c.Fix.Mode,
	}
	for _, ov := range c.Overrides {
		g, err := compileGlob(ov.Path)
		if err != nil || !g.Match(normalizePath(relPath)) {
			continue
		}
		if len(ov.Select) > 0 {
			s.Select = sortedCopy(ov.Select)
		}
		if len(ov.Ignore) > 0 {
			s.Ignore = sortedCopy(ov.Ignore)
		}
		break
	}
	return s
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
