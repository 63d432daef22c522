package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks the configuration for errors. A configuration error
// aborts the run before any unit is processed.
func Validate(cfg *Config) error {
	switch cfg.Fix.Mode {
	case "off", "safe", "all":
	default:
		return fmt.Errorf("fix.mode must be one of off, safe, all; got %q", cfg.Fix.Mode)
	}

	if cfg.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", cfg.Jobs)
	}

	for _, p := range append(append([]string{}, cfg.Paths.Include...), cfg.Paths.Exclude...) {
		if _, err := compileGlob(p); err != nil {
			return fmt.Errorf("invalid path pattern %q: %w", p, err)
		}
	}
	for i, ov := range cfg.Overrides {
		if strings.TrimSpace(ov.Path) == "" {
			return fmt.Errorf("overrides[%d]: path is required", i)
		}
		if _, err := compileGlob(ov.Path); err != nil {
			return fmt.Errorf("overrides[%d]: invalid path pattern %q: %w", i, ov.Path, err)
		}
	}
	return nil
}

// compileGlob compiles a pattern with '/' as the separator, the same
// semantics file discovery uses.
func compileGlob(pattern string) (glob.Glob, error) {
	return glob.Compile(pattern, '/')
}

// normalizePath converts a path to forward slashes for glob matching.
func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
