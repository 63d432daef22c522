package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/flint-py/flint/internal/cache"
	"github.com/flint-py/flint/internal/config"
	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/fix"
	"github.com/flint-py/flint/internal/rule"
)

// UnitReport is the per-unit outcome of a run. Err is set for unit I/O
// failures, which never abort the rest of the run.
type UnitReport struct {
	Path      string
	Result    *diag.Result
	Err       error
	FromCache bool
}

// Runner fans units out over a worker pool. Analysis is embarrassingly
// parallel across units; the result cache is the only shared mutable
// resource.
type Runner struct {
	RootDir  string
	Config   *config.Config
	Registry *rule.Registry
	Cache    *cache.Cache // nil disables caching
	Mode     fix.Mode
	// Write rewrites fixed files on disk; otherwise results carry the
	// rewritten text for diff output only.
	Write    bool
	Jobs     int
	Logger   *slog.Logger
	Progress ProgressReporter
}

// Run analyzes the files and returns one report per unit, in input
// order. Cancellation is honored between units, never mid-unit.
func (r *Runner) Run(ctx context.Context, files []string) ([]UnitReport, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := r.Progress
	if progress == nil {
		progress = NoOpProgress{}
	}

	jobs := r.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	reports := make([]UnitReport, len(files))
	progress.Start(len(files))
	defer progress.Done()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(files), 1)))

	for i, path := range files {
		g.Go(func() error {
			// A whole run may be cancelled only between units.
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			reports[i] = r.runOne(path, logger)
			progress.FileDone(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

func (r *Runner) runOne(path string, logger *slog.Logger) UnitReport {
	report := UnitReport{Path: path}

	text, info, err := readUnit(path)
	if err != nil {
		report.Err = fmt.Errorf("reading %s: %w", path, err)
		return report
	}
	executable := info.Mode()&0o111 != 0

	rel := path
	if r.RootDir != "" {
		if rp, err := filepath.Rel(r.RootDir, path); err == nil {
			rel = rp
		}
	}
	settings := r.Config.SettingsFor(rel)
	settings.FixMode = r.Mode.String()

	group := filepath.ToSlash(filepath.Dir(rel))
	key := cache.Key(text, settings.Fingerprint(), executable)

	if r.Cache != nil {
		if cached, ok := r.Cache.Lookup(group, key); ok {
			// A hit can carry rewritten text the disk never saw, e.g.
			// when the key was primed by a diff-only run.
			if r.Write && cached.Changed(text) {
				if err := writeUnit(path, cached.Text, info.Mode()); err != nil {
					report.Err = fmt.Errorf("writing fixes to %s: %w", path, err)
					return report
				}
			}
			report.Result = cached
			report.FromCache = true
			return report
		}
	}

	enabled := r.enabledFor(settings)
	pipeline := NewPipeline(r.Registry, enabled, r.Mode, logger)
	result := pipeline.RunUnit(path, text)

	if r.Write && result.Changed(text) {
		if err := writeUnit(path, result.Text, info.Mode()); err != nil {
			report.Err = fmt.Errorf("writing fixes to %s: %w", path, err)
			return report
		}
	}

	if r.Cache != nil {
		if err := r.Cache.Store(group, key, result); err != nil {
			// Cache trouble is never user-facing.
			logger.Debug("cache store failed", "path", path, "error", err)
		}
	}

	report.Result = result
	return report
}

// enabledFor turns effective settings into the code set the collector
// consults; nil means the whole registry.
func (r *Runner) enabledFor(settings config.Settings) map[string]struct{} {
	enabled := settings.Enabled()
	ignored := settings.Ignored()
	if enabled == nil && ignored == nil {
		return nil
	}
	if enabled == nil {
		enabled = make(map[string]struct{})
		for _, rl := range r.Registry.Rules() {
			enabled[rl.Code()] = struct{}{}
		}
	}
	for code := range ignored {
		delete(enabled, code)
	}
	return enabled
}

func readUnit(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return text, info, nil
}

// writeUnit replaces a unit's bytes via temp-then-rename, preserving
// its permission bits. A fix run must never leave a torn file behind.
func writeUnit(path string, text []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".flint-write-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(text); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode.Perm()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
