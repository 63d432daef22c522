package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flint-py/flint/internal/cache"
	"github.com/flint-py/flint/internal/config"
	"github.com/flint-py/flint/internal/driver"
	"github.com/flint-py/flint/internal/fix"
	"github.com/flint-py/flint/internal/report"
	"github.com/flint-py/flint/internal/rule"
)

var (
	checkFix         bool
	checkUnsafeFixes bool
	checkDiff        bool
	checkNoCache     bool
	checkWatch       bool
	checkOutput      string
	checkJobs        int
	checkQuiet       bool
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Analyze Python files and optionally apply fixes",
	Long: `Analyze the given files or directories (default: current
directory) against the enabled rule battery.

With --fix, safe fixes are applied and files rewritten in place; add
--unsafe-fixes to also apply fixes that may change behavior. With
--diff, fixes are rendered as unified diffs instead of being written.

Exit code is 1 when diagnostics remain, 2 on a configuration error.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "apply safe fixes and rewrite files")
	checkCmd.Flags().BoolVar(&checkUnsafeFixes, "unsafe-fixes", false, "also apply manual-only fixes (implies --fix)")
	checkCmd.Flags().BoolVar(&checkDiff, "diff", false, "print fixes as unified diffs instead of writing files")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "bypass the result cache")
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "re-run on file changes")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "text", "output format: text or json")
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0, "number of parallel workers (0 = GOMAXPROCS)")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "suppress the progress bar")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rootDir, err := os.Getwd()
	if err != nil {
		return err
	}

	// Configuration errors abort before any unit is processed.
	cfg, err := config.NewLoader(rootDir).Load()
	if err != nil {
		return err
	}

	mode := fix.ModeOff
	switch {
	case checkUnsafeFixes:
		mode = fix.ModeAll
	case checkFix || checkDiff:
		mode = fix.ModeSafe
	case cfg.Fix.Mode == "safe":
		mode = fix.ModeSafe
	case cfg.Fix.Mode == "all":
		mode = fix.ModeAll
	}

	var resultCache *cache.Cache
	if cfg.Cache.Enabled && !checkNoCache {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = cache.DefaultRoot(rootDir)
		}
		resultCache, err = cache.Open(dir, slog.Default())
		if err != nil {
			return fmt.Errorf("opening result cache: %w", err)
		}
		defer resultCache.Close()
	}

	jobs := checkJobs
	if jobs == 0 {
		jobs = cfg.Jobs
	}

	runner := &driver.Runner{
		RootDir:  rootDir,
		Config:   cfg,
		Registry: rule.Default(),
		Cache:    resultCache,
		Mode:     mode,
		Write:    mode != fix.ModeOff && !checkDiff,
		Jobs:     jobs,
		Logger:   slog.Default(),
	}
	if !checkQuiet && checkOutput == "text" && !checkWatch {
		runner.Progress = &driver.BarProgress{}
	}

	if len(args) == 0 {
		args = []string{rootDir}
	}

	discovery, err := driver.NewFileDiscovery(rootDir, cfg.Paths.Include, cfg.Paths.Exclude)
	if err != nil {
		return err
	}

	runOnce := func(ctx context.Context) (int, error) {
		files, err := discovery.Discover(args)
		if err != nil {
			return 0, err
		}
		reports, err := runner.Run(ctx, files)
		if err != nil {
			return 0, err
		}
		return render(cmd, reports)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if checkWatch {
		return watchLoop(ctx, rootDir, runOnce)
	}

	remaining, err := runOnce(ctx)
	if err != nil {
		return err
	}
	if remaining > 0 {
		os.Exit(1)
	}
	return nil
}

// render prints the reports in the selected format and returns the
// number of remaining diagnostics.
func render(cmd *cobra.Command, reports []driver.UnitReport) (int, error) {
	out := cmd.OutOrStdout()

	if checkDiff {
		for _, rep := range reports {
			if rep.Result == nil || rep.Err != nil {
				continue
			}
			original, err := os.ReadFile(rep.Path)
			if err != nil {
				continue
			}
			if !rep.Result.Changed(original) {
				continue
			}
			text, err := fix.UnifiedDiff(rep.Path, original, rep.Result.Text)
			if err != nil {
				return 0, err
			}
			fmt.Fprint(out, text)
		}
	}

	switch checkOutput {
	case "json":
		if err := report.JSON(out, reports); err != nil {
			return 0, err
		}
		total := 0
		for _, rep := range reports {
			if rep.Result != nil {
				total += len(rep.Result.Diagnostics)
			}
		}
		return total, nil
	case "text":
		total := report.Text(out, reports)
		report.Summary(out, reports, total)
		return total, nil
	default:
		return 0, fmt.Errorf("unknown output format %q", checkOutput)
	}
}

// watchLoop re-runs the check after every debounced change event until
// the context is cancelled.
func watchLoop(ctx context.Context, rootDir string, runOnce func(context.Context) (int, error)) error {
	if _, err := runOnce(ctx); err != nil {
		return err
	}

	rerun := make(chan struct{}, 1)
	watcher, err := driver.NewWatcher(rootDir, func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	}, slog.Default())
	if err != nil {
		return err
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	fmt.Fprintln(os.Stderr, "watching for changes... (ctrl-c to exit)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rerun:
			if _, err := runOnce(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}
}
