package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "flint",
	Short: "flint - a fast Python linter with autofix",
	Long: `flint analyzes Python source files against a battery of
correctness and style rules, and can rewrite files to satisfy them.

Runs are incremental: results are cached per file content and
configuration, so repeated checks over an unchanged tree are nearly
free.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
// Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
