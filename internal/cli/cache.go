package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flint-py/flint/internal/cache"
	"github.com/flint-py/flint/internal/config"
)

// cacheCmd represents the cache command group.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the result cache",
	Long: `Manage the on-disk result cache.

The cache stores one shard file per directory of analyzed files, keyed
by file content, effective settings, and the executable bit. Entries
never expire by time; they simply stop matching when inputs change.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and stats",
	RunE:  runCacheInfo,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all cached results",
	RunE:  runCacheClean,
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*cache.Cache, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewLoader(rootDir).Load()
	if err != nil {
		return nil, err
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		dir = cache.DefaultRoot(rootDir)
	}
	return cache.Open(dir, slog.Default())
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	stats, err := c.Stat()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Location: %s\n", stats.Root)
	fmt.Fprintf(cmd.OutOrStdout(), "Shards:   %d\n", stats.ShardCount)
	fmt.Fprintf(cmd.OutOrStdout(), "Size:     %.1f KiB\n", float64(stats.TotalBytes)/1024)
	return nil
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Clean(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleaned.")
	return nil
}
