package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/gensh/internal/app"
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/infrastructure/cache"
	"github.com/doeshing/gensh/internal/infrastructure/cli/helpers"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the backend response cache",
	}

	cacheCmd.AddCommand(
		newCacheListCommand(container),
		newCacheClearCommand(container),
		newCacheStatsCommand(container),
	)

	return cacheCmd
}

// newCacheListCommand creates the 'cache list' subcommand
func newCacheListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cache entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStore(container)
			if err != nil {
				return err
			}
			entries, err := store.Entries()
			if err != nil {
				return fmt.Errorf("failed to retrieve cache entries: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, MsgNoCachedResponses)
				return nil
			}
			for _, entry := range entries {
				fmt.Fprintf(out, "%s | %s | %s\n",
					shortKey(entry.Key),
					entry.Provider,
					humanize.Time(entry.CreatedAt))
			}
			return nil
		},
	}
}

// newCacheClearCommand creates the 'cache clear' subcommand
func newCacheClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStore(container)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}
}

// newCacheStatsCommand creates the 'cache stats' subcommand
func newCacheStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache settings, size and per-provider counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStore(container)
			if err != nil {
				return err
			}
			return showCacheStats(cmd.OutOrStdout(), container.Config, store)
		},
	}
}

func cacheStore(container *app.Container) (*cache.FileCache, error) {
	if container.CacheStore == nil {
		return nil, errors.New(ErrCacheStoreUnavailable)
	}
	return container.CacheStore, nil
}

func showCacheStats(out io.Writer, cfg domain.Config, store *cache.FileCache) error {
	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("failed to retrieve cache entries: %w", err)
	}
	size, err := directorySize(store.Dir())
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}

	fmt.Fprintf(out, "Enabled: %t\nTTL: %s\nMax entries: %d\nCurrent entries: %d\nDirectory: %s\nSize: %s\n",
		cfg.Cache.Enabled,
		cfg.GetCacheTTL(),
		cfg.GetCacheMaxEntries(),
		len(entries),
		store.Dir(),
		humanize.Bytes(uint64(size)))

	if len(entries) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, entry := range entries {
		counts[entry.Provider]++
	}
	fmt.Fprintln(out, "Entries per provider:")
	for _, stat := range helpers.CalculateTopCommands(counts, 0) {
		fmt.Fprintf(out, "  %s: %d\n", stat.Command, stat.Count)
	}
	return nil
}

// directorySize sums regular file sizes under dir. A missing dir is empty.
func directorySize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
