package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dabble/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the tiled patch cache",
	}

	cmd.AddCommand(c.cacheListCommand())
	cmd.AddCommand(c.cachePruneCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// openFileCache opens the file cache at dir, or the default location.
func openFileCache(dir string) (*cache.FileCache, error) {
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// cacheListCommand creates the "cache list" subcommand.
func (c *CLI) cacheListCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached tiled patches",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache(dir)
			if err != nil {
				return err
			}
			entries, err := fc.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("Cache is empty")
				return nil
			}
			fmt.Println(cacheTable(entries, time.Now()))
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "cache-dir", "", "cache directory (default: XDG cache dir)")
	return cmd
}

// cacheTable renders cache entries with their size and remaining lifetime.
func cacheTable(entries []cache.EntryInfo, now time.Time) string {
	t := newTable("Key", "Size", "Created", "Expires")
	for _, e := range entries {
		expires := "never"
		if !e.ExpiresAt.IsZero() {
			if now.After(e.ExpiresAt) {
				expires = "expired"
			} else {
				expires = e.ExpiresAt.Sub(now).Round(time.Minute).String()
			}
		}
		t.Row(e.Key, formatSize(e.Size), e.CreatedAt.Format(time.DateTime), expires)
	}
	return t.Render()
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// cachePruneCommand creates the "cache prune" subcommand.
func (c *CLI) cachePruneCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and unreadable cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache(dir)
			if err != nil {
				return err
			}
			n, err := fc.Prune(cmd.Context(), false)
			if err != nil {
				return err
			}
			printSuccess("Removed %d stale entries", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "cache-dir", "", "cache directory (default: XDG cache dir)")
	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached tiled patch",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := openFileCache(dir)
			if err != nil {
				return err
			}
			n, err := fc.Prune(cmd.Context(), true)
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "cache-dir", "", "cache directory (default: XDG cache dir)")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
