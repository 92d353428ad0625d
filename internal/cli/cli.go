// Package cli implements the dabble command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dabble/pkg/buildinfo"
	"github.com/matzehuels/dabble/pkg/cache"
	"github.com/matzehuels/dabble/pkg/history"
	"github.com/matzehuels/dabble/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "dabble"

	// historyFile is the name of the build history database.
	historyFile = "history.db"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "dabble",
		Short:        "Dabble builds solvated and membrane simulation cells",
		Long:         `Dabble inserts a solute into a pre-equilibrated lipid or water patch, removes clashes, adds ions and writes a periodic system ready for simulation.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags selects the tiled-patch cache backend.
type cacheFlags struct {
	noCache   bool
	dir       string
	redisURL  string
	namespace string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the tiled patch cache")
	cmd.Flags().StringVar(&f.dir, "cache-dir", "", "cache directory (default: XDG cache dir)")
	cmd.Flags().StringVar(&f.redisURL, "redis-url", "", "share tiled patches through Redis instead of the file cache")
	cmd.Flags().StringVar(&f.namespace, "cache-namespace", "", "prefix for cache keys in a shared cache")
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cf cacheFlags, noHistory bool) (*pipeline.Runner, error) {
	backend, err := c.newCache(ctx, cf)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cf.namespace != "" {
		keyer = cache.NewScopedKeyer(nil, cf.namespace)
	}
	r := pipeline.NewRunner(backend, keyer, c.Logger)
	if !noHistory {
		store, err := openHistory()
		if err != nil {
			c.Logger.Warn("build history disabled", "error", err)
		} else {
			r.History = store
		}
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, cf cacheFlags) (cache.Cache, error) {
	if cf.noCache {
		return cache.NewNullCache(), nil
	}
	if cf.redisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cf.redisURL)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, falling back to file cache", "error", err)
		} else {
			return rc, nil
		}
	}
	dir := cf.dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

func openHistory() (*history.Store, error) {
	path, err := historyPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/dabble/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// historyPath returns the history database path using XDG standard
// (~/.local/state/dabble/history.db).
func historyPath() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, appName, historyFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", appName, historyFile), nil
}
