// Package cli implements the packhouse command-line interface.
//
// This package provides commands for inspecting a pack catalog (tree,
// graph, resolve), rendering the dependency graph, working with a local
// selection session, and running the HTTP server. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/packhouse/packhouse/pkg/buildinfo"
	"github.com/packhouse/packhouse/pkg/cache"
	"github.com/packhouse/packhouse/pkg/manifest"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "packhouse"
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
		Use:          "packhouse",
		Short:        "Packhouse manages wiki pack catalogs and installations",
		Long:         `Packhouse is a tool for working with wiki pack catalogs: inspecting pack dependency graphs, planning which packs to install or update, and applying the resulting changes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.sessionCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Catalog Loading
// =============================================================================

// loadCatalog reads and validates the catalog manifest at path.
func loadCatalog(path string) (*manifest.Manifest, error) {
	return manifest.LoadFile(path)
}

// =============================================================================
// Local Session Cache
// =============================================================================

// newSessionCache opens the file-backed cache used by local session
// commands. noCache falls back to the null cache, making every session
// command start from scratch.
func newSessionCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/packhouse/).
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
