// Package cli implements the command-line interface for inspecting and
// maintaining header caches.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hcache"
	"github.com/hupe1980/hcache/config"

	_ "github.com/hupe1980/hcache/store/bolt"
	_ "github.com/hupe1980/hcache/store/leveldb"
	_ "github.com/hupe1980/hcache/store/lmdb"
	_ "github.com/hupe1980/hcache/store/sqlite"
)

var (
	errNoCachePath = errors.New("no cache path: set header_cache or pass --cache")
	errLogFormat   = errors.New("unknown log format")
)

// Global flags
type globals struct {
	configPath     string
	cachePath      string
	backend        string
	compressMethod string
	compressLevel  int
	verbose        bool
	logFormat      string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "hcache",
		Short:         "hcache – inspect and maintain mail header caches",
		Long:          `A command-line utility for reading, writing and checking the on-disk header caches of a mail client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML settings file")
	pf.StringVar(&g.cachePath, "cache", "", "Cache file or directory (overrides header_cache)")
	pf.StringVar(&g.backend, "backend", "", "Store backend (overrides header_cache_backend)")
	pf.StringVar(&g.compressMethod, "compress-method", "", "Compression method (overrides header_cache_compress_method)")
	pf.IntVar(&g.compressLevel, "compress-level", 0, "Compression level (overrides header_cache_compress_level)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Verbose debug output to stderr")
	pf.StringVar(&g.logFormat, "log-format", "text", "Format of verbose output: text or json")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch g.logFormat {
		case "text", "json":
			return nil
		default:
			return fmt.Errorf("%w: %q", errLogFormat, g.logFormat)
		}
	}

	rootCmd.AddCommand(
		newPathCmd(g),
		newGetCmd(g),
		newPutCmd(g),
		newDelCmd(g),
		newRawCmd(g),
		newCRCCmd(g),
		newBackendsCmd(),
		newCheckCmd(g),
	)
	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// settings loads the configuration file and applies flag overrides.
func (g *globals) settings(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if g.cachePath != "" {
		cfg.HeaderCache = g.cachePath
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if g.compressMethod != "" {
		cfg.CompressMethod = g.compressMethod
	}
	if cmd.Flags().Changed("compress-level") {
		cfg.CompressLevel = g.compressLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (g *globals) logger(cmd *cobra.Command) *hcache.Logger {
	if !g.verbose {
		return hcache.NoopLogger()
	}
	if g.logFormat == "json" {
		return hcache.NewJSONLogger(cmd.ErrOrStderr(), slog.LevelDebug)
	}
	return hcache.NewTextLogger(cmd.ErrOrStderr(), slog.LevelDebug)
}

// open opens the cache of folder with the effective settings.
func (g *globals) open(cmd *cobra.Command, folder string) (*hcache.Cache, error) {
	cfg, err := g.settings(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.HeaderCache == "" {
		return nil, errNoCachePath
	}
	return hcache.Open(cfg.HeaderCache, folder, nil,
		hcache.WithConfig(cfg),
		hcache.WithLogger(g.logger(cmd)),
	)
}
