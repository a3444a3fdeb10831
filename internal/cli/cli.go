package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/btgraph/internal/config"
	"github.com/matzehuels/btgraph/pkg/buildinfo"
	"github.com/matzehuels/btgraph/pkg/cache"
	"github.com/matzehuels/btgraph/pkg/catalog"
	"github.com/matzehuels/btgraph/pkg/document"
	"github.com/matzehuels/btgraph/pkg/pipeline"
	"github.com/matzehuels/btgraph/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "btgraph"

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
	Config *config.Config

	configPath string
	verbose    bool
	out        io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command output (documents, reports). Logs keep their
// own writer.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "btgraph migrates, validates and lays out behavior tree documents",
		Long: `btgraph works on behavior tree documents: it upgrades legacy files to the
current schema, checks graphs against a type catalog, and assigns editor
positions to nodes.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the config and attaches the logger to the command context.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	level := LogInfo
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		level = lvl
	}
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from the config. catalogPath
// overrides the configured catalog when set.
func (c *CLI) newRunner(ctx context.Context, noCache bool, catalogPath string) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	cat, err := c.loadCatalog(catalogPath)
	if err != nil {
		ch.Close()
		return nil, err
	}

	var keyer cache.Keyer
	if prefix := c.Config.Cache.KeyPrefix; prefix != "" {
		keyer = cache.NewScopedKeyer(nil, prefix)
	}
	r := pipeline.NewRunner(ch, keyer, c.Logger)
	r.Catalog = cat
	r.Migrator = &document.Migrator{
		Author: c.Config.Author,
		Layout: c.Config.Layout.Options(),
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache
	if noCache || cfg.Backend == "none" {
		return cache.NewNullCache(), nil
	}

	var (
		ch  cache.Cache
		err error
	)
	switch cfg.Backend {
	case "redis":
		ch, err = cache.NewRedisCache(ctx, cache.RedisOptions{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
	default:
		ch, err = cache.NewFileCache(cfg.Dir)
		if err != nil {
			c.Logger.Warn("cache disabled", "dir", cfg.Dir, "error", err)
			return cache.NewNullCache(), nil
		}
	}
	return cache.WithMaxTTL(ch, cfg.TTL.Std()), nil
}

// loadCatalog returns the catalog at path, the configured catalog, or the
// builtin one, in that order.
func (c *CLI) loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		path = c.Config.Catalog
	}
	if path == "" {
		return catalog.Builtin(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded catalog", "path", path, "types", cat.Len())
	return cat, nil
}

// newStore opens the configured document store.
func (c *CLI) newStore(ctx context.Context) (storage.Store, error) {
	cfg := c.Config.Store
	if cfg.Backend == "mongo" {
		s, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := storage.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}
