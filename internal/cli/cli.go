package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jenny/pkg/buildinfo"
	"github.com/matzehuels/jenny/pkg/cache"
	"github.com/matzehuels/jenny/pkg/config"
	jerrors "github.com/matzehuels/jenny/pkg/errors"
	npmreg "github.com/matzehuels/jenny/pkg/integrations/npm"
	"github.com/matzehuels/jenny/pkg/manifest"
	"github.com/matzehuels/jenny/pkg/pipeline"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// appName is the application name used for directories and display.
const appName = "jenny"

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

	configPath   string
	manifestPath string
	noCache      bool
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
		Use:   appName,
		Short: "Jenny serves web modules and the pages that use them",
		Long: `Jenny hosts web modules (scripts, stylesheets and ES modules with their
dependencies) and renders pages that include exactly the assets they require,
in dependency order, with a synthesized import map.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "configuration file (.toml or .yaml)")
	flags.StringVarP(&c.manifestPath, "manifest", "m", "", "site manifest (overrides web.manifest)")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the npm metadata cache")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.modulesCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.npmCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Setup
// =============================================================================

// loadConfig reads the layered configuration: defaults, --config, JENNY_*.
func (c *CLI) loadConfig() (*config.Store, error) {
	return config.Load(c.configPath, c.Logger)
}

// cacheConfig maps the cache section of cfg onto the cache package.
func (c *CLI) cacheConfig(cfg config.Config) cache.Config {
	backend := cfg.Cache.Backend
	if c.noCache {
		backend = cache.BackendNone
	}
	return cache.Config{
		Backend: backend,
		Dir:     cfg.Cache.Dir,
		TTL:     cfg.Cache.TTL,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
	}
}

// site is a built site manifest plus the runner sharing its cache.
type site struct {
	path    string
	modules []*webmodule.Module
	runner  *pipeline.Runner
}

// Close releases the runner and with it the cache.
func (s *site) Close() error { return s.runner.Close() }

// lookup returns the modules called names, or every module when names is
// empty.
func (s *site) lookup(names []string) ([]*webmodule.Module, error) {
	if len(names) == 0 {
		return s.modules, nil
	}
	byName := make(map[string]*webmodule.Module, len(s.modules))
	for _, m := range s.modules {
		byName[m.Name()] = m
	}
	out := make([]*webmodule.Module, 0, len(names))
	for _, n := range names {
		m, ok := byName[n]
		if !ok {
			return nil, jerrors.New(jerrors.ErrCodeNotFound, "module %q is not declared in %s", n, s.path)
		}
		out = append(out, m)
	}
	return out, nil
}

// openSite builds the modules of the site manifest. The returned site owns
// the cache and must be closed.
func (c *CLI) openSite(ctx context.Context, cfg config.Config) (*site, error) {
	path := c.manifestPath
	if path == "" {
		path = cfg.Web.Manifest
	}
	if path == "" {
		return nil, jerrors.Configuration("no site manifest: pass --manifest or set web.manifest")
	}

	decl, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}

	cacheCfg := c.cacheConfig(cfg)
	ch, err := cache.Open(ctx, cacheCfg)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", cacheCfg.Backend, "err", err)
		ch = cache.NewNullCache()
	}
	runner := pipeline.NewRunner(ch, nil, c.Logger)

	prog := newProgress(c.Logger)
	mods, err := decl.Build(ctx, manifest.Options{
		Root:   manifest.Root(path),
		Client: c.npmClient(ch, cfg),
		Logger: c.Logger,
	})
	if err != nil {
		_ = runner.Close()
		return nil, err
	}
	prog.done("Built " + plural(len(mods), "module") + " from " + path)
	return &site{path: path, modules: mods, runner: runner}, nil
}

func (c *CLI) npmClient(ch cache.Cache, cfg config.Config) *npmreg.Client {
	return npmreg.NewClient(ch, cfg.Cache.TTL,
		npmreg.WithRegistryURL(cfg.Npm.Registry),
		npmreg.WithCDNURL(cfg.Npm.CDN),
	)
}
