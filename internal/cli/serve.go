package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jenny/pkg/config"
	"github.com/matzehuels/jenny/pkg/metrics"
	"github.com/matzehuels/jenny/pkg/plugin"
	"github.com/matzehuels/jenny/pkg/web"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

type serveOpts struct {
	address     string
	templates   string
	contextPath string
	watch       bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := &serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site's modules and pages over HTTP",
		Long: `Serve builds every module declared in the site manifest, mounts them and
serves the pages. With --watch, edits to the configuration file are applied
without a restart (global modules and log level).`,
		Example: `  jenny serve -m site.toml
  jenny serve -c jenny.yaml --watch --address :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.address, "address", "", "listen address (overrides server.address)")
	cmd.Flags().StringVar(&opts.templates, "templates", "", "directory of page templates replacing the built-in ones")
	cmd.Flags().StringVar(&opts.contextPath, "context-path", "", "path prefix the site is served under")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the configuration file when it changes")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts *serveOpts) error {
	ctx := cmd.Context()
	store, err := c.loadConfig()
	if err != nil {
		return err
	}
	cfg := store.Config()
	applyLogLevel(c.Logger, cfg.Log.Level)
	if opts.address != "" {
		cfg.Server.Address = opts.address
	}

	s, err := c.openSite(ctx, cfg)
	if err != nil {
		return err
	}

	webOpts := []web.Option{
		web.WithLogger(c.Logger),
		web.WithRunner(s.runner),
		web.WithGlobalModules(cfg.Web.GlobalModules...),
		web.WithContextPath(opts.contextPath),
		web.WithServer(web.ServerConfig{
			Address:         cfg.Server.Address,
			ReadTimeout:     cfg.Server.ReadTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}),
	}
	if opts.templates != "" {
		tmpl, err := web.ParseTemplates(os.DirFS(opts.templates))
		if err != nil {
			_ = s.Close()
			return err
		}
		webOpts = append(webOpts, web.WithTemplates(tmpl))
	}
	w := web.New(webOpts...)

	site := &sitePlugin{web: w, modules: s.modules}
	if opts.watch {
		if store.Path() == "" {
			c.Logger.Warn("--watch needs --config, not watching")
		} else {
			site.watcher = config.NewWatcher(store, config.WithWatcherLogger(c.Logger))
		}
	}
	store.OnChange(func(cfg config.Config) {
		w.SetGlobalModules(cfg.Web.GlobalModules)
		applyLogLevel(c.Logger, cfg.Log.Level)
	})

	metrics.Install()
	host := plugin.NewHost(plugin.Options{
		Logger:          c.Logger,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, w, site)
	return host.Run(ctx)
}

// sitePlugin registers the manifest's modules with the web plugin and, when
// asked to, watches the configuration file.
type sitePlugin struct {
	web     *web.Web
	modules []*webmodule.Module
	watcher *config.Watcher
}

func (p *sitePlugin) String() string { return "site" }

func (p *sitePlugin) Open(ctx *plugin.Context) error {
	h, err := p.web.RegisterModules(p.modules...)
	if err != nil {
		return err
	}
	ctx.AutoClose(h)
	if p.watcher != nil {
		ctx.Supervise(p.watcher)
	}
	ctx.Logger().Info("registered site modules", "count", len(p.modules))
	return nil
}
