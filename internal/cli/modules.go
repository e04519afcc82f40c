package cli

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jenny/pkg/pipeline"
	"github.com/matzehuels/jenny/pkg/registry"
	"github.com/matzehuels/jenny/pkg/router"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// modulesCommand lists the modules a site manifest declares.
func (c *CLI) modulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules declared in the site manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.loadConfig()
			if err != nil {
				return err
			}
			s, err := c.openSite(cmd.Context(), store.Config())
			if err != nil {
				return err
			}
			defer s.Close()

			rows := make([][]string, 0, len(s.modules))
			for _, m := range s.modules {
				rows = append(rows, moduleRow(m))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(moduleHeaders, rows))
			printDetail(out, "%s in %s", plural(len(s.modules), "module"), s.path)
			return nil
		},
	}
}

type resolveOpts struct {
	format  string
	globals bool
}

// resolveOutput is the JSON form of a resolved page.
type resolveOutput struct {
	Modules   []string `json:"modules"`
	ImportMap bool     `json:"importmap"`
	Head      string   `json:"head"`
	BodyHead  string   `json:"bodyhead"`
	BodyTail  string   `json:"bodytail"`
}

// resolveCommand shows what a page requiring the named modules would emit.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := &resolveOpts{}

	cmd := &cobra.Command{
		Use:   "resolve <module>...",
		Short: "Resolve modules into page order and show the emitted assets",
		Long: `Resolve registers every module of the site manifest, then resolves the named
modules (plus the configured global modules) the way a page render would:
dependencies first, each module once, with an import map when any module
exposes an imported ES module.`,
		Example: `  jenny resolve app -m site.toml
  jenny resolve app --format html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table, html or json")
	cmd.Flags().BoolVar(&opts.globals, "globals", true, "include the configured global modules")

	return cmd
}

func (c *CLI) runResolve(cmd *cobra.Command, names []string, opts *resolveOpts) error {
	ctx := cmd.Context()
	store, err := c.loadConfig()
	if err != nil {
		return err
	}
	cfg := store.Config()
	s, err := c.openSite(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	required, err := s.lookup(names)
	if err != nil {
		return err
	}

	reg := registry.New(router.New(router.WithLogger(c.Logger)), c.Logger)
	handle, err := reg.Register(s.modules...)
	if err != nil {
		return err
	}
	defer handle.Close()
	snap := reg.Snapshot()

	var globals []*webmodule.Module
	if opts.globals {
		for _, name := range cfg.Web.GlobalModules {
			m, ok := snap.Lookup(name)
			if !ok {
				c.Logger.Warn("global module is not declared", "name", name)
				continue
			}
			globals = append(globals, m)
		}
	}

	res, err := s.runner.Execute(ctx, pipeline.Options{
		Page:     "resolve",
		Globals:  globals,
		Required: required,
		Seq:      snap,
		Logger:   c.Logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		data, err := json.MarshalIndent(resolveOutput{
			Modules:   webmodule.Names(res.Modules),
			ImportMap: res.Stats.ImportMap,
			Head:      string(res.Assets.Head),
			BodyHead:  string(res.Assets.BodyHead),
			BodyTail:  string(res.Assets.BodyTail),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "html":
		for _, p := range webmodule.Placements {
			fmt.Fprintf(out, "<!-- %s -->\n%s", p, res.Assets.For(p))
		}
	case "table":
		rows := make([][]string, 0, len(res.Modules))
		for i, m := range res.Modules {
			rows = append(rows, append([]string{strconv.Itoa(i + 1)}, moduleRow(m)...))
		}
		fmt.Fprintln(out, renderTable(append([]string{"#"}, moduleHeaders...), rows))
		printDetail(out, "%s, import map: %t, resolved in %s",
			plural(res.Stats.ModuleCount, "module"), res.Stats.ImportMap, res.Stats.ResolveTime)
	default:
		return fmt.Errorf("invalid format: %q (must be one of: table, html, json)", opts.format)
	}
	return nil
}
