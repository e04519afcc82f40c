package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jenny/pkg/dag"
	jio "github.com/matzehuels/jenny/pkg/io"
	"github.com/matzehuels/jenny/pkg/pipeline"
	"github.com/matzehuels/jenny/pkg/registry"
	"github.com/matzehuels/jenny/pkg/router"
)

type graphOpts struct {
	formats  string
	output   string
	from     string
	reduce   bool
	detailed bool
	refresh  bool
}

// graphCommand renders the requires graph of the site's modules.
func (c *CLI) graphCommand() *cobra.Command {
	opts := &graphOpts{}

	cmd := &cobra.Command{
		Use:   "graph [module...]",
		Short: "Render the requires graph of modules as JSON, DOT or SVG",
		Long: `Graph draws which modules require which. Without arguments every declared
module is a root. Cycles are drawn with dashed back edges instead of failing,
so a broken manifest can still be inspected.

With --from, a graph previously exported as JSON is rendered instead of the
site manifest.`,
		Example: `  jenny graph -m site.toml -f svg -o site
  jenny graph app --reduce -f dot
  jenny graph --from site.json -f svg -o site`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.formats, "format", "f", "dot", "output formats, comma separated: json, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path without extension (stdout for a single format)")
	cmd.Flags().StringVar(&opts.from, "from", "", "render a graph exported as JSON")
	cmd.Flags().BoolVar(&opts.reduce, "reduce", false, "drop edges implied by longer requires paths")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show sequence numbers and metadata in labels")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the SVG cache")

	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, args []string, opts *graphOpts) error {
	ctx := cmd.Context()
	gopts := pipeline.GraphOptions{
		Formats:  parseFormats(opts.formats),
		Reduce:   opts.reduce,
		Detailed: opts.detailed,
		Refresh:  opts.refresh,
		Logger:   c.Logger,
	}
	if err := pipeline.ValidateFormats(gopts.Formats); err != nil {
		return err
	}
	if len(gopts.Formats) > 1 && opts.output == "" {
		return fmt.Errorf("--output is required for more than one format")
	}

	var (
		g         *dag.DAG
		artifacts map[string][]byte
	)
	if opts.from != "" {
		imported, err := jio.ImportJSON(opts.from)
		if err != nil {
			return fmt.Errorf("read graph: %w", err)
		}
		runner := pipeline.NewRunner(nil, nil, c.Logger)
		defer runner.Close()
		if artifacts, err = runner.Artifacts(ctx, imported, args, gopts); err != nil {
			return err
		}
		g = imported
	} else {
		store, err := c.loadConfig()
		if err != nil {
			return err
		}
		s, err := c.openSite(ctx, store.Config())
		if err != nil {
			return err
		}
		defer s.Close()

		roots, err := s.lookup(args)
		if err != nil {
			return err
		}
		reg := registry.New(router.New(router.WithLogger(c.Logger)), c.Logger)
		handle, err := reg.Register(s.modules...)
		if err != nil {
			return err
		}
		defer handle.Close()

		if g, artifacts, err = s.runner.Graph(ctx, roots, reg.Snapshot(), gopts); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.output == "" {
		_, err := out.Write(artifacts[gopts.Formats[0]])
		return err
	}
	for _, format := range gopts.Formats {
		path := opts.output + "." + format
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(out, path)
	}
	printDetail(out, "%s, %s", plural(g.NodeCount(), "module"), plural(g.EdgeCount(), "edge"))
	return nil
}

// parseFormats splits a comma-separated format list.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
