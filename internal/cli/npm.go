package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/jenny/pkg/cache"
	npmreg "github.com/matzehuels/jenny/pkg/integrations/npm"
	"github.com/matzehuels/jenny/pkg/webmodule/npm"
)

// npmConcurrency bounds parallel registry lookups.
const npmConcurrency = 4

type npmOpts struct {
	refresh     bool
	compression string
	files       bool
}

// npmLookup is one looked-up package with the module it would become.
type npmLookup struct {
	info  *npmreg.PackageInfo
	files []string
	entry string
}

// npmCommand inspects npm packages the way a [[cdn]] manifest entry would
// load them.
func (c *CLI) npmCommand() *cobra.Command {
	opts := &npmOpts{}

	cmd := &cobra.Command{
		Use:   "npm <package[@version]>...",
		Short: "Look up npm packages and the CDN modules they would become",
		Example: `  jenny npm bootstrap jquery@3.7.1
  jenny npm lit --compression minify --files`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNpm(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the metadata cache")
	cmd.Flags().StringVar(&opts.compression, "compression", "auto", "file variant to pick: auto, none or minify")
	cmd.Flags().BoolVar(&opts.files, "files", false, "list the resources of each module")

	return cmd
}

func (c *CLI) runNpm(cmd *cobra.Command, args []string, opts *npmOpts) error {
	compression, err := npm.ParseCompression(opts.compression)
	if err != nil {
		return err
	}
	store, err := c.loadConfig()
	if err != nil {
		return err
	}
	cfg := store.Config()

	ctx := cmd.Context()
	ch, err := cache.Open(ctx, c.cacheConfig(cfg))
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		ch = cache.NewNullCache()
	}
	defer ch.Close()
	client := c.npmClient(ch, cfg)

	errOut := cmd.ErrOrStderr()
	spin := newSpinner(ctx, errOut, "Looking up "+plural(len(args), "package")+"...")
	spin.Start()

	lookups := make([]npmLookup, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(npmConcurrency)
	for i, arg := range args {
		name, version := splitPackage(arg)
		g.Go(func() error {
			info, err := client.FetchPackage(gctx, name, version, opts.refresh)
			if err != nil {
				return err
			}
			files, err := client.FetchFiles(gctx, info.Name, info.Version, opts.refresh)
			if err != nil {
				return err
			}
			mod, err := npm.Remote(client, info.Name, info.Version).
				WithCompression(compression).
				Build(gctx)
			if err != nil {
				return fmt.Errorf("%s@%s: %w", info.Name, info.Version, err)
			}
			var entries []string
			for _, r := range mod.Resources() {
				entries = append(entries, r.URI())
			}
			lookups[i] = npmLookup{info: info, files: files, entry: strings.Join(entries, "\n")}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		spin.StopWithError("Lookup failed")
		return err
	}
	spin.Stop()

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(lookups))
	for _, l := range lookups {
		rows = append(rows, []string{
			l.info.Name,
			l.info.Version,
			orDash(l.info.License),
			orDash(l.info.Type),
			strconv.Itoa(len(l.files)),
			orDash(strings.Join(l.info.Dependencies, ", ")),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Package", "Version", "License", "Type", "Files", "Dependencies"}, rows))

	if opts.files {
		for _, l := range lookups {
			fmt.Fprintln(out, StyleTitle.Render(l.info.Name+"@"+l.info.Version))
			printKeyValue(out, "Base", client.CDNBase(l.info.Name, l.info.Version))
			for _, uri := range strings.Split(l.entry, "\n") {
				if uri != "" {
					printFile(out, StyleLink.Render(uri))
				}
			}
		}
	}
	if len(args) > 1 {
		printSuccess(out, "Looked up %s", plural(len(args), "package"))
	}
	return nil
}

// splitPackage splits "name@version", keeping the scope of "@scope/name".
func splitPackage(arg string) (name, version string) {
	at := strings.LastIndex(arg, "@")
	if at <= 0 {
		return arg, ""
	}
	return arg[:at], arg[at+1:]
}
