package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/jenny/pkg/cache"
	"github.com/matzehuels/jenny/pkg/dag"
	dagtransform "github.com/matzehuels/jenny/pkg/dag/transform"
	"github.com/matzehuels/jenny/pkg/emit"
	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/importmap"
	jio "github.com/matzehuels/jenny/pkg/io"
	"github.com/matzehuels/jenny/pkg/observability"
	"github.com/matzehuels/jenny/pkg/render"
	"github.com/matzehuels/jenny/pkg/resolve"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// TTLArtifact is how long rendered graph artifacts stay cached.
const TTLArtifact = 24 * time.Hour

// Runner executes pipelines. It holds no per-run state, so one Runner can
// serve concurrent renders.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs resolve, import map synthesis and emission for one page.
// The result depends only on the options, so equal inputs render
// byte-identical tags.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}
	result := &Result{}

	// Stage 1: Resolve
	start := time.Now()
	mods, err := resolve.New(opts.Seq, logger).Resolve(ctx, opts.Globals, opts.Required)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	result.Stats.ResolveTime = time.Since(start)

	// Stage 2: Import map
	withMap, err := importmap.Synthesize(mods, logger)
	if err != nil {
		return nil, fmt.Errorf("import map: %w", err)
	}
	result.Stats.ImportMap = len(withMap) != len(mods)
	result.Modules = withMap
	result.Stats.ModuleCount = len(withMap)

	// Stage 3: Emit
	start = time.Now()
	result.Assets = emit.All(withMap)
	result.Stats.EmitTime = time.Since(start)

	logger.Debug("emitted assets",
		"page", opts.Page,
		"modules", result.Stats.ModuleCount,
		"importmap", result.Stats.ImportMap,
		"resolve", result.Stats.ResolveTime)

	return result, nil
}

// Render runs the page pipeline and then fn, which executes the page
// template with the assets. Render hooks observe the whole render.
func (r *Runner) Render(ctx context.Context, opts Options, fn func(*Result) error) (err error) {
	hooks := observability.Render()
	start := time.Now()
	hooks.OnRenderStart(ctx, opts.Page)
	modules := 0
	defer func() {
		hooks.OnRenderComplete(ctx, opts.Page, modules, time.Since(start), err)
	}()

	result, err := r.Execute(ctx, opts)
	if err != nil {
		return err
	}
	modules = result.Stats.ModuleCount
	if err := fn(result); err != nil {
		return jerrors.Wrap(jerrors.ErrCodeRender, err, "render %s", opts.Page)
	}
	return nil
}

// Graph builds the requires graph of roots and renders it in every
// requested format. Unlike a page render it tolerates cycles so a broken
// graph can still be drawn.
func (r *Runner) Graph(ctx context.Context, roots []*webmodule.Module, seq resolve.Sequencer, opts GraphOptions) (*dag.DAG, map[string][]byte, error) {
	if err := opts.SetDefaults(); err != nil {
		return nil, nil, err
	}
	g, _, err := resolve.New(seq, opts.Logger).Graph(roots)
	if err != nil {
		return nil, nil, err
	}
	if opts.Reduce {
		if g.Validate() == nil {
			removed := dagtransform.TransitiveReduction(g)
			opts.Logger.Debug("reduced graph", "removed_edges", removed)
		} else {
			opts.Logger.Warn("graph has a cycle, skipping reduction")
		}
	}

	highlight := make([]string, 0, len(roots))
	for _, m := range roots {
		highlight = append(highlight, m.Name())
	}
	artifacts, err := r.Artifacts(ctx, g, highlight, opts)
	if err != nil {
		return nil, nil, err
	}
	return g, artifacts, nil
}

// Artifacts renders an already built graph, such as one read back from a
// JSON export, in every requested format. highlight names the nodes drawn
// as roots.
func (r *Runner) Artifacts(ctx context.Context, g *dag.DAG, highlight []string, opts GraphOptions) (map[string][]byte, error) {
	if err := opts.SetDefaults(); err != nil {
		return nil, err
	}
	dot := render.ToDOT(g, render.Options{Detailed: opts.Detailed, Highlight: highlight})

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatJSON:
			var buf bytes.Buffer
			if err := jio.WriteJSON(g, &buf); err != nil {
				return nil, err
			}
			artifacts[format] = buf.Bytes()
		case FormatDOT:
			artifacts[format] = []byte(dot)
		case FormatSVG:
			svg, err := r.svg(ctx, dot, opts.Refresh)
			if err != nil {
				return nil, err
			}
			artifacts[format] = svg
		}
	}
	return artifacts, nil
}

func (r *Runner) svg(ctx context.Context, dot string, refresh bool) ([]byte, error) {
	key := r.Keyer.ArtifactKey(FormatSVG, cache.Hash([]byte(dot)))
	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			return data, nil
		}
	}
	svg, err := render.RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	if err := r.Cache.Set(ctx, key, svg, TTLArtifact); err != nil {
		r.Logger.Debug("cache set failed", "key", key, "err", err)
	}
	return svg, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
