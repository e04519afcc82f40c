// Package web hosts web modules and renders pages that use them.
//
// A [Web] owns the module [registry.Registry], the dynamic [router.Router]
// the registry mounts into, and the page templates. Handlers call [Require]
// while serving a request; [Web.RenderPage] then resolves everything
// required (plus the global modules), synthesizes the import map and places
// the asset tags into the page template's head, bodyhead and bodytail
// regions:
//
//	w := web.New(web.WithGlobalModules("bootstrap"))
//	h, err := w.RegisterModules(bootstrapTable)
//	...
//	func(rw http.ResponseWriter, r *http.Request) {
//		_ = web.Require(r.Context(), bootstrapTable)
//		page, err := w.RenderPage(r.Context(), "index.html", nil)
//		...
//	}
//
// Rendering never changes registry state, so renders run concurrently with
// each other; registering or unregistering modules waits for no render.
package web

import (
	"bytes"
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/jenny/pkg/pipeline"
	"github.com/matzehuels/jenny/pkg/plugin"
	"github.com/matzehuels/jenny/pkg/registry"
	"github.com/matzehuels/jenny/pkg/router"
	"github.com/matzehuels/jenny/pkg/webmodule"
	"github.com/matzehuels/jenny/pkg/xpoints"
)

// Option configures a [Web].
type Option func(*Web)

// WithLogger sets the logger. The default is [log.Default].
func WithLogger(l *log.Logger) Option {
	return func(w *Web) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTemplates replaces the built-in page templates.
func WithTemplates(t *Templates) Option {
	return func(w *Web) { w.templates = t }
}

// WithRunner sets the pipeline runner used for renders.
func WithRunner(r *pipeline.Runner) Option {
	return func(w *Web) { w.runner = r }
}

// WithGlobalModules names registered modules every page requires.
func WithGlobalModules(names ...string) Option {
	return func(w *Web) { w.globals = slices.Clone(names) }
}

// WithContextPath sets the path the application is served under.
func WithContextPath(p string) Option {
	return func(w *Web) { w.contextPath = p }
}

// WithServer makes the plugin serve [Web.Handler] while the host runs.
func WithServer(cfg ServerConfig) Option {
	return func(w *Web) { w.server = &cfg }
}

// Web is the web plugin.
type Web struct {
	logger      *log.Logger
	router      *router.Router
	registry    *registry.Registry
	runner      *pipeline.Runner
	templates   *Templates
	points      *xpoints.Points
	builtin     *xpoints.Group
	contextPath string
	server      *ServerConfig

	mu      sync.RWMutex
	globals []string
	routes  []route
}

type route struct {
	pattern string
	handler http.Handler
}

// New creates a Web with an empty registry.
func New(opts ...Option) *Web {
	w := &Web{logger: log.Default()}
	for _, opt := range opts {
		opt(w)
	}
	if w.templates == nil {
		w.templates = DefaultTemplates()
	}
	if w.runner == nil {
		w.runner = pipeline.NewRunner(nil, nil, w.logger)
	}
	w.router = router.New(
		router.WithLogger(w.logger),
		router.WithFallback(http.HandlerFunc(w.serveNotFound)),
		router.WithErrorHandler(w.routeError),
	)
	w.registry = registry.New(w.router, w.logger)
	w.points = xpoints.New(w.logger)
	w.builtin = xpoints.Add[GlobalTemplateDecorator](w.points.Group(), NpmDecorator{})
	return w
}

func (w *Web) String() string { return "web" }

// Registry returns the module registry.
func (w *Web) Registry() *registry.Registry { return w.registry }

// Router returns the router modules are mounted into.
func (w *Web) Router() *router.Router { return w.router }

// Extensions returns the extension points, where plugins contribute
// [GlobalTemplateDecorator] values.
func (w *Web) Extensions() *xpoints.Points { return w.points }

// RegisterModules registers mods and everything they require. Closing the
// handle unregisters them again.
func (w *Web) RegisterModules(mods ...*webmodule.Module) (*registry.Handle, error) {
	return w.registry.Register(mods...)
}

// Require adds modules to the page being rendered for ctx.
func (w *Web) Require(ctx context.Context, mods ...*webmodule.Module) error {
	return Require(ctx, mods...)
}

// Handle adds a route to [Web.Handler], served inside a render scope. Routes
// added after Handler was called only appear in later handlers.
func (w *Web) Handle(pattern string, h http.Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.routes = append(w.routes, route{pattern, h})
}

// SetGlobalModules replaces the global module names. Renders already in
// progress keep the previous list.
func (w *Web) SetGlobalModules(names []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.globals = slices.Clone(names)
	w.logger.Info("global modules updated", "modules", names)
}

// GlobalModules returns the global module names.
func (w *Web) GlobalModules() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.globals)
}

func (w *Web) globalModules(snap *registry.Snapshot) []*webmodule.Module {
	var out []*webmodule.Module
	for _, name := range w.GlobalModules() {
		m, ok := snap.Lookup(name)
		if !ok {
			w.logger.Warn("global module is not registered", "name", name)
			continue
		}
		out = append(out, m)
	}
	return out
}

// RenderPage renders the page template name for ctx. The page gets the
// assets of the global modules and of everything required in ctx.
//
// Required modules that mount into the router but are not registered in
// this render's snapshot, or that require such a module, are left out with
// a warning: their URIs would not be served. Content and URL modules need
// no registration and are always rendered.
func (w *Web) RenderPage(ctx context.Context, name string, data any) (string, error) {
	snap := w.registry.Snapshot()
	scope := Scope{Page: name, Tx: TxFrom(ctx), Modules: snap}
	opts := pipeline.Options{
		Page:     name,
		Globals:  w.globalModules(snap),
		Required: w.servable(snap, Required(ctx)),
		Seq:      snap,
		Logger:   w.logger,
	}

	var out string
	err := w.runner.Render(ctx, opts, func(res *pipeline.Result) error {
		page := &Page{
			Name:     name,
			Head:     res.Assets.Head,
			BodyHead: res.Assets.BodyHead,
			BodyTail: res.Assets.BodyTail,
			Modules:  webmodule.Names(res.Modules),
			Vars:     w.vars(ctx, scope),
			Data:     data,
		}
		var buf bytes.Buffer
		if err := w.templates.Render(&buf, name, page); err != nil {
			return err
		}
		out = buf.String()
		return nil
	})
	return out, err
}

// servable filters out modules whose assets would point at unmounted URIs.
func (w *Web) servable(snap *registry.Snapshot, mods []*webmodule.Module) []*webmodule.Module {
	memo := make(map[*webmodule.Module]bool)
	var ok func(m *webmodule.Module) bool
	ok = func(m *webmodule.Module) bool {
		if v, seen := memo[m]; seen {
			return v
		}
		memo[m] = true // cycles are reported by the resolver
		if m.Mountable() {
			if reg, found := snap.Lookup(m.Name()); !found || !reg.SameDefinition(m) {
				memo[m] = false
				return false
			}
		}
		for _, dep := range m.Requires() {
			if !ok(dep) {
				memo[m] = false
				return false
			}
		}
		return true
	}

	out := make([]*webmodule.Module, 0, len(mods))
	for _, m := range mods {
		if !ok(m) {
			w.logger.Warn("required module is not registered, skipping", "name", m.Name())
			continue
		}
		out = append(out, m)
	}
	return out
}

func (w *Web) vars(ctx context.Context, s Scope) Vars {
	vars := s.Tx.vars()
	if id := middleware.GetReqID(ctx); id != "" {
		vars["request.id"] = id
	}
	for _, d := range xpoints.List[GlobalTemplateDecorator](w.points) {
		d.Decorate(s, vars)
	}
	return vars
}

// Open implements plugin.Plugin.
func (w *Web) Open(ctx *plugin.Context) error {
	ctx.AutoClose(w.builtin)
	return nil
}

// AfterOpen starts the HTTP server once every plugin has registered its
// modules.
func (w *Web) AfterOpen(ctx *plugin.Context) error {
	if w.server == nil {
		return nil
	}
	srv := NewServer(&http.Server{
		Addr:        w.server.Address,
		Handler:     w.Handler(),
		ReadTimeout: w.server.ReadTimeout,
	}, w.server.ShutdownTimeout)
	ctx.Supervise(srv)
	ctx.Logger().Info("serving", "address", w.server.Address)
	return nil
}

// Close releases the pipeline runner.
func (w *Web) Close() error {
	return w.runner.Close()
}
