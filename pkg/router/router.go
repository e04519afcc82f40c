// Package router is the dynamic route table web modules are mounted into.
//
// Routes are regular expressions matched against the whole request path in
// mount order. Handlers return errors instead of writing error pages: a
// not-found error becomes a 404 and anything else a 500, both rendered by
// the router's [ErrorHandler]. Requests matching no route go to the
// fallback handler.
package router

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/httputil"
	"github.com/matzehuels/jenny/pkg/observability"
)

// Handler serves one matched request. Returning an error hands the
// response over to the router.
type Handler interface {
	Serve(w http.ResponseWriter, r *http.Request) error
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Serve calls f(w, r).
func (f HandlerFunc) Serve(w http.ResponseWriter, r *http.Request) error { return f(w, r) }

// ErrorHandler writes the response for a failed handler.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err error)

// ErrDuplicateRoute is returned by [Router.Mount] for a pattern that is
// already mounted.
var ErrDuplicateRoute = errors.New("route already mounted")

type route struct {
	pattern string
	re      *regexp.Regexp
	handler Handler
}

// Router is a regex route table safe for concurrent mounts and requests.
type Router struct {
	mu       sync.RWMutex
	routes   []*route
	fallback http.Handler
	onError  ErrorHandler
	logger   *log.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithFallback sets the handler for unmatched requests. The default is
// http.NotFound.
func WithFallback(h http.Handler) Option {
	return func(r *Router) { r.fallback = h }
}

// WithErrorHandler sets how handler errors are written.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Router) { r.onError = h }
}

// WithLogger sets the logger; nil means log.Default().
func WithLogger(l *log.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{
		fallback: http.NotFoundHandler(),
		onError:  defaultErrorHandler,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, http.StatusText(status), status)
}

// Mount adds a route. The pattern must match the whole path.
func (rt *Router) Mount(pattern string, h Handler) error {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "invalid route pattern %q", pattern)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if slices.ContainsFunc(rt.routes, func(r *route) bool { return r.pattern == pattern }) {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, pattern)
	}
	rt.routes = append(rt.routes, &route{pattern: pattern, re: re, handler: h})
	return nil
}

// Unmount removes the route with the given pattern, if any.
func (rt *Router) Unmount(pattern string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.routes = slices.DeleteFunc(rt.routes, func(r *route) bool { return r.pattern == pattern })
}

// Patterns returns the mounted patterns in match order.
func (rt *Router) Patterns() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]string, len(rt.routes))
	for i, r := range rt.routes {
		out[i] = r.pattern
	}
	return out
}

// Match returns the handler and captured groups for path.
func (rt *Router) Match(path string) (Handler, string, []string, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for _, r := range rt.routes {
		if m := r.re.FindStringSubmatch(path); m != nil {
			return r.handler, r.pattern, m[1:], true
		}
	}
	return nil, "", nil, false
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h, pattern, groups, ok := rt.Match(req.URL.Path)
	if !ok {
		rt.fallback.ServeHTTP(w, req)
		return
	}

	ctx := req.Context()
	start := time.Now()
	rec := httputil.NewStatusRecorder(w)
	req = req.WithContext(context.WithValue(ctx, groupsKey{}, groups))

	if err := h.Serve(rec, req); err != nil {
		status := StatusFor(err)
		if status == http.StatusNotFound {
			rt.logger.Debug("module resource not found", "path", req.URL.Path, "route", pattern, "err", err)
		} else {
			rt.logger.Error("module handler failed", "path", req.URL.Path, "route", pattern, "err", err)
		}
		if rec.Written() {
			rt.logger.Warn("response already started, no error page", "path", req.URL.Path, "route", pattern)
		} else {
			rec.Status = status
			rt.onError(w, req, status, err)
		}
	}
	observability.HTTP().OnServe(ctx, pattern, rec.Status, time.Since(start))
}

// StatusFor maps a handler error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case jerrors.Is(err, jerrors.ErrCodeNotFound),
		jerrors.Is(err, jerrors.ErrCodeFileNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type groupsKey struct{}

// Groups returns the groups captured by the matched route pattern.
func Groups(r *http.Request) []string {
	g, _ := r.Context().Value(groupsKey{}).([]string)
	return g
}

// Group returns captured group i (0-based), or "" if absent.
func Group(r *http.Request, i int) string {
	g := Groups(r)
	if i < 0 || i >= len(g) {
		return ""
	}
	return g[i]
}

// WithGroups returns a request carrying groups, for handlers invoked
// outside the router such as in tests.
func WithGroups(r *http.Request, groups ...string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), groupsKey{}, groups))
}
