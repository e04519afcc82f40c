package web

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/matzehuels/jenny/pkg/webmodule"
)

// ErrNoRenderContext is returned by [Require] outside a render scope.
var ErrNoRenderContext = errors.New("web: no render context")

// Tx describes the request being rendered. Templates see it as the tx.*
// variables.
type Tx struct {
	Path            string
	ContextPath     string
	FullContextPath string
	FullPath        string
}

// renderContext collects the modules one request requires.
type renderContext struct {
	mu     sync.Mutex
	tx     Tx
	mods   []*webmodule.Module
	names  map[string]bool
	closed bool
}

type renderContextKey struct{}

// WithRenderContext opens a render scope on ctx. The returned function ends
// the scope; later calls to [Require] with the scope's context fail.
func WithRenderContext(ctx context.Context, tx Tx) (context.Context, func()) {
	rc := &renderContext{tx: tx, names: map[string]bool{}}
	return context.WithValue(ctx, renderContextKey{}, rc), rc.close
}

func (rc *renderContext) close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.mods, rc.names, rc.closed = nil, nil, true
}

func fromContext(ctx context.Context) (*renderContext, bool) {
	rc, ok := ctx.Value(renderContextKey{}).(*renderContext)
	return rc, ok
}

// Require adds modules to the render scope of ctx. A module whose name is
// already required is ignored, so the first definition wins.
func Require(ctx context.Context, mods ...*webmodule.Module) error {
	rc, ok := fromContext(ctx)
	if !ok {
		return ErrNoRenderContext
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return ErrNoRenderContext
	}
	for _, m := range mods {
		if m == nil || rc.names[m.Name()] {
			continue
		}
		rc.names[m.Name()] = true
		rc.mods = append(rc.mods, m)
	}
	return nil
}

// Required returns the modules required so far, in first-require order.
func Required(ctx context.Context) []*webmodule.Module {
	rc, ok := fromContext(ctx)
	if !ok {
		return nil
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]*webmodule.Module(nil), rc.mods...)
}

// TxFrom returns the request description of the render scope.
func TxFrom(ctx context.Context) Tx {
	rc, ok := fromContext(ctx)
	if !ok {
		return Tx{}
	}
	return rc.tx
}

// RenderContext opens a render scope for every request and ends it when the
// request is done, including when a handler panics. contextPath is the path
// the application is served under, "" for the root.
func RenderContext(contextPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, done := WithRenderContext(r.Context(), newTx(r, contextPath))
			defer done()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTx(r *http.Request, contextPath string) Tx {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	full := scheme + "://" + r.Host + contextPath
	return Tx{
		Path:            r.URL.Path,
		ContextPath:     contextPath,
		FullContextPath: full,
		FullPath:        contextPath + r.URL.Path,
	}
}

// vars returns the tx.* template variables.
func (tx Tx) vars() Vars {
	return Vars{
		"tx.path":            tx.Path,
		"tx.contextPath":     tx.ContextPath,
		"tx.fullContextPath": tx.FullContextPath,
		"tx.fullPath":        tx.FullPath,
	}
}
