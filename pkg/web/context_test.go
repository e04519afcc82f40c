package web

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/jenny/pkg/webmodule"
)

func TestRequireOutsideScope(t *testing.T) {
	m := fileModule(t, "jquery", "/jquery.js", "jquery.js", webmodule.KindJS)
	assert.ErrorIs(t, Require(context.Background(), m), ErrNoRenderContext)
	assert.Empty(t, Required(context.Background()))
	assert.Equal(t, Tx{}, TxFrom(context.Background()))
}

func TestRequireAfterScopeEnds(t *testing.T) {
	m := fileModule(t, "jquery", "/jquery.js", "jquery.js", webmodule.KindJS)
	ctx, done := WithRenderContext(context.Background(), Tx{Path: "/"})
	require.NoError(t, Require(ctx, m))
	done()
	assert.ErrorIs(t, Require(ctx, m), ErrNoRenderContext)
	assert.Empty(t, Required(ctx))
}

func TestRequireDeduplicatesByName(t *testing.T) {
	first := fileModule(t, "jquery", "/jquery.js", "jquery.js", webmodule.KindJS)
	second := fileModule(t, "jquery", "/other/jquery.js", "jquery.js", webmodule.KindJS)
	theme := fileModule(t, "theme", "/theme.css", "theme.css", webmodule.KindCSS)

	ctx, done := WithRenderContext(context.Background(), Tx{})
	defer done()
	require.NoError(t, Require(ctx, first, theme, nil))
	require.NoError(t, Require(ctx, second))

	got := Required(ctx)
	require.Len(t, got, 2)
	assert.Same(t, first, got[0])
	assert.Same(t, theme, got[1])
}

func TestConcurrentRequire(t *testing.T) {
	ctx, done := WithRenderContext(context.Background(), Tx{})
	defer done()
	m := fileModule(t, "jquery", "/jquery.js", "jquery.js", webmodule.KindJS)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, Require(ctx, m))
		}()
	}
	wg.Wait()
	assert.Len(t, Required(ctx), 1)
}

func TestRenderContextMiddleware(t *testing.T) {
	var captured context.Context
	h := RenderContext("/app")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = r.Context()
		assert.Equal(t, Tx{
			Path:            "/page",
			ContextPath:     "/app",
			FullContextPath: "https://example.com/app",
			FullPath:        "/app/page",
		}, TxFrom(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	m := fileModule(t, "jquery", "/jquery.js", "jquery.js", webmodule.KindJS)
	assert.ErrorIs(t, Require(captured, m), ErrNoRenderContext, "scope ends with the request")
}

func TestRenderContextEndsOnPanic(t *testing.T) {
	var captured context.Context
	h := RenderContext("")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = r.Context()
		panic("boom")
	}))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	m := fileModule(t, "jquery", "/jquery.js", "jquery.js", webmodule.KindJS)
	assert.ErrorIs(t, Require(captured, m), ErrNoRenderContext)
}

func TestForwardedProto(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	tx := newTx(req, "")
	assert.Equal(t, "https://example.com", tx.FullContextPath)
	assert.Equal(t, "/x", tx.vars()["tx.fullPath"])
}
