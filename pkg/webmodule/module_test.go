package webmodule

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/router"
)

var assets = fstest.MapFS{
	"jquery.js":                {Data: []byte("window.jQuery = {};")},
	"theme.css":                {Data: []byte("body{}")},
	"dist/js/bootstrap.js":     {Data: []byte("bootstrap")},
	"dist/css/bootstrap.css":   {Data: []byte(".btn{}")},
	"dist/fonts/icons.woff2":   {Data: []byte("woff")},
	"dist/js/bootstrap.js.map": {Data: []byte("{}")},
}

func TestMountInference(t *testing.T) {
	tests := []struct {
		name  string
		b     *Builder
		mount Mount
		uri   string
	}{
		{
			name:  "no uri is content",
			b:     NewBuilder().WithName("inline").WithResources(Inline(KindJS, "1")),
			mount: MountContent,
			uri:   "",
		},
		{
			name:  "trailing slash is directory",
			b:     NewBuilder().WithURI("npm/bootstrap/").WithResources(Ref(assets, "dist/js/bootstrap.js")),
			mount: MountDirectory,
			uri:   "/npm/bootstrap/",
		},
		{
			name:  "plain uri is file",
			b:     NewBuilder().WithURI("/jquery.js").WithResources(Ref(assets, "jquery.js")),
			mount: MountFile,
			uri:   "/jquery.js",
		},
		{
			name:  "explicit directory gains slash",
			b:     NewBuilder().WithURI("/static").AsDirectory().WithResources(Ref(assets, "theme.css")),
			mount: MountDirectory,
			uri:   "/static/",
		},
		{
			name:  "schemeless url",
			b:     NewBuilder().WithName("bs").WithURL("cdn.jsdelivr.net/npm/bootstrap@5.3.3").WithResources(Ref(nil, "dist/js/bootstrap.js")),
			mount: MountURL,
			uri:   "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.b.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.mount, m.Mount())
			assert.Equal(t, tt.uri, m.URI())
		})
	}
}

func TestPatternAndName(t *testing.T) {
	m := Must(NewBuilder().WithURI("/npm/bootstrap/5.3.3/").WithResources(Ref(assets, "dist/js/bootstrap.js")).Build())
	assert.Equal(t, `/npm/bootstrap/5\.3\.3/(.*)`, m.Pattern())
	assert.Equal(t, m.Pattern(), m.Name())

	f := Must(JS("/js/jquery.min.js", assets, "jquery.js"))
	assert.Equal(t, `/js/jquery\.min\.js`, f.Pattern())

	c := Must(Content("boot", KindJS, "init()"))
	assert.Empty(t, c.Pattern())
	assert.Empty(t, c.URI())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
	}{
		{"file needs one resource", NewBuilder().WithURI("/a.js").WithResources(Ref(assets, "jquery.js"), Ref(assets, "theme.css"))},
		{"file without resources", NewBuilder().WithURI("/a.js")},
		{"name not derivable", NewBuilder().WithResources(Inline(KindJS, "x"))},
		{"content mount needs inline", NewBuilder().WithName("c").WithResources(Ref(assets, "jquery.js"))},
		{"resource without source", NewBuilder().WithURI("/a.js").WithResources(&Resource{})},
		{"inline without kind", NewBuilder().WithName("c").WithResources(Inline(KindAuto, "x"))},
		{"traversal", NewBuilder().WithURI("/d/").WithResources(Ref(assets, "../secret.js"))},
		{"directory resource with nothing to serve", NewBuilder().WithURI("/d/").WithResources(Ref(nil, "a.js"))},
		{"inline imported in content mount", NewBuilder().WithName("lit").WithResources(Inline(KindImported, "export const x = 1;"))},
		{"inline imported in directory mount", NewBuilder().WithURI("/lit/").WithResources(Inline(KindImported, "export const x = 1;"))},
		{"url handler", NewBuilder().WithName("u").WithURL("https://cdn/").WithResources(Handled("a.js", KindJS, router.HandlerFunc(func(http.ResponseWriter, *http.Request) error { return nil })))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			require.Error(t, err)
			code := jerrors.GetCode(err)
			assert.Contains(t, []jerrors.Code{jerrors.ErrCodeConfiguration, jerrors.ErrCodeInvalidPath}, code)
		})
	}
}

func TestRequiresDedupe(t *testing.T) {
	jq := Must(JS("/jquery.js", assets, "jquery.js"))
	other := Must(NewBuilder().WithName(jq.Name()).WithURI("/other.js").WithResources(Ref(assets, "jquery.js")).Build())
	theme := Must(CSS("/theme.css", assets, "theme.css"))

	m := Must(NewBuilder().WithName("app").WithResources(Inline(KindJS, "app()")).
		WithRequires(jq, theme, other, nil).
		Build())

	require.Len(t, m.Requires(), 2)
	assert.Same(t, jq, m.Requires()[0])
	assert.True(t, m.Requires()[0].Equal(other))
	assert.Equal(t, []string{jq.Name(), theme.Name()}, Names(m.Requires()))
}

func TestResourceURIs(t *testing.T) {
	file := Must(JS("/js/jquery.js", assets, "jquery.js"))
	assert.Equal(t, "/js/jquery.js", file.Resources()[0].URI())
	assert.Same(t, file, file.Resources()[0].Module())

	dir := Must(NewBuilder().WithName("bs").WithURI("/npm/bs/").
		WithResources(Ref(assets, "dist/js/bootstrap.js"), Ref(assets, "dist/css/bootstrap.css")).
		Build())
	assert.Equal(t, "/npm/bs/dist/js/bootstrap.js", dir.Resources()[0].URI())
	assert.Equal(t, KindCSS, dir.Resources()[1].Kind())
	assert.Equal(t, Head, dir.Resources()[1].Placement())
	assert.Equal(t, BodyTail, dir.Resources()[0].Placement())

	url := Must(NewBuilder().WithName("cdn").WithURL("https://cdn.example.com/lib@1").
		WithResources(Ref(nil, "lib.js")).Build())
	assert.Equal(t, "https://cdn.example.com/lib@1/lib.js", url.Resources()[0].URI())
	_, ok := url.Handler()
	assert.False(t, ok)

	inline := Must(Content("boot", KindModule, "import 'x';"))
	assert.Empty(t, inline.Resources()[0].URI())
	assert.True(t, inline.Resources()[0].Inline())
}

func TestBuildCopiesResources(t *testing.T) {
	res := Ref(assets, "jquery.js")
	a := Must(NewBuilder().WithURI("/a.js").WithResources(res).Build())
	b := Must(NewBuilder().WithURI("/b.js").WithResources(res).Build())

	assert.Nil(t, res.Module())
	assert.Equal(t, "/a.js", a.Resources()[0].URI())
	assert.Equal(t, "/b.js", b.Resources()[0].URI())
}

func get(t *testing.T, m *Module, path string, groups ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	h, ok := m.Handler()
	require.True(t, ok)
	w := httptest.NewRecorder()
	r := router.WithGroups(httptest.NewRequest(http.MethodGet, path, nil), groups...)
	return w, h.Serve(w, r)
}

func TestFileHandler(t *testing.T) {
	m := Must(JS("/js/jquery.js", assets, "jquery.js"))
	w, err := get(t, m, "/js/jquery.js")
	require.NoError(t, err)
	assert.Equal(t, "window.jQuery = {};", w.Body.String())
	assert.Equal(t, "text/javascript; charset=utf-8", w.Header().Get("Content-Type"))

	h := Must(OfHandler("/gen/config.js", KindJS, router.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		_, err := io.WriteString(w, "var cfg = 1;")
		return err
	})))
	w, err = get(t, h, "/gen/config.js")
	require.NoError(t, err)
	assert.Equal(t, "var cfg = 1;", w.Body.String())
}

func TestDirectoryHandler(t *testing.T) {
	listed := Must(NewBuilder().WithName("bs").WithURI("/npm/bs/").
		WithResources(Ref(assets, "dist/js/bootstrap.js")).Build())

	w, err := get(t, listed, "/npm/bs/dist/js/bootstrap.js", "dist/js/bootstrap.js")
	require.NoError(t, err)
	assert.Equal(t, "bootstrap", w.Body.String())

	_, err = get(t, listed, "/npm/bs/dist/css/bootstrap.css", "dist/css/bootstrap.css")
	assert.True(t, jerrors.Is(err, jerrors.ErrCodeNotFound))
	assert.Equal(t, http.StatusNotFound, router.StatusFor(err))

	rooted := Must(NewBuilder().WithName("bs-fs").WithURI("/npm/bs/").
		AsDirectoryFS(assets, "dist/").
		WithResources(Ref(nil, "js/bootstrap.js")).Build())

	w, err = get(t, rooted, "/npm/bs/fonts/icons.woff2", "fonts/icons.woff2")
	require.NoError(t, err)
	assert.Equal(t, "woff", w.Body.String())

	w, err = get(t, rooted, "/npm/bs/js/bootstrap.js", "js/bootstrap.js")
	require.NoError(t, err)
	assert.Equal(t, "bootstrap", w.Body.String())

	_, err = get(t, rooted, "/npm/bs/missing.js", "missing.js")
	assert.Equal(t, http.StatusNotFound, router.StatusFor(err))

	_, err = get(t, rooted, "/npm/bs/js", "js")
	assert.Equal(t, http.StatusNotFound, router.StatusFor(err))
}

func TestContentHandlerIsNoop(t *testing.T) {
	m := Must(Content("boot", KindJS, "boot()"))
	w, err := get(t, m, "/")
	require.NoError(t, err)
	assert.Empty(t, w.Body.String())
	assert.False(t, m.Mountable())
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { Must(NewBuilder().Build()) })
}
