package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/jenny/pkg/cache"
	jerrors "github.com/matzehuels/jenny/pkg/errors"
	npmreg "github.com/matzehuels/jenny/pkg/integrations/npm"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

var siteFS = fstest.MapFS{
	"static/app/app.js":                      {Data: []byte("app()")},
	"static/app/app.css":                     {Data: []byte("body{}")},
	"static/bootstrap/bootstrap.js":          {Data: []byte("bs()")},
	"static/logo.svg":                        {Data: []byte("<svg/>")},
	"node_modules/jquery/package.json":       {Data: []byte(`{"name": "jquery", "version": "3.7.1", "main": "dist/jquery.js"}`)},
	"node_modules/jquery/dist/jquery.js":     {Data: []byte("jq")},
	"node_modules/jquery/dist/jquery.min.js": {Data: []byte("jq")},
}

const siteTOML = `
[[module]]
name = "app"
uri = "/app/"
dir = "static/app"
resources = [{ path = "app.js" }, { path = "app.css" }]
requires = ["bootstrap"]

[[module]]
name = "bootstrap"
uri = "/bootstrap/"
dir = "static/bootstrap"
resources = [{ path = "bootstrap.js", placement = "bodyhead" }]
requires = ["jquery"]

[[module]]
name = "theme"
content = "body { color: red }"
kind = "css"

[[module]]
name = "logo"
uri = "/logo.svg"
file = "static/logo.svg"

[[npm]]
dir = "node_modules/jquery"
`

func TestBuildTOML(t *testing.T) {
	site, err := Parse([]byte(siteTOML), ".toml")
	require.NoError(t, err)

	mods, err := site.Build(context.Background(), Options{Root: siteFS})
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "bootstrap", "theme", "logo", "jquery"}, webmodule.Names(mods))

	app, bootstrap, theme, logo, jquery := mods[0], mods[1], mods[2], mods[3], mods[4]

	assert.Equal(t, webmodule.MountDirectory, app.Mount())
	require.Len(t, app.Requires(), 1)
	assert.Same(t, bootstrap, app.Requires()[0])
	assert.Same(t, jquery, bootstrap.Requires()[0])
	assert.Equal(t, webmodule.BodyHead, bootstrap.Resources()[0].Placement())

	assert.Equal(t, webmodule.MountContent, theme.Mount())
	assert.Equal(t, webmodule.KindCSS, theme.Resources()[0].Kind())

	assert.Equal(t, webmodule.MountFile, logo.Mount())
	assert.Equal(t, "/logo.svg", logo.Resources()[0].URI())

	assert.Equal(t, "/npm/jquery/3.7.1/", jquery.URI())
	assert.Equal(t, "/npm/jquery/3.7.1/dist/jquery.min.js", jquery.Resources()[0].URI())
}

func TestParseYAML(t *testing.T) {
	site, err := Parse([]byte(`
module:
  - name: theme
    content: "body {}"
    kind: css
    placement: head
  - name: widget
    uri: https://cdn.example.com/widget/
    mount: url
    resources:
      - path: widget.js
    requires: [theme]
`), ".yaml")
	require.NoError(t, err)
	require.Len(t, site.Modules, 2)

	mods, err := site.Build(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, webmodule.MountURL, mods[1].Mount())
	assert.Equal(t, "https://cdn.example.com/widget/widget.js", mods[1].Resources()[0].URI())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code jerrors.Code
	}{
		{
			name: "unknown requirement",
			doc:  "[[module]]\nname = \"a\"\ncontent = \"x\"\nkind = \"js\"\nrequires = [\"b\"]\n",
			code: jerrors.ErrCodeInvalidManifest,
		},
		{
			name: "duplicate entry",
			doc:  "[[module]]\nname = \"a\"\ncontent = \"x\"\nkind = \"js\"\n[[module]]\nname = \"a\"\ncontent = \"y\"\nkind = \"js\"\n",
			code: jerrors.ErrCodeInvalidManifest,
		},
		{
			name: "cycle",
			doc:  "[[module]]\nname = \"a\"\ncontent = \"x\"\nkind = \"js\"\nrequires = [\"b\"]\n[[module]]\nname = \"b\"\ncontent = \"y\"\nkind = \"js\"\nrequires = [\"a\"]\n",
			code: jerrors.ErrCodeCycle,
		},
		{
			name: "unknown kind",
			doc:  "[[module]]\nname = \"a\"\ncontent = \"x\"\nkind = \"wasm\"\n",
			code: jerrors.ErrCodeInvalidManifest,
		},
		{
			name: "anonymous module",
			doc:  "[[module]]\ncontent = \"x\"\n",
			code: jerrors.ErrCodeInvalidManifest,
		},
		{
			name: "cdn without client",
			doc:  "[[cdn]]\npackage = \"bootstrap\"\n",
			code: jerrors.ErrCodeConfiguration,
		},
		{
			name: "bad compression",
			doc:  "[[npm]]\ndir = \"node_modules/jquery\"\ncompression = \"gzip\"\n",
			code: jerrors.ErrCodeInvalidManifest,
		},
		{
			name: "content without kind",
			doc:  "[[module]]\nname = \"a\"\ncontent = \"x\"\n",
			code: jerrors.ErrCodeConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site, err := Parse([]byte(tt.doc), ".toml")
			require.NoError(t, err)
			_, err = site.Build(context.Background(), Options{Root: siteFS})
			require.Error(t, err)
			assert.True(t, jerrors.Is(err, tt.code), "got %v, want %s", err, tt.code)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("[[module"), ".toml")
	assert.True(t, jerrors.Is(err, jerrors.ErrCodeInvalidManifest))

	_, err = Parse([]byte("{}"), ".json")
	assert.True(t, jerrors.Is(err, jerrors.ErrCodeUnsupported))

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, jerrors.Is(err, jerrors.ErrCodeFileNotFound))
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static", "site.css"), []byte("h1{}"), 0o644))
	p := filepath.Join(dir, "site.toml")
	require.NoError(t, os.WriteFile(p, []byte("[[module]]\nname = \"site\"\nuri = \"/site.css\"\nfile = \"static/site.css\"\n"), 0o644))

	site, err := Load(p)
	require.NoError(t, err)
	mods, err := site.Build(context.Background(), Options{Root: Root(p)})
	require.NoError(t, err)
	assert.Equal(t, "site", mods[0].Name())
	assert.Equal(t, webmodule.KindCSS, mods[0].Resources()[0].Kind())
}

func TestBuildCDN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registry/bootstrap":
			w.Write([]byte(`{
			  "name": "bootstrap",
			  "dist-tags": {"latest": "5.3.3"},
			  "versions": {"5.3.3": {"main": "dist/js/bootstrap.js"}}
			}`))
		case "/data/bootstrap@5.3.3":
			w.Write([]byte(`{"files": [{"name": "/dist/js/bootstrap.js"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := npmreg.NewClient(cache.NewNullCache(), time.Hour,
		npmreg.WithRegistryURL(server.URL+"/registry"),
		npmreg.WithDataURL(server.URL+"/data"),
		npmreg.WithCDNURL("https://cdn.example.com/npm"),
	)
	client.SetHTTPClient(server.Client())

	site, err := Parse([]byte("[[cdn]]\npackage = \"bootstrap\"\nrequires = [\"jquery\"]\n[[npm]]\ndir = \"node_modules/jquery\"\n"), ".toml")
	require.NoError(t, err)
	mods, err := site.Build(context.Background(), Options{Root: siteFS, Client: client})
	require.NoError(t, err)

	assert.Equal(t, []string{"jquery", "bootstrap"}, webmodule.Names(mods))
	assert.Equal(t, "https://cdn.example.com/npm/bootstrap@5.3.3/", mods[1].URI())
	assert.Equal(t, []string{"jquery"}, webmodule.Names(mods[1].Requires()))
}
