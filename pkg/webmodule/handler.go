package webmodule

import (
	"net/http"
	"path"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/httputil"
	"github.com/matzehuels/jenny/pkg/router"
)

var extForKind = map[Kind]string{
	KindCSS:       ".css",
	KindJS:        ".js",
	KindModule:    ".js",
	KindImported:  ".js",
	KindImportMap: ".json",
}

func (m *Module) buildHandler() router.Handler {
	switch m.mount {
	case MountFile:
		res := m.resources[0]
		return router.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
			return m.serveResource(w, r, res)
		})
	case MountDirectory:
		return router.HandlerFunc(m.serveDirectory)
	case MountContent:
		return router.HandlerFunc(func(http.ResponseWriter, *http.Request) error { return nil })
	default:
		return nil
	}
}

func (m *Module) serveDirectory(w http.ResponseWriter, r *http.Request) error {
	sub := router.Group(r, 0)
	for _, res := range m.resources {
		if res.path != "" && res.path == sub {
			return m.serveResource(w, r, res)
		}
	}
	if m.fsys != nil {
		return httputil.ServeFile(w, r, m.fsys, path.Join(m.prefix, sub))
	}
	return jerrors.New(jerrors.ErrCodeNotFound, "module %s has no resource %q", m.name, sub)
}

func (m *Module) serveResource(w http.ResponseWriter, r *http.Request, res *Resource) error {
	switch {
	case res.handler != nil:
		return res.handler.Serve(w, r)
	case res.fsys != nil:
		return httputil.ServeFile(w, r, res.fsys, res.path)
	case res.content != nil:
		name := res.path
		if name == "" {
			name = "inline" + extForKind[res.Kind()]
		}
		httputil.ServeContent(w, r, name, *res.content)
		return nil
	case m.fsys != nil:
		return httputil.ServeFile(w, r, m.fsys, path.Join(m.prefix, res.path))
	default:
		return jerrors.New(jerrors.ErrCodeFileNotFound, "resource %s has no content", res)
	}
}
