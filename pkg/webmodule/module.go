package webmodule

import (
	"fmt"
	"io/fs"
	"slices"

	"github.com/matzehuels/jenny/pkg/router"
)

// Module is a named bundle of resources plus the modules it requires.
// Modules are immutable once built; two modules are the same module when
// their names are equal.
type Module struct {
	name      string
	uri       string
	pattern   string
	mount     Mount
	resources []*Resource
	requires  []*Module
	fsys      fs.FS
	prefix    string
	handler   router.Handler
	meta      map[string]string
}

// Name returns the module's identity key.
func (m *Module) Name() string { return m.name }

// URI returns the normalized mount URI ("" for content mounts).
func (m *Module) URI() string { return m.uri }

// Pattern returns the route pattern the module is mounted at ("" for
// content mounts).
func (m *Module) Pattern() string { return m.pattern }

// Mount returns how the module is exposed.
func (m *Module) Mount() Mount { return m.mount }

// Resources returns the module's resources in declaration order.
func (m *Module) Resources() []*Resource { return slices.Clone(m.resources) }

// Requires returns the direct dependencies in declaration order.
func (m *Module) Requires() []*Module { return slices.Clone(m.requires) }

// Handler returns the module's HTTP handler. URL modules have none.
func (m *Module) Handler() (router.Handler, bool) { return m.handler, m.handler != nil }

// Meta returns a metadata value set with [Builder.WithMeta].
func (m *Module) Meta(key string) (string, bool) {
	v, ok := m.meta[key]
	return v, ok
}

// Mountable reports whether the module is mounted into the router: File
// and Directory modules are; Content and URL modules are not.
func (m *Module) Mountable() bool {
	return m.mount == MountFile || m.mount == MountDirectory
}

// Equal reports whether two modules have the same name.
func (m *Module) Equal(o *Module) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.name == o.name
}

// SameDefinition reports whether two modules with equal names also mount
// at the same place.
func (m *Module) SameDefinition(o *Module) bool {
	return m == o || (m.name == o.name && m.pattern == o.pattern && m.mount == o.mount)
}

func (m *Module) String() string {
	return fmt.Sprintf("%s (%s %s)", m.name, m.mount, m.uri)
}

func (m *Module) resourceURI(r *Resource) string {
	switch m.mount {
	case MountFile:
		return m.uri
	case MountDirectory, MountURL:
		if r.path == "" {
			return ""
		}
		return m.uri + r.path
	default:
		return ""
	}
}

// Names returns the names of modules in order.
func Names(mods []*Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.name
	}
	return out
}
