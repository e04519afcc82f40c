package webmodule

import (
	"io/fs"
	"maps"
	"regexp"
	"strings"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/router"
)

// Builder assembles a [Module]. The zero value is ready to use.
type Builder struct {
	name      string
	uri       string
	mount     Mount
	resources []*Resource
	requires  []*Module
	fsys      fs.FS
	prefix    string
	meta      map[string]string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// WithName sets the module name. Without one the name is the route pattern.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithURI sets the mount URI. A trailing slash selects a directory mount.
func (b *Builder) WithURI(uri string) *Builder {
	b.uri = uri
	return b
}

// WithURL sets an external base URL and selects a URL mount.
func (b *Builder) WithURL(url string) *Builder {
	b.mount = MountURL
	b.uri = url
	return b
}

// WithResources replaces the resources.
func (b *Builder) WithResources(rs ...*Resource) *Builder {
	b.resources = append(b.resources[:0:0], rs...)
	return b
}

// AddResources appends resources.
func (b *Builder) AddResources(rs ...*Resource) *Builder {
	b.resources = append(b.resources, rs...)
	return b
}

// WithRequires adds dependencies. A module whose name is already required
// is ignored.
func (b *Builder) WithRequires(mods ...*Module) *Builder {
	for _, m := range mods {
		if m == nil {
			continue
		}
		dup := false
		for _, have := range b.requires {
			if have.name == m.name {
				dup = true
				break
			}
		}
		if !dup {
			b.requires = append(b.requires, m)
		}
	}
	return b
}

// WithMeta attaches a metadata value. Metadata does not affect identity.
func (b *Builder) WithMeta(key, value string) *Builder {
	if b.meta == nil {
		b.meta = make(map[string]string)
	}
	b.meta[key] = value
	return b
}

// AsFile selects a single-file mount.
func (b *Builder) AsFile() *Builder { return b.As(MountFile) }

// AsDirectory selects a directory mount serving the module's resources by
// path.
func (b *Builder) AsDirectory() *Builder { return b.As(MountDirectory) }

// AsDirectoryFS selects a directory mount serving any file of fsys under
// prefix, whether or not it is listed as a resource.
func (b *Builder) AsDirectoryFS(fsys fs.FS, prefix string) *Builder {
	b.fsys = fsys
	b.prefix = strings.Trim(prefix, "/")
	return b.As(MountDirectory)
}

// AsURL selects a URL mount.
func (b *Builder) AsURL() *Builder { return b.As(MountURL) }

// As selects a mount explicitly.
func (b *Builder) As(m Mount) *Builder {
	b.mount = m
	return b
}

// Build validates the configuration and returns the module.
func (b *Builder) Build() (*Module, error) {
	mount := b.mount
	if mount == MountAuto {
		switch {
		case b.uri == "":
			mount = MountContent
		case strings.HasSuffix(b.uri, "/"):
			mount = MountDirectory
		default:
			mount = MountFile
		}
	}

	if mount == MountFile && len(b.resources) != 1 {
		return nil, jerrors.Configuration("mount %s must have exactly one resource, there are %d", mount, len(b.resources))
	}
	if mount != MountContent && b.uri == "" {
		return nil, jerrors.Configuration("mount %s requires a URI", mount)
	}

	uri := normalizeURI(b.uri, mount)
	pattern := ""
	if uri != "" && mount != MountContent {
		pattern = regexp.QuoteMeta(uri)
		if mount == MountDirectory {
			pattern += "(.*)"
		}
	}

	name := b.name
	if name == "" {
		name = pattern
	}
	if name == "" {
		return nil, jerrors.Configuration("module name not derivable: set a name or a URI")
	}
	if err := jerrors.ValidateModuleName(name); err != nil {
		return nil, err
	}

	m := &Module{
		name:     name,
		uri:      uri,
		pattern:  pattern,
		mount:    mount,
		requires: append([]*Module(nil), b.requires...),
		fsys:     b.fsys,
		prefix:   b.prefix,
		meta:     maps.Clone(b.meta),
	}
	if mount == MountContent {
		m.uri = ""
	}

	m.resources = make([]*Resource, 0, len(b.resources))
	for _, r := range b.resources {
		if r == nil {
			return nil, jerrors.Configuration("module %s: nil resource", name)
		}
		if err := r.validate(); err != nil {
			return nil, jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "module %s", name)
		}
		if err := checkSource(mount, m.fsys != nil, r); err != nil {
			return nil, jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "module %s", name)
		}
		rc := *r
		rc.module = m
		if rc.Kind() == KindImported && rc.URI() == "" {
			return nil, jerrors.Configuration("module %s: imported resource %q has no URI to map", name, r.path)
		}
		m.resources = append(m.resources, &rc)
	}

	m.handler = m.buildHandler()
	return m, nil
}

// checkSource rejects resources that could neither be referenced nor
// rendered inline under the given mount.
func checkSource(mount Mount, dirFS bool, r *Resource) error {
	servable := r.content != nil || r.handler != nil || r.fsys != nil
	switch mount {
	case MountContent:
		if r.content == nil {
			return jerrors.Configuration("resource %q of a content mount must have inline content", r.path)
		}
	case MountFile:
		if !servable {
			return jerrors.Configuration("resource %q has nothing to serve", r.path)
		}
	case MountDirectory:
		if r.content == nil && r.path == "" {
			return jerrors.Configuration("directory resource needs a path or inline content")
		}
		if !servable && !dirFS {
			return jerrors.Configuration("resource %q has nothing to serve", r.path)
		}
	case MountURL:
		if r.content == nil && r.path == "" {
			return jerrors.Configuration("URL resource needs a path or inline content")
		}
		if r.handler != nil {
			return jerrors.Configuration("resource %q: URL mounts cannot serve handlers", r.path)
		}
	}
	return nil
}

func normalizeURI(uri string, mount Mount) string {
	if uri == "" {
		return ""
	}
	if mount == MountURL {
		if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
			uri = "https://" + strings.TrimPrefix(uri, "//")
		}
	} else if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	if (mount == MountDirectory || mount == MountURL) && !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri
}

// Must panics if err is non-nil. It is meant for package-level module
// definitions.
func Must(m *Module, err error) *Module {
	if err != nil {
		panic(err)
	}
	return m
}

// Of builds a single-file module serving path from fsys at uri, with the
// kind inferred from the extension.
func Of(uri string, fsys fs.FS, path string, requires ...*Module) (*Module, error) {
	return NewBuilder().WithURI(uri).AsFile().
		WithResources(Ref(fsys, path)).
		WithRequires(requires...).
		Build()
}

// JS builds a single-file classic script module.
func JS(uri string, fsys fs.FS, path string, requires ...*Module) (*Module, error) {
	return ofKind(uri, fsys, path, KindJS, requires)
}

// CSS builds a single-file stylesheet module.
func CSS(uri string, fsys fs.FS, path string, requires ...*Module) (*Module, error) {
	return ofKind(uri, fsys, path, KindCSS, requires)
}

// JSModule builds a single-file ES module.
func JSModule(uri string, fsys fs.FS, path string, requires ...*Module) (*Module, error) {
	return ofKind(uri, fsys, path, KindModule, requires)
}

// OfHandler builds a single-file module whose content is produced by h.
func OfHandler(uri string, kind Kind, h router.Handler, requires ...*Module) (*Module, error) {
	return NewBuilder().WithURI(uri).AsFile().
		WithResources(Handled(strings.TrimPrefix(uri, "/"), kind, h)).
		WithRequires(requires...).
		Build()
}

// Content builds a content-mounted module holding one inline resource.
func Content(name string, kind Kind, content string, requires ...*Module) (*Module, error) {
	return NewBuilder().WithName(name).As(MountContent).
		WithResources(Inline(kind, content)).
		WithRequires(requires...).
		Build()
}

func ofKind(uri string, fsys fs.FS, path string, kind Kind, requires []*Module) (*Module, error) {
	return NewBuilder().WithURI(uri).AsFile().
		WithResources(Ref(fsys, path, WithKind(kind))).
		WithRequires(requires...).
		Build()
}
