package webmodule

import (
	"io/fs"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/router"
)

// ResourceSpec describes a resource before validation. Exactly one content
// source must be set: a path (optionally inside FS), inline Content, or a
// Handler. A Handler may carry a Path so it can be addressed inside a
// directory mount.
type ResourceSpec struct {
	Kind      Kind
	Placement Placement
	Path      string
	FS        fs.FS
	Content   *string
	Handler   router.Handler
}

// Resource is one asset of a module. Resources are immutable; the copy held
// by a built [Module] knows its owner.
type Resource struct {
	kind      Kind
	placement Placement
	path      string
	fsys      fs.FS
	content   *string
	handler   router.Handler
	module    *Module
}

// NewResource validates spec and returns the resource.
func NewResource(spec ResourceSpec) (*Resource, error) {
	r := &Resource{
		kind:      spec.Kind,
		placement: spec.Placement,
		path:      spec.Path,
		fsys:      spec.FS,
		content:   spec.Content,
		handler:   spec.Handler,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resource) validate() error {
	sources := 0
	if r.content != nil {
		sources++
	}
	if r.handler != nil {
		sources++
	}
	if r.path != "" && r.content == nil && r.handler == nil {
		sources++
	}
	if sources == 0 {
		return jerrors.Configuration("resource must have a path, content or a handler")
	}
	if sources > 1 {
		return jerrors.Configuration("resource %q must have exactly one of content or a handler", r.path)
	}
	if r.fsys != nil && r.path == "" {
		return jerrors.Configuration("resource backed by a filesystem needs a path")
	}
	if r.path != "" {
		if err := jerrors.ValidateResourcePath(r.path); err != nil {
			return err
		}
	}
	if r.kind == KindAuto && r.path == "" {
		return jerrors.Configuration("resource without a path must declare its kind")
	}
	return nil
}

// Option adjusts a resource built by the shortcut constructors.
type Option func(*ResourceSpec)

// WithKind sets an explicit kind.
func WithKind(k Kind) Option { return func(s *ResourceSpec) { s.Kind = k } }

// WithPlacement sets an explicit placement.
func WithPlacement(p Placement) Option { return func(s *ResourceSpec) { s.Placement = p } }

// WithFS resolves the resource path inside fsys.
func WithFS(fsys fs.FS) Option { return func(s *ResourceSpec) { s.FS = fsys } }

func build(spec ResourceSpec, opts []Option) *Resource {
	for _, opt := range opts {
		opt(&spec)
	}
	return &Resource{
		kind:      spec.Kind,
		placement: spec.Placement,
		path:      spec.Path,
		fsys:      spec.FS,
		content:   spec.Content,
		handler:   spec.Handler,
	}
}

// Ref is a resource addressed by path: a file inside fsys, or, when fsys is
// nil, a path relative to a directory or URL mount. Validation happens when
// the owning module is built.
func Ref(fsys fs.FS, p string, opts ...Option) *Resource {
	return build(ResourceSpec{Path: p, FS: fsys}, opts)
}

// Inline is a content-backed resource rendered inline into the page.
func Inline(kind Kind, content string, opts ...Option) *Resource {
	return build(ResourceSpec{Kind: kind, Content: &content}, opts)
}

// Handled is a resource produced by a handler and addressed by p.
func Handled(p string, kind Kind, h router.Handler, opts ...Option) *Resource {
	return build(ResourceSpec{Path: p, Kind: kind, Handler: h}, opts)
}

// Kind returns the declared kind or the one inferred from the path.
func (r *Resource) Kind() Kind {
	if r.kind != KindAuto {
		return r.kind
	}
	return KindForPath(r.path)
}

// Placement returns the declared placement or the default for the kind.
func (r *Resource) Placement() Placement {
	if r.placement != PlacementAuto {
		return r.placement
	}
	return DefaultPlacement(r.Kind())
}

// Path returns the resource path relative to its module ("" for inline
// resources without a path).
func (r *Resource) Path() string { return r.path }

// Content returns inline content, if the resource is content-backed.
func (r *Resource) Content() (string, bool) {
	if r.content == nil {
		return "", false
	}
	return *r.content, true
}

// Inline reports whether the resource renders inline.
func (r *Resource) Inline() bool { return r.content != nil }

// Handler returns the resource's own handler, if any.
func (r *Resource) Handler() router.Handler { return r.handler }

// FS returns the filesystem holding the resource, if any.
func (r *Resource) FS() fs.FS { return r.fsys }

// Module returns the owning module; nil before the module is built.
func (r *Resource) Module() *Module { return r.module }

// URI returns the public URI of the resource, or "" when it has none.
func (r *Resource) URI() string {
	if r.module == nil {
		return ""
	}
	return r.module.resourceURI(r)
}

// ScriptType returns the script tag type for the resource's kind.
func (r *Resource) ScriptType() (string, error) {
	t, ok := r.Kind().ScriptType()
	if !ok {
		return "", jerrors.New(jerrors.ErrCodeRender, "%s resource %q is not a script", r.Kind(), r.path)
	}
	return t, nil
}

func (r *Resource) String() string {
	name := "<unattached>"
	if r.module != nil {
		name = r.module.name
	}
	if r.path != "" {
		return name + ":" + r.path
	}
	return name + ":" + r.Kind().String()
}
