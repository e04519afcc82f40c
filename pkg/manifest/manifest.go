// Package manifest turns a site manifest into web modules.
//
// A manifest is a TOML or YAML document with three lists:
//
//	[[module]]            # plain modules: file, directory, content or URL
//	name = "app"
//	uri = "/app/"
//	dir = "static/app"
//	resources = [{ path = "app.js" }, { path = "app.css" }]
//	requires = ["bootstrap"]
//
//	[[npm]]               # a package directory with a package.json
//	dir = "node_modules/jquery"
//
//	[[cdn]]               # a package served from the npm CDN
//	package = "bootstrap"
//	version = "5.3.0"
//	requires = ["jquery"]
//
// Requires refer to other declarations by key: the declared name, or for
// npm directories without a name the last element of dir, or for CDN
// packages the package name. Declarations may appear in any order.
package manifest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/v2"

	"github.com/matzehuels/jenny/pkg/config"
	"github.com/matzehuels/jenny/pkg/dag"
	jerrors "github.com/matzehuels/jenny/pkg/errors"
	npmreg "github.com/matzehuels/jenny/pkg/integrations/npm"
	"github.com/matzehuels/jenny/pkg/webmodule"
	"github.com/matzehuels/jenny/pkg/webmodule/npm"
)

// Site is a decoded manifest.
type Site struct {
	Modules []ModuleDecl `koanf:"module"`
	Npm     []NpmDecl    `koanf:"npm"`
	CDN     []CDNDecl    `koanf:"cdn"`
}

// ModuleDecl declares one module built with [webmodule.Builder].
type ModuleDecl struct {
	Name      string         `koanf:"name"`
	URI       string         `koanf:"uri"`
	URL       string         `koanf:"url"`
	Mount     string         `koanf:"mount"`
	Dir       string         `koanf:"dir"`  // directory backing a directory mount
	File      string         `koanf:"file"` // file backing a file mount
	Kind      string         `koanf:"kind"`
	Placement string         `koanf:"placement"`
	Content   string         `koanf:"content"` // shorthand for a single inline resource
	Resources []ResourceDecl `koanf:"resources"`
	Requires  []string       `koanf:"requires"`
}

type ResourceDecl struct {
	Path      string `koanf:"path"`
	Kind      string `koanf:"kind"`
	Placement string `koanf:"placement"`
	Content   string `koanf:"content"`
}

// NpmDecl declares a module built from a package directory.
type NpmDecl struct {
	Dir          string   `koanf:"dir"`
	Name         string   `koanf:"name"`
	Compression  string   `koanf:"compression"`
	PreferModule bool     `koanf:"prefer_module"`
	Requires     []string `koanf:"requires"`
}

// CDNDecl declares a module served from the npm CDN.
type CDNDecl struct {
	Package      string   `koanf:"package"`
	Version      string   `koanf:"version"`
	Name         string   `koanf:"name"`
	Compression  string   `koanf:"compression"`
	PreferModule bool     `koanf:"prefer_module"`
	Requires     []string `koanf:"requires"`
}

// Load reads the manifest at p. Pass [Root] of the same path as
// [Options.Root] so relative entries resolve against the manifest's
// directory.
func Load(p string) (*Site, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.ErrCodeFileNotFound, err, "read manifest %s", p)
	}
	return Parse(data, filepath.Ext(p))
}

// Root is the filesystem relative manifest paths resolve against.
func Root(manifestPath string) fs.FS {
	return os.DirFS(filepath.Dir(manifestPath))
}

// Parse decodes a manifest. ext selects the format: ".toml", ".yaml" or
// ".yml".
func Parse(data []byte, ext string) (*Site, error) {
	parser, err := config.ParserFor("manifest" + ext)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(rawBytes(data), parser); err != nil {
		return nil, jerrors.Wrap(jerrors.ErrCodeInvalidManifest, err, "parse manifest")
	}
	var s Site
	if err := k.Unmarshal("", &s); err != nil {
		return nil, jerrors.Wrap(jerrors.ErrCodeInvalidManifest, err, "decode manifest")
	}
	return &s, nil
}

type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) { return b, nil }

func (b rawBytes) Read() (map[string]any, error) {
	return nil, fmt.Errorf("manifest bytes need a parser")
}

// Options configures [Site.Build].
type Options struct {
	// Root resolves dir and file entries.
	Root fs.FS
	// Client is needed for CDN packages only.
	Client *npmreg.Client
	Logger *log.Logger
}

type decl struct {
	key      string
	requires []string
	build    func(ctx context.Context, reqs []*webmodule.Module) (*webmodule.Module, error)
}

// Build creates every declared module, dependencies first, and returns them
// in declaration order: modules, then npm directories, then CDN packages.
func (s *Site) Build(ctx context.Context, opts Options) ([]*webmodule.Module, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	decls, err := s.decls(opts)
	if err != nil {
		return nil, err
	}

	order, err := buildOrder(decls)
	if err != nil {
		return nil, err
	}

	built := make(map[string]*webmodule.Module, len(decls))
	byKey := make(map[string]decl, len(decls))
	for _, d := range decls {
		byKey[d.key] = d
	}
	for _, key := range order {
		d := byKey[key]
		reqs := make([]*webmodule.Module, 0, len(d.requires))
		for _, r := range d.requires {
			reqs = append(reqs, built[r])
		}
		m, err := d.build(ctx, reqs)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %s: %w", key, err)
		}
		logger.Debug("built module", "key", key, "name", m.Name(), "mount", m.Mount())
		built[key] = m
	}

	mods := make([]*webmodule.Module, 0, len(decls))
	for _, d := range decls {
		mods = append(mods, built[d.key])
	}
	return mods, nil
}

// buildOrder sorts declarations so every entry follows what it requires.
func buildOrder(decls []decl) ([]string, error) {
	g := dag.New(nil)
	for i, d := range decls {
		if err := g.AddNode(dag.Node{ID: d.key, Seq: uint64(i)}); err != nil {
			return nil, jerrors.New(jerrors.ErrCodeInvalidManifest, "duplicate manifest entry %q", d.key)
		}
	}
	for _, d := range decls {
		for _, r := range d.requires {
			if _, ok := g.Node(r); !ok {
				return nil, jerrors.New(jerrors.ErrCodeInvalidManifest, "%s requires unknown entry %q", d.key, r)
			}
			_ = g.AddEdge(dag.Edge{From: d.key, To: r})
		}
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return order, nil
}

func (s *Site) decls(opts Options) ([]decl, error) {
	var out []decl
	for i, md := range s.Modules {
		key := firstNonEmpty(md.Name, md.URI, md.URL)
		if key == "" {
			return nil, jerrors.New(jerrors.ErrCodeInvalidManifest, "module #%d needs a name, uri or url", i+1)
		}
		out = append(out, decl{key: key, requires: md.Requires, build: func(_ context.Context, reqs []*webmodule.Module) (*webmodule.Module, error) {
			return buildModule(md, opts.Root, reqs)
		}})
	}
	for i, nd := range s.Npm {
		if nd.Dir == "" {
			return nil, jerrors.New(jerrors.ErrCodeInvalidManifest, "npm entry #%d needs a dir", i+1)
		}
		if opts.Root == nil {
			return nil, jerrors.Configuration("npm entry %s: no root filesystem", nd.Dir)
		}
		comp, err := npm.ParseCompression(nd.Compression)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.ErrCodeInvalidManifest, err, "npm entry %s", nd.Dir)
		}
		out = append(out, decl{key: firstNonEmpty(nd.Name, path.Base(nd.Dir)), requires: nd.Requires, build: func(ctx context.Context, reqs []*webmodule.Module) (*webmodule.Module, error) {
			b := npm.Local(opts.Root, nd.Dir).WithCompression(comp).PreferModule(nd.PreferModule).WithRequires(reqs...)
			if nd.Name != "" {
				b.WithName(nd.Name)
			}
			return b.Build(ctx)
		}})
	}
	for i, cd := range s.CDN {
		if cd.Package == "" {
			return nil, jerrors.New(jerrors.ErrCodeInvalidManifest, "cdn entry #%d needs a package", i+1)
		}
		if opts.Client == nil {
			return nil, jerrors.Configuration("cdn entry %s: no npm client configured", cd.Package)
		}
		comp, err := npm.ParseCompression(cd.Compression)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.ErrCodeInvalidManifest, err, "cdn entry %s", cd.Package)
		}
		out = append(out, decl{key: firstNonEmpty(cd.Name, cd.Package), requires: cd.Requires, build: func(ctx context.Context, reqs []*webmodule.Module) (*webmodule.Module, error) {
			b := npm.Remote(opts.Client, cd.Package, cd.Version).WithCompression(comp).PreferModule(cd.PreferModule).WithRequires(reqs...)
			if cd.Name != "" {
				b.WithName(cd.Name)
			}
			return b.Build(ctx)
		}})
	}
	return out, nil
}

func buildModule(d ModuleDecl, root fs.FS, reqs []*webmodule.Module) (*webmodule.Module, error) {
	b := webmodule.NewBuilder().WithName(d.Name).WithRequires(reqs...)
	if d.Mount != "" {
		m, err := webmodule.ParseMount(d.Mount)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.ErrCodeInvalidManifest, err, "module %s", d.Name)
		}
		b.As(m)
	}
	switch {
	case d.URL != "":
		b.WithURL(d.URL)
	case d.URI != "":
		b.WithURI(d.URI)
	}
	if d.Dir != "" {
		if root == nil {
			return nil, jerrors.Configuration("module %s: no root filesystem for dir %s", d.Name, d.Dir)
		}
		b.AsDirectoryFS(root, d.Dir)
	}

	if d.Content != "" {
		r, err := resource(ResourceDecl{Kind: d.Kind, Placement: d.Placement, Content: d.Content}, nil)
		if err != nil {
			return nil, err
		}
		b.AddResources(r)
	}
	if d.File != "" {
		if root == nil {
			return nil, jerrors.Configuration("module %s: no root filesystem for file %s", d.Name, d.File)
		}
		r, err := resource(ResourceDecl{Path: d.File, Kind: d.Kind, Placement: d.Placement}, root)
		if err != nil {
			return nil, err
		}
		b.AddResources(r).AsFile()
	}
	for _, rd := range d.Resources {
		r, err := resource(rd, nil)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", d.Name, err)
		}
		b.AddResources(r)
	}
	return b.Build()
}

func resource(d ResourceDecl, fsys fs.FS) (*webmodule.Resource, error) {
	var opts []webmodule.Option
	if d.Kind != "" {
		k, err := webmodule.ParseKind(d.Kind)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.ErrCodeInvalidManifest, err, "resource %s", d.Path)
		}
		opts = append(opts, webmodule.WithKind(k))
	}
	if d.Placement != "" {
		p, err := webmodule.ParsePlacement(d.Placement)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.ErrCodeInvalidManifest, err, "resource %s", d.Path)
		}
		opts = append(opts, webmodule.WithPlacement(p))
	}
	if d.Content != "" {
		kind := webmodule.KindAuto
		if d.Kind != "" {
			kind, _ = webmodule.ParseKind(d.Kind)
		}
		return webmodule.Inline(kind, d.Content, opts...), nil
	}
	if d.Path == "" {
		return nil, jerrors.New(jerrors.ErrCodeInvalidManifest, "resource needs a path or content")
	}
	return webmodule.Ref(fsys, d.Path, opts...), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
