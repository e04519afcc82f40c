// Package npm builds web modules from npm packages, either from a package
// directory inside an [io/fs.FS] or from a published package served by a CDN.
package npm

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goccy/go-json"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	npmreg "github.com/matzehuels/jenny/pkg/integrations/npm"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// Metadata keys set on every module built by this package.
const (
	MetaName    = "npm.name"
	MetaVersion = "npm.version"
)

// Compression selects between minified and plain variants of entry files.
type Compression int

const (
	// Auto prefers base.min.ext, then base.ext, then base, then the declared path.
	Auto Compression = iota
	// None requires base.ext or base.
	None
	// Minify requires base.min.ext.
	Minify
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Minify:
		return "minify"
	default:
		return "auto"
	}
}

// ParseCompression parses "auto", "none" or "minify".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "none":
		return None, nil
	case "minify", "min":
		return Minify, nil
	}
	return Auto, fmt.Errorf("unknown compression %q", s)
}

// Manifest is the subset of package.json used to pick entry files.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main"`
	Module  string `json:"module"`
	Style   string `json:"style"`
	Type    string `json:"type"`
}

// source provides a package manifest and the set of files it contains.
type source interface {
	load(ctx context.Context) (Manifest, map[string]bool, error)
	apply(b *webmodule.Builder, m Manifest)
}

// Builder assembles a web module for one npm package.
type Builder struct {
	src          source
	compression  Compression
	preferModule bool
	main         *string
	module       *string
	style        *string
	typ          *string
	name         string
	requires     []*webmodule.Module
	resources    []*webmodule.Resource
}

// Local builds from the package directory dir inside fsys. The directory
// must contain a package.json.
func Local(fsys fs.FS, dir string) *Builder {
	return &Builder{src: &localSource{fsys: fsys, dir: strings.Trim(path.Clean(dir), "/")}}
}

// Remote builds a URL-mounted module for a published package, resolved
// through client. An empty version means the latest release.
func Remote(client *npmreg.Client, name, version string) *Builder {
	return &Builder{src: &remoteSource{client: client, name: name, version: version}}
}

// WithCompression sets how entry files are chosen.
func (b *Builder) WithCompression(c Compression) *Builder {
	b.compression = c
	return b
}

// PreferModule selects the ES module entry over main when both exist.
func (b *Builder) PreferModule(prefer bool) *Builder {
	b.preferModule = prefer
	return b
}

// WithName overrides the module name, which defaults to the package name.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithMain overrides the main entry from package.json.
func (b *Builder) WithMain(p string) *Builder {
	b.main = &p
	return b
}

// WithModule overrides the ES module entry from package.json.
func (b *Builder) WithModule(p string) *Builder {
	b.module = &p
	return b
}

// WithStyle overrides the style entry from package.json.
func (b *Builder) WithStyle(p string) *Builder {
	b.style = &p
	return b
}

// WithType overrides the package type ("module" or "commonjs").
func (b *Builder) WithType(t string) *Builder {
	b.typ = &t
	return b
}

// WithRequires adds dependencies.
func (b *Builder) WithRequires(mods ...*webmodule.Module) *Builder {
	b.requires = append(b.requires, mods...)
	return b
}

// AddResources adds resources besides the entries found in package.json.
func (b *Builder) AddResources(rs ...*webmodule.Resource) *Builder {
	b.resources = append(b.resources, rs...)
	return b
}

// Build loads the package and returns its module.
func (b *Builder) Build(ctx context.Context) (*webmodule.Module, error) {
	man, files, err := b.src.load(ctx)
	if err != nil {
		return nil, err
	}
	if man.Name == "" {
		return nil, jerrors.New(jerrors.ErrCodeInvalidInput, "package.json has no name")
	}
	if man.Version == "" {
		return nil, jerrors.New(jerrors.ErrCodeInvalidInput, "package %s has no version", man.Name)
	}

	main, err := b.entry(b.main, man.Main, "js", files)
	if err != nil {
		return nil, err
	}
	module, err := b.entry(b.module, man.Module, "js", files)
	if err != nil {
		return nil, err
	}
	style, err := b.entry(b.style, man.Style, "css", files)
	if err != nil {
		return nil, err
	}
	typ := man.Type
	if b.typ != nil {
		typ = *b.typ
	}

	name := b.name
	if name == "" {
		name = man.Name
	}
	wb := webmodule.NewBuilder().
		WithName(name).
		WithRequires(b.requires...).
		AddResources(b.resources...).
		WithMeta(MetaName, man.Name).
		WithMeta(MetaVersion, man.Version)
	b.src.apply(wb, man)

	if module != "" && (main == "" || b.preferModule) {
		wb.AddResources(webmodule.Ref(nil, module, webmodule.WithKind(webmodule.KindModule)))
	}
	if main != "" && (module == "" || !b.preferModule) {
		kind := webmodule.KindJS
		if typ == "module" {
			kind = webmodule.KindModule
		}
		wb.AddResources(webmodule.Ref(nil, main, webmodule.WithKind(kind)))
	}
	if style != "" {
		wb.AddResources(webmodule.Ref(nil, style, webmodule.WithKind(webmodule.KindCSS)))
	}

	m, err := wb.Build()
	if err != nil {
		return nil, fmt.Errorf("npm package %s@%s: %w", man.Name, man.Version, err)
	}
	return m, nil
}

func (b *Builder) entry(override *string, declared, ext string, files map[string]bool) (string, error) {
	p := declared
	if override != nil {
		p = *override
	}
	if p == "" {
		return "", nil
	}
	p = normalize(p)
	sel, err := locateBest(b.compression, p, ext, files)
	if err != nil {
		return "", err
	}
	return normalize(sel), nil
}

// locateBest picks the variant of p to serve according to c.
func locateBest(c Compression, p, ext string, files map[string]bool) (string, error) {
	base := stripExtensions(p, ext)
	plain := base + "." + ext
	minified := base + ".min." + ext

	switch c {
	case None:
		for _, sel := range []string{plain, base} {
			if files[sel] {
				return sel, nil
			}
		}
		return "", jerrors.New(jerrors.ErrCodeFileNotFound,
			"resource %q does not exist with non-compressed extension %q", p, ext)
	case Minify:
		if files[minified] {
			return minified, nil
		}
		return "", jerrors.New(jerrors.ErrCodeFileNotFound,
			"resource %q does not exist with compressed extension \".min.%s\"", p, ext)
	default:
		for _, sel := range []string{minified, plain, base} {
			if files[sel] {
				return sel, nil
			}
		}
		return p, nil
	}
}

func stripExtensions(p, ext string) string {
	if i := strings.Index(p, "."+ext); i != -1 {
		p = p[:i]
	}
	if i := strings.Index(p, ".min"); i != -1 {
		p = p[:i]
	}
	return p
}

func normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

type localSource struct {
	fsys fs.FS
	dir  string
}

func (s *localSource) load(context.Context) (Manifest, map[string]bool, error) {
	var man Manifest
	root := s.dir
	if root == "" {
		root = "."
	}
	data, err := fs.ReadFile(s.fsys, path.Join(root, "package.json"))
	if err != nil {
		return man, nil, jerrors.Wrap(jerrors.ErrCodeFileNotFound, err, "read package.json in %q", root)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, nil, jerrors.Wrap(jerrors.ErrCodeInvalidInput, err, "parse package.json in %q", root)
	}

	files := make(map[string]bool)
	sub, err := fs.Sub(s.fsys, root)
	if err != nil {
		return man, nil, err
	}
	err = fs.WalkDir(sub, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return fs.SkipDir
			}
			return nil
		}
		files[p] = true
		return nil
	})
	if err != nil {
		return man, nil, fmt.Errorf("catalogue %q: %w", root, err)
	}
	return man, files, nil
}

func (s *localSource) apply(b *webmodule.Builder, m Manifest) {
	b.WithURI(fmt.Sprintf("/npm/%s/%s/", m.Name, m.Version)).AsDirectoryFS(s.fsys, s.dir)
}

type remoteSource struct {
	client  *npmreg.Client
	name    string
	version string
}

func (s *remoteSource) load(ctx context.Context) (Manifest, map[string]bool, error) {
	info, err := s.client.FetchPackage(ctx, s.name, s.version, false)
	if err != nil {
		return Manifest{}, nil, err
	}
	listing, err := s.client.FetchFiles(ctx, info.Name, info.Version, false)
	if err != nil {
		return Manifest{}, nil, err
	}
	files := make(map[string]bool, len(listing))
	for _, f := range listing {
		files[f] = true
	}
	return Manifest{
		Name:    info.Name,
		Version: info.Version,
		Main:    info.Main,
		Module:  info.Module,
		Style:   info.Style,
		Type:    info.Type,
	}, files, nil
}

func (s *remoteSource) apply(b *webmodule.Builder, m Manifest) {
	b.WithURL(s.client.CDNBase(m.Name, m.Version))
}
