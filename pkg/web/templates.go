package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
)

//go:embed templates/*.html
var builtinTemplates embed.FS

// Vars are flat template variables such as "tx.path" or "npm.bootstrap".
// Templates read them with index: {{index .Vars "tx.path"}}.
type Vars map[string]string

// Page is the data every page template executes with.
type Page struct {
	Name string

	// Head, BodyHead and BodyTail hold the asset tags of each region.
	// Templates place them with {{template "web.head" .}} and friends.
	Head     template.HTML
	BodyHead template.HTML
	BodyTail template.HTML

	// Modules are the names of the modules on the page, in emission order.
	Modules []string

	Vars Vars
	Data any
}

// Templates is a named set of page templates.
type Templates struct {
	set *template.Template
}

func parseBuiltin() (*template.Template, error) {
	return template.New("jenny").ParseFS(builtinTemplates, "templates/*.html")
}

// DefaultTemplates returns the built-in pages: index.html, 404.html and
// 500.html.
func DefaultTemplates() *Templates {
	set, err := parseBuiltin()
	if err != nil {
		panic(err)
	}
	return &Templates{set: set}
}

// ParseTemplates loads the built-in pages, then the files of fsys matching
// patterns. A file named like a built-in page replaces it.
func ParseTemplates(fsys fs.FS, patterns ...string) (*Templates, error) {
	set, err := parseBuiltin()
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = []string{"*.html"}
	}
	if _, err := set.ParseFS(fsys, patterns...); err != nil {
		return nil, jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "parse templates")
	}
	return &Templates{set: set}, nil
}

// Has reports whether a template called name exists.
func (t *Templates) Has(name string) bool {
	return t.set.Lookup(name) != nil
}

// Render executes the template name with page.
func (t *Templates) Render(w io.Writer, name string, page *Page) error {
	if !t.Has(name) {
		return jerrors.New(jerrors.ErrCodeNotFound, "no template %q", name)
	}
	return t.set.ExecuteTemplate(w, name, page)
}
