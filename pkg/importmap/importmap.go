// Package importmap synthesizes the import map for modules exposed as bare
// ES module specifiers.
//
// A resource of kind Imported is never emitted as its own tag. Instead its
// module name becomes an import map key pointing at the resource URI, so
// page scripts can write `import x from "<module name>"`.
package importmap

import (
	"bytes"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// ModuleName is the name of the synthesized module.
const ModuleName = "jenny:importmap"

// Entry maps a specifier to a URL.
type Entry struct {
	Specifier string
	URL       string
}

// Entries collects the import map entries of mods in order. When a module
// has several Imported resources only the first is used.
func Entries(mods []*webmodule.Module, logger *log.Logger) []Entry {
	if logger == nil {
		logger = log.Default()
	}
	var out []Entry
	seen := make(map[string]bool)
	for _, m := range mods {
		for _, r := range m.Resources() {
			if r.Kind() != webmodule.KindImported {
				continue
			}
			if seen[m.Name()] {
				logger.Debug("ignoring extra imported resource", "module", m.Name(), "resource", r.Path())
				continue
			}
			uri := r.URI()
			if uri == "" {
				logger.Warn("imported resource has no URI", "module", m.Name(), "resource", r.Path())
				continue
			}
			seen[m.Name()] = true
			out = append(out, Entry{Specifier: m.Name(), URL: uri})
		}
	}
	return out
}

// Document encodes entries as an import map JSON document. Keys keep the
// order of entries.
func Document(entries []Entry) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"imports":{`)
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Specifier)
		if err != nil {
			return "", err
		}
		v, err := json.Marshal(e.URL)
		if err != nil {
			return "", err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString(`}}`)
	return buf.String(), nil
}

// Synthesize returns mods unchanged when no module has an Imported
// resource. Otherwise it returns a copy with one extra content module
// holding the import map.
func Synthesize(mods []*webmodule.Module, logger *log.Logger) ([]*webmodule.Module, error) {
	entries := Entries(mods, logger)
	if len(entries) == 0 {
		return mods, nil
	}
	doc, err := Document(entries)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.ErrCodeRender, err, "encode import map")
	}
	m, err := webmodule.NewBuilder().
		WithName(ModuleName).
		As(webmodule.MountContent).
		WithResources(webmodule.Inline(webmodule.KindImportMap, doc, webmodule.WithPlacement(webmodule.Head))).
		Build()
	if err != nil {
		return nil, err
	}
	out := make([]*webmodule.Module, 0, len(mods)+1)
	out = append(out, mods...)
	return append(out, m), nil
}

// Parse decodes an import map document.
func Parse(doc string) (map[string]string, error) {
	var v struct {
		Imports map[string]string `json:"imports"`
	}
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return nil, err
	}
	return v.Imports, nil
}
