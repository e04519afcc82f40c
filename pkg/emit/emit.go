// Package emit renders the HTML tags that load resolved web modules.
package emit

import (
	"html"
	"html/template"
	"strings"

	"github.com/matzehuels/jenny/pkg/webmodule"
)

// Assets holds the tags for every page region.
type Assets struct {
	Head     template.HTML
	BodyHead template.HTML
	BodyTail template.HTML
}

// For returns the fragment for one placement.
func (a Assets) For(p webmodule.Placement) template.HTML {
	switch p {
	case webmodule.Head:
		return a.Head
	case webmodule.BodyHead:
		return a.BodyHead
	default:
		return a.BodyTail
	}
}

// All renders all three regions.
func All(mods []*webmodule.Module) Assets {
	return Assets{
		Head:     Emit(mods, webmodule.Head),
		BodyHead: Emit(mods, webmodule.BodyHead),
		BodyTail: Emit(mods, webmodule.BodyTail),
	}
}

// Emit renders the resources of mods placed at p. Stylesheets come first,
// then the import map, then scripts, each group in module order. Imported
// and ancillary resources are never emitted.
func Emit(mods []*webmodule.Module, p webmodule.Placement) template.HTML {
	var css, importMaps, scripts []*webmodule.Resource
	for _, m := range mods {
		for _, r := range m.Resources() {
			if r.Placement() != p {
				continue
			}
			switch r.Kind() {
			case webmodule.KindCSS:
				css = append(css, r)
			case webmodule.KindImportMap:
				importMaps = append(importMaps, r)
			case webmodule.KindJS, webmodule.KindModule:
				scripts = append(scripts, r)
			}
		}
	}

	var b strings.Builder
	for _, r := range css {
		writeStyle(&b, r)
	}
	for _, r := range importMaps {
		writeScript(&b, r)
	}
	for _, r := range scripts {
		writeScript(&b, r)
	}
	return template.HTML(b.String())
}

func writeStyle(b *strings.Builder, r *webmodule.Resource) {
	if content, ok := r.Content(); ok {
		b.WriteString("<style>")
		b.WriteString(escapeRawText(content, "style"))
		b.WriteString("</style>\n")
		return
	}
	if uri := r.URI(); uri != "" {
		b.WriteString(`<link rel="stylesheet" href="`)
		b.WriteString(html.EscapeString(uri))
		b.WriteString("\">\n")
	}
}

func writeScript(b *strings.Builder, r *webmodule.Resource) {
	typ, err := r.ScriptType()
	if err != nil {
		return
	}
	if content, ok := r.Content(); ok {
		b.WriteString(`<script type="`)
		b.WriteString(typ)
		b.WriteString(`">`)
		b.WriteString(escapeRawText(content, "script"))
		b.WriteString("</script>\n")
		return
	}
	if uri := r.URI(); uri != "" {
		b.WriteString(`<script type="`)
		b.WriteString(typ)
		b.WriteString(`" src="`)
		b.WriteString(html.EscapeString(uri))
		b.WriteString("\"></script>\n")
	}
}

// escapeRawText keeps inline content from closing its element early. Tag
// names match ASCII case-insensitively, as HTML parsers do, and the input is
// scanned in place so non-ASCII bytes pass through untouched.
func escapeRawText(s, tag string) string {
	var b strings.Builder
	for {
		i := indexClosing(s, tag)
		if i < 0 {
			if b.Len() == 0 {
				return s
			}
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(`<\/`)
		s = s[i+2:]
	}
}

// indexClosing returns the offset of the first "</tag" in s, or -1.
func indexClosing(s, tag string) int {
	for off := 0; ; {
		i := strings.Index(s[off:], "</")
		if i < 0 {
			return -1
		}
		i += off
		if rest := s[i+2:]; len(rest) >= len(tag) && asciiEqualFold(rest[:len(tag)], tag) {
			return i
		}
		off = i + 2
	}
}

func asciiEqualFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
