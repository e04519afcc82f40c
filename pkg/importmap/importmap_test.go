package importmap

import (
	"io"
	"testing"
	"testing/fstest"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/jenny/pkg/webmodule"
)

var quiet = log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})

var files = fstest.MapFS{
	"lit.js":     {Data: []byte("export {}")},
	"lit-dom.js": {Data: []byte("export {}")},
	"app.js":     {Data: []byte("import 'lit'")},
}

func imported(t *testing.T, name, uri string, paths ...string) *webmodule.Module {
	t.Helper()
	b := webmodule.NewBuilder().WithName(name).WithURI(uri)
	for _, p := range paths {
		b.AddResources(webmodule.Ref(files, p, webmodule.WithKind(webmodule.KindImported)))
	}
	m, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSynthesizeNoImported(t *testing.T) {
	app := webmodule.Must(webmodule.JS("/app.js", files, "app.js"))
	in := []*webmodule.Module{app}
	out, err := Synthesize(in, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != app {
		t.Errorf("modules changed: %v", webmodule.Names(out))
	}
}

func TestSynthesizeTwoModules(t *testing.T) {
	lit := imported(t, "lit", "/npm/lit/", "lit.js")
	dom := imported(t, "lit-dom", "/lit-dom.js", "lit-dom.js")
	app := webmodule.Must(webmodule.JSModule("/app.js", files, "app.js", lit, dom))

	out, err := Synthesize([]*webmodule.Module{lit, dom, app}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"lit", "lit-dom", "/app\\.js", ModuleName}, webmodule.Names(out)); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}

	im := out[3]
	if im.Mount() != webmodule.MountContent || len(im.Resources()) != 1 {
		t.Fatalf("import map module = %v", im)
	}
	res := im.Resources()[0]
	if res.Kind() != webmodule.KindImportMap || res.Placement() != webmodule.Head {
		t.Errorf("resource kind=%v placement=%v", res.Kind(), res.Placement())
	}
	doc, _ := res.Content()
	want := `{"imports":{"lit":"/npm/lit/lit.js","lit-dom":"/lit-dom.js"}}`
	if doc != want {
		t.Errorf("document = %s, want %s", doc, want)
	}
	imports, err := Parse(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 2 {
		t.Errorf("imports = %v", imports)
	}
}

func TestEntriesFirstImportedWins(t *testing.T) {
	lit := imported(t, "lit", "/npm/lit/", "lit.js", "lit-dom.js")
	got := Entries([]*webmodule.Module{lit}, quiet)
	want := []Entry{{Specifier: "lit", URL: "/npm/lit/lit.js"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentEscapes(t *testing.T) {
	doc, err := Document([]Entry{{Specifier: `a"b`, URL: "/x.js"}})
	if err != nil {
		t.Fatal(err)
	}
	imports, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse(%s): %v", doc, err)
	}
	if imports[`a"b`] != "/x.js" {
		t.Errorf("imports = %v", imports)
	}
}
