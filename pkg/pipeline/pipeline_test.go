package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/jenny/pkg/cache"
	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/resolve"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

var files = fstest.MapFS{
	"jquery.js":    {Data: []byte("")},
	"bootstrap.js": {Data: []byte("")},
	"theme.css":    {Data: []byte("")},
	"lit.js":       {Data: []byte("")},
}

func quiet() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

type fixture struct {
	jquery, bootstrap, theme *webmodule.Module
	seq                      resolve.Sequencer
}

func newFixture() fixture {
	jquery := webmodule.Must(webmodule.NewBuilder().WithName("jquery").WithURI("/jquery.js").
		WithResources(webmodule.Ref(files, "jquery.js")).Build())
	bootstrap := webmodule.Must(webmodule.NewBuilder().WithName("bootstrap").WithURI("/bootstrap.js").
		WithResources(webmodule.Ref(files, "bootstrap.js")).WithRequires(jquery).Build())
	theme := webmodule.Must(webmodule.NewBuilder().WithName("theme").WithURI("/theme.css").
		WithResources(webmodule.Ref(files, "theme.css")).Build())
	seqs := map[string]uint64{"jquery": 1, "bootstrap": 2, "theme": 3}
	return fixture{
		jquery:    jquery,
		bootstrap: bootstrap,
		theme:     theme,
		seq: resolve.SequencerFunc(func(name string) (uint64, bool) {
			s, ok := seqs[name]
			return s, ok
		}),
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestExecuteBootstrapPage(t *testing.T) {
	f := newFixture()
	r := NewRunner(nil, nil, quiet())

	res, err := r.Execute(context.Background(), Options{
		Page:     "index.html",
		Required: []*webmodule.Module{f.bootstrap, f.theme},
		Seq:      f.seq,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"jquery", "bootstrap", "theme"}, webmodule.Names(res.Modules)); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
	if got := string(res.Assets.Head); got != "<link rel=\"stylesheet\" href=\"/theme.css\">\n" {
		t.Errorf("head = %q", got)
	}
	wantTail := "<script type=\"text/javascript\" src=\"/jquery.js\"></script>\n" +
		"<script type=\"text/javascript\" src=\"/bootstrap.js\"></script>\n"
	if got := string(res.Assets.BodyTail); got != wantTail {
		t.Errorf("tail = %q", got)
	}
	if res.Stats.ImportMap || res.Stats.ModuleCount != 3 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	f := newFixture()
	r := NewRunner(nil, nil, quiet())
	opts := Options{Globals: []*webmodule.Module{f.theme}, Required: []*webmodule.Module{f.bootstrap}, Seq: f.seq}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := r.Execute(context.Background(), opts)
		if again.Assets != first.Assets {
			t.Fatalf("render %d differs", i)
		}
	}
}

func TestExecuteImportMap(t *testing.T) {
	lit := webmodule.Must(webmodule.NewBuilder().WithName("lit").WithURI("/lit.js").
		WithResources(webmodule.Ref(files, "lit.js", webmodule.WithKind(webmodule.KindImported))).Build())
	r := NewRunner(nil, nil, quiet())

	res, err := r.Execute(context.Background(), Options{Required: []*webmodule.Module{lit}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stats.ImportMap {
		t.Fatal("expected import map")
	}
	want := `<script type="importmap">{"imports":{"lit":"/lit.js"}}</script>` + "\n"
	if string(res.Assets.Head) != want {
		t.Errorf("head = %q", res.Assets.Head)
	}
}

func TestRenderWrapsTemplateError(t *testing.T) {
	f := newFixture()
	r := NewRunner(nil, nil, quiet())

	err := r.Render(context.Background(), Options{Page: "index.html", Required: []*webmodule.Module{f.jquery}},
		func(*Result) error { return errors.New("template boom") })
	if !jerrors.Is(err, jerrors.ErrCodeRender) {
		t.Errorf("got %v, want RENDER error", err)
	}

	var got *Result
	err = r.Render(context.Background(), Options{Required: []*webmodule.Module{f.jquery}},
		func(res *Result) error { got = res; return nil })
	if err != nil || got == nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestGraphFormats(t *testing.T) {
	f := newFixture()
	app := webmodule.Must(webmodule.Content("app", webmodule.KindJS, "app()", f.bootstrap, f.jquery))
	r := NewRunner(nil, nil, quiet())

	g, artifacts, err := r.Graph(context.Background(), []*webmodule.Module{app}, f.seq,
		GraphOptions{Formats: []string{FormatDOT, FormatJSON}, Reduce: true})
	if err != nil {
		t.Fatal(err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("reduction left %d edges, want 2", g.EdgeCount())
	}
	if !strings.Contains(string(artifacts[FormatDOT]), `"app" -> "bootstrap";`) {
		t.Errorf("dot = %s", artifacts[FormatDOT])
	}
	if !strings.Contains(string(artifacts[FormatJSON]), `"id": "app"`) {
		t.Errorf("json = %s", artifacts[FormatJSON])
	}

	if _, _, err := r.Graph(context.Background(), nil, nil, GraphOptions{Formats: []string{"png"}}); err == nil {
		t.Error("invalid format should fail")
	}
}

func TestGraphSVGFromCache(t *testing.T) {
	f := newFixture()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quiet())
	ctx := context.Background()

	_, dotOnly, err := r.Graph(ctx, []*webmodule.Module{f.jquery}, f.seq, GraphOptions{})
	if err != nil {
		t.Fatal(err)
	}
	key := r.Keyer.ArtifactKey(FormatSVG, cache.Hash(dotOnly[FormatDOT]))
	if err := fc.Set(ctx, key, []byte("<svg>cached</svg>"), time.Hour); err != nil {
		t.Fatal(err)
	}

	_, artifacts, err := r.Graph(ctx, []*webmodule.Module{f.jquery}, f.seq, GraphOptions{Formats: []string{FormatSVG}})
	if err != nil {
		t.Fatal(err)
	}
	if string(artifacts[FormatSVG]) != "<svg>cached</svg>" {
		t.Errorf("svg = %s", artifacts[FormatSVG])
	}
}
