package resolve

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/jenny/pkg/dag"
	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

func quiet() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func mod(t *testing.T, name string, requires ...*webmodule.Module) *webmodule.Module {
	t.Helper()
	m, err := webmodule.NewBuilder().
		WithName(name).
		WithResources(webmodule.Inline(webmodule.KindJS, name+"()")).
		WithRequires(requires...).
		Build()
	if err != nil {
		t.Fatalf("build %s: %v", name, err)
	}
	return m
}

func seqs(order ...string) Sequencer {
	m := make(map[string]uint64, len(order))
	for i, name := range order {
		m[name] = uint64(i + 1)
	}
	return SequencerFunc(func(name string) (uint64, bool) {
		s, ok := m[name]
		return s, ok
	})
}

func TestResolveOrder(t *testing.T) {
	jquery := mod(t, "jquery")
	bootstrap := mod(t, "bootstrap", jquery)
	theme := mod(t, "theme")
	table := mod(t, "table", bootstrap, jquery)

	tests := []struct {
		name     string
		seq      Sequencer
		globals  []*webmodule.Module
		required []*webmodule.Module
		want     []string
	}{
		{
			name:     "dependency before dependent",
			seq:      seqs("jquery", "bootstrap"),
			required: []*webmodule.Module{bootstrap},
			want:     []string{"jquery", "bootstrap"},
		},
		{
			name:     "requiring both yields each once",
			seq:      seqs("jquery", "bootstrap"),
			required: []*webmodule.Module{bootstrap, jquery, bootstrap},
			want:     []string{"jquery", "bootstrap"},
		},
		{
			name:     "globals and required merged by sequence",
			seq:      seqs("jquery", "bootstrap", "theme", "table"),
			globals:  []*webmodule.Module{theme},
			required: []*webmodule.Module{table},
			want:     []string{"jquery", "bootstrap", "theme", "table"},
		},
		{
			name:     "unregistered modules follow registered ones",
			seq:      seqs("theme"),
			required: []*webmodule.Module{table, theme},
			want:     []string{"theme", "jquery", "bootstrap", "table"},
		},
		{
			name: "empty",
			seq:  seqs(),
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.seq, quiet())
			got, err := r.Resolve(context.Background(), tt.globals, tt.required)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if diff := cmp.Diff(tt.want, webmodule.Names(got)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	a := mod(t, "a")
	b := mod(t, "b", a)
	c := mod(t, "c", a)
	d := mod(t, "d", b, c)
	e := mod(t, "e")

	r := New(seqs("e", "d", "c", "b", "a"), quiet())
	first, err := r.Resolve(context.Background(), nil, []*webmodule.Module{d, e})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, _ := r.Resolve(context.Background(), nil, []*webmodule.Module{d, e})
		if diff := cmp.Diff(webmodule.Names(first), webmodule.Names(again)); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
	pos := dag.PosMap(webmodule.Names(first))
	for _, m := range first {
		for _, dep := range m.Requires() {
			if pos[dep.Name()] >= pos[m.Name()] {
				t.Errorf("%s precedes its dependency %s", m.Name(), dep.Name())
			}
		}
	}
}

func TestResolveDuplicateNameKeepsFirst(t *testing.T) {
	first := mod(t, "lib")
	second := mod(t, "lib", mod(t, "extra"))
	app := mod(t, "app", first)
	other := mod(t, "other", second)

	got, err := New(nil, quiet()).Resolve(context.Background(), nil, []*webmodule.Module{app, other})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"lib", "app", "other"}, webmodule.Names(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got[0] != first {
		t.Error("first discovered definition should win")
	}
}

func TestResolveCycle(t *testing.T) {
	placeholder := mod(t, "b")
	a := mod(t, "a", placeholder)
	b := mod(t, "b", a)

	_, err := New(nil, quiet()).Resolve(context.Background(), nil, []*webmodule.Module{b})
	if !jerrors.Is(err, jerrors.ErrCodeCycle) {
		t.Fatalf("got %v, want cycle error", err)
	}
	var ce *jerrors.CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("%v does not wrap CycleError", err)
	}
	if len(ce.Members) != 2 {
		t.Errorf("members = %v, want a and b", ce.Members)
	}
}

func TestGraphMetadata(t *testing.T) {
	jquery := mod(t, "jquery")
	bootstrap := mod(t, "bootstrap", jquery)

	g, byName, err := New(seqs("jquery"), quiet()).Graph([]*webmodule.Module{bootstrap})
	if err != nil {
		t.Fatal(err)
	}
	if len(byName) != 2 || g.EdgeCount() != 1 {
		t.Fatalf("graph has %d modules and %d edges", len(byName), g.EdgeCount())
	}
	n, _ := g.Node("bootstrap")
	if n.Meta[MetaKnown] != false || n.Meta[MetaMount] != "content" || n.Seq != 2 {
		t.Errorf("bootstrap node = %+v", n)
	}
	if diff := cmp.Diff([]string{"jquery"}, g.Children("bootstrap")); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}
