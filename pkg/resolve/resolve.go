// Package resolve orders the web modules a page needs.
//
// Given the modules a render required plus the process-wide globals, a
// [Resolver] expands the transitive closure over each module's requires,
// deduplicates by name and returns the modules in dependency order: every
// module comes after everything it requires. Among modules with no
// ordering constraint between them the registration sequence decides, so
// the same inputs always give the same order.
package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/jenny/pkg/dag"
	"github.com/matzehuels/jenny/pkg/observability"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// Node metadata keys set by [Resolver.Graph].
const (
	MetaMount     = "mount"
	MetaURI       = "uri"
	MetaResources = "resources"
	MetaKnown     = "registered"
)

// Sequencer reports the registration sequence of a module name. The
// registry implements it.
type Sequencer interface {
	Seq(name string) (uint64, bool)
}

// SequencerFunc adapts a function to [Sequencer].
type SequencerFunc func(name string) (uint64, bool)

func (f SequencerFunc) Seq(name string) (uint64, bool) { return f(name) }

// Resolver computes dependency-ordered module lists.
type Resolver struct {
	seq    Sequencer
	logger *log.Logger
}

// New creates a resolver. A nil seq treats every module as unregistered,
// which orders ties by discovery.
func New(seq Sequencer, logger *log.Logger) *Resolver {
	if seq == nil {
		seq = SequencerFunc(func(string) (uint64, bool) { return 0, false })
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{seq: seq, logger: logger}
}

// Resolve returns the closure of globals and required in dependency order.
// A requires cycle yields an error carrying an *errors.CycleError.
func (r *Resolver) Resolve(ctx context.Context, globals, required []*webmodule.Module) ([]*webmodule.Module, error) {
	start := time.Now()
	roots := make([]*webmodule.Module, 0, len(globals)+len(required))
	roots = append(roots, globals...)
	roots = append(roots, required...)

	mods, err := r.resolve(roots)
	observability.Render().OnResolve(ctx, len(roots), len(mods), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolved modules", "roots", len(roots), "modules", len(mods))
	return mods, nil
}

func (r *Resolver) resolve(roots []*webmodule.Module) ([]*webmodule.Module, error) {
	g, byName, err := r.Graph(roots)
	if err != nil {
		return nil, err
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, fmt.Errorf("resolve modules: %w", err)
	}
	out := make([]*webmodule.Module, len(order))
	for i, name := range order {
		out[i] = byName[name]
	}
	return out, nil
}

// Graph builds the requires graph of the closure of roots. Edges point from
// a module to its dependency; node sequence numbers come from the
// sequencer, with unregistered modules placed after every registered one
// in discovery order.
func (r *Resolver) Graph(roots []*webmodule.Module) (*dag.DAG, map[string]*webmodule.Module, error) {
	byName := make(map[string]*webmodule.Module)
	var discovered []*webmodule.Module

	visit := func(m *webmodule.Module) bool {
		if m == nil {
			return false
		}
		if have, ok := byName[m.Name()]; ok {
			if have != m && !have.SameDefinition(m) {
				r.logger.Debug("duplicate module name, keeping first definition",
					"name", m.Name(), "kept", have.URI(), "dropped", m.URI())
			}
			return false
		}
		byName[m.Name()] = m
		discovered = append(discovered, m)
		return true
	}

	queue := make([]*webmodule.Module, 0, len(roots))
	for _, m := range roots {
		if visit(m) {
			queue = append(queue, m)
		}
	}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		for _, dep := range m.Requires() {
			if visit(dep) {
				queue = append(queue, dep)
			}
		}
	}

	var maxSeq uint64
	seqs := make([]uint64, len(discovered))
	known := make([]bool, len(discovered))
	for i, m := range discovered {
		if s, ok := r.seq.Seq(m.Name()); ok {
			seqs[i], known[i] = s, true
			maxSeq = max(maxSeq, s)
		}
	}
	next := maxSeq + 1
	for i := range discovered {
		if !known[i] {
			seqs[i] = next
			next++
		}
	}

	g := dag.New(nil)
	for i, m := range discovered {
		err := g.AddNode(dag.Node{
			ID:  m.Name(),
			Seq: seqs[i],
			Meta: dag.Metadata{
				MetaMount:     m.Mount().String(),
				MetaURI:       m.URI(),
				MetaResources: len(m.Resources()),
				MetaKnown:     known[i],
			},
		})
		if err != nil {
			return nil, nil, err
		}
	}
	for _, m := range discovered {
		for _, dep := range m.Requires() {
			if dep == nil {
				continue
			}
			if err := g.AddEdge(dag.Edge{From: m.Name(), To: dep.Name()}); err != nil {
				return nil, nil, err
			}
		}
	}
	return g, byName, nil
}
