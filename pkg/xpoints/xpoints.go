// Package xpoints implements extension points: typed values that plugins
// contribute and other plugins look up.
//
// Contributions are made through a [Group], usually one per plugin, so that
// closing the group withdraws everything the plugin contributed:
//
//	g := points.Group()
//	xpoints.Add[web.Decorator](g, myDecorator)
//	defer g.Close()
//
//	for _, d := range xpoints.List[web.Decorator](points) { ... }
package xpoints

import (
	"reflect"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// Weighted is implemented by points that care about their position. Lower
// weights are listed first; points without a weight count as zero.
type Weighted interface {
	Weight() int
}

// Points is the set of open groups.
type Points struct {
	mu     sync.RWMutex
	groups []*Group
	logger *log.Logger
}

// New creates an empty set of extension points.
func New(logger *log.Logger) *Points {
	if logger == nil {
		logger = log.Default()
	}
	return &Points{logger: logger}
}

// Group opens a new group of contributions.
func (p *Points) Group() *Group {
	g := &Group{owner: p, points: make(map[reflect.Type][]any)}
	p.mu.Lock()
	p.groups = append(p.groups, g)
	p.mu.Unlock()
	return g
}

// Len returns the number of open groups.
func (p *Points) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.groups)
}

// Group holds the contributions of one owner.
type Group struct {
	owner  *Points
	mu     sync.RWMutex
	points map[reflect.Type][]any
}

// Close removes the group and all its contributions. It is idempotent.
func (g *Group) Close() error {
	p := g.owner
	p.mu.Lock()
	defer p.mu.Unlock()
	p.groups = slices.DeleteFunc(p.groups, func(x *Group) bool { return x == g })
	return nil
}

// Add contributes v as an extension of type T.
func Add[T any](g *Group, v T) *Group {
	t := reflect.TypeFor[T]()
	g.mu.Lock()
	g.points[t] = append(g.points[t], v)
	n := len(g.points[t])
	g.mu.Unlock()
	g.owner.logger.Debug("registered extension point", "type", t.String(), "count", n)
	return g
}

// Of returns the contributions of type T in this group.
func Of[T any](g *Group) []T {
	t := reflect.TypeFor[T]()
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]T, 0, len(g.points[t]))
	for _, v := range g.points[t] {
		out = append(out, v.(T))
	}
	return out
}

// List returns the contributions of type T across all open groups, ordered
// by weight and then by group and contribution order.
func List[T any](p *Points) []T {
	p.mu.RLock()
	groups := slices.Clone(p.groups)
	p.mu.RUnlock()

	var out []T
	for _, g := range groups {
		out = append(out, Of[T](g)...)
	}
	slices.SortStableFunc(out, func(a, b T) int {
		return weight(a) - weight(b)
	})
	return out
}

func weight(v any) int {
	if w, ok := v.(Weighted); ok {
		return w.Weight()
	}
	return 0
}
