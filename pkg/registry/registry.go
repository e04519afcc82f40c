// Package registry tracks the web modules registered by plugins and mounts
// them into the HTTP router.
//
// Registration is reference counted per module name: a module required by
// several plugins is mounted once, on the first registration, and unmounted
// when the last [Handle] that holds it is closed. Each module also gets a
// sequence number on first registration, which the resolver uses to order
// modules that do not depend on each other.
package registry

import (
	"errors"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/observability"
	"github.com/matzehuels/jenny/pkg/resolve"
	"github.com/matzehuels/jenny/pkg/router"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// Mounter is the HTTP routing host modules are mounted into.
type Mounter interface {
	Mount(pattern string, h router.Handler) error
	Unmount(pattern string)
}

type entry struct {
	module *webmodule.Module
	refs   int
	seq    uint64
}

// Registry is the process-wide set of registered modules. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	mounter Mounter
	logger  *log.Logger
	entries map[string]*entry
	nextSeq uint64
}

// New creates a registry mounting into m. A nil m skips mounting.
func New(m Mounter, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		mounter: m,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Register adds modules and everything they require. The returned handle
// releases exactly these registrations when closed.
func (r *Registry) Register(mods ...*webmodule.Module) (*Handle, error) {
	closure, err := r.closure(mods)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range closure {
		if e, ok := r.entries[m.Name()]; ok && !e.module.SameDefinition(m) {
			return nil, jerrors.Configuration("module %q is already registered at %q, cannot register it at %q",
				m.Name(), e.module.URI(), m.URI())
		}
	}

	var done []string
	for _, m := range closure {
		if err := r.acquire(m); err != nil {
			for _, name := range slices.Backward(done) {
				r.release(name)
			}
			return nil, err
		}
		done = append(done, m.Name())
	}

	h := &Handle{id: uuid.NewString(), registry: r, names: done}
	r.logger.Debug("registered modules", "handle", h.id, "modules", done)
	return h, nil
}

// closure expands the requires closure of mods in dependency order and
// rejects cycles.
func (r *Registry) closure(mods []*webmodule.Module) ([]*webmodule.Module, error) {
	byName := make(map[string]*webmodule.Module)
	var check func(m *webmodule.Module) error
	check = func(m *webmodule.Module) error {
		if m == nil {
			return jerrors.Configuration("nil module")
		}
		if err := jerrors.ValidateModuleName(m.Name()); err != nil {
			return err
		}
		have, ok := byName[m.Name()]
		if ok {
			if !have.SameDefinition(m) {
				return jerrors.Configuration("two definitions of module %q: %q and %q", m.Name(), have.URI(), m.URI())
			}
			return nil
		}
		byName[m.Name()] = m
		for _, dep := range m.Requires() {
			if err := check(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, m := range mods {
		if err := check(m); err != nil {
			return nil, err
		}
	}

	res := resolve.New(r, r.logger)
	g, _, err := res.Graph(mods)
	if err != nil {
		return nil, err
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	out := make([]*webmodule.Module, len(order))
	for i, name := range order {
		out[i] = byName[name]
	}
	return out, nil
}

// acquire must be called with mu held.
func (r *Registry) acquire(m *webmodule.Module) error {
	if e, ok := r.entries[m.Name()]; ok {
		e.refs++
		return nil
	}
	if r.mounter != nil && m.Mountable() {
		h, _ := m.Handler()
		if err := r.mounter.Mount(m.Pattern(), h); err != nil {
			if errors.Is(err, router.ErrDuplicateRoute) {
				return jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "module %q", m.Name())
			}
			return err
		}
		observability.Registry().OnMount(m.Name(), m.Pattern())
		r.logger.Debug("mounted module", "name", m.Name(), "pattern", m.Pattern())
	}
	r.nextSeq++
	r.entries[m.Name()] = &entry{module: m, refs: 1, seq: r.nextSeq}
	return nil
}

// release must be called with mu held.
func (r *Registry) release(name string) {
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(r.entries, name)
	if r.mounter != nil && e.module.Mountable() {
		r.mounter.Unmount(e.module.Pattern())
		observability.Registry().OnUnmount(name, e.module.Pattern())
		r.logger.Debug("unmounted module", "name", name, "pattern", e.module.Pattern())
	}
}

// Seq returns the registration sequence of name.
func (r *Registry) Seq(name string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.seq, true
	}
	return 0, false
}

// Lookup returns the registered module called name.
func (r *Registry) Lookup(name string) (*webmodule.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.module, true
	}
	return nil, false
}

// Refs returns the reference count of name.
func (r *Registry) Refs(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a consistent copy of the registry for one render.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := &Snapshot{
		seqs:    make(map[string]uint64, len(r.entries)),
		byName:  make(map[string]*webmodule.Module, len(r.entries)),
		modules: make([]*webmodule.Module, 0, len(r.entries)),
	}
	for name, e := range r.entries {
		s.seqs[name] = e.seq
		s.byName[name] = e.module
		s.modules = append(s.modules, e.module)
	}
	slices.SortFunc(s.modules, func(a, b *webmodule.Module) int {
		return compareSeq(s.seqs[a.Name()], s.seqs[b.Name()])
	})
	return s
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Snapshot is an immutable view of registered modules.
type Snapshot struct {
	seqs    map[string]uint64
	byName  map[string]*webmodule.Module
	modules []*webmodule.Module
}

// Seq returns the registration sequence of name.
func (s *Snapshot) Seq(name string) (uint64, bool) {
	seq, ok := s.seqs[name]
	return seq, ok
}

// Modules returns the registered modules in registration order.
func (s *Snapshot) Modules() []*webmodule.Module { return slices.Clone(s.modules) }

// Lookup returns the module called name.
func (s *Snapshot) Lookup(name string) (*webmodule.Module, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Handle releases one registration. Close is idempotent.
type Handle struct {
	id       string
	registry *Registry
	names    []string
	once     sync.Once
}

// ID identifies the registration in logs.
func (h *Handle) ID() string { return h.id }

// Modules returns the names this handle holds, dependencies first.
func (h *Handle) Modules() []string { return slices.Clone(h.names) }

// Close releases the registration, unmounting modules nobody else holds.
func (h *Handle) Close() error {
	h.once.Do(func() {
		r := h.registry
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, name := range slices.Backward(h.names) {
			r.release(name)
		}
		r.logger.Debug("released modules", "handle", h.id, "modules", h.names)
	})
	return nil
}
