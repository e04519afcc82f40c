package web

import (
	"github.com/matzehuels/jenny/pkg/registry"
	"github.com/matzehuels/jenny/pkg/webmodule/npm"
)

// Scope is what a decorator may look at while a page renders.
type Scope struct {
	Page    string
	Tx      Tx
	Modules *registry.Snapshot
}

// GlobalTemplateDecorator adds variables to every rendered page. Register
// one through [Web.Extensions]; decorators implementing xpoints.Weighted run
// in weight order, later ones overriding earlier ones.
type GlobalTemplateDecorator interface {
	Decorate(s Scope, vars Vars)
}

// DecoratorFunc adapts a function to [GlobalTemplateDecorator].
type DecoratorFunc func(s Scope, vars Vars)

func (f DecoratorFunc) Decorate(s Scope, vars Vars) { f(s, vars) }

// NpmDecorator exposes registered npm modules to templates:
//
//	npm.<name>          the module URI
//	npm.<name>.version  the package version
type NpmDecorator struct{}

func (NpmDecorator) Decorate(s Scope, vars Vars) {
	if s.Modules == nil {
		return
	}
	for _, m := range s.Modules.Modules() {
		name, ok := m.Meta(npm.MetaName)
		if !ok {
			continue
		}
		version, _ := m.Meta(npm.MetaVersion)
		vars["npm."+name] = m.URI()
		vars["npm."+name+".version"] = version
	}
}

// Weight places the npm variables before user decorators.
func (NpmDecorator) Weight() int { return -100 }
