// Package pkg provides the libraries behind Jenny, a host for web modules.
//
// # Overview
//
// A web module is a named bundle of page assets (stylesheets, classic
// scripts, ES modules, fonts) that may require other modules. Jenny mounts
// modules over HTTP and renders pages that include exactly the modules a
// request asked for, dependencies first, each module once, with a
// synthesized import map when ES modules are exposed by bare specifier.
//
// # Architecture
//
// The flow of one page render:
//
//	handler calls web.Require(ctx, modules...)
//	         ↓
//	    [resolve] requires closure in dependency order
//	         ↓
//	    [importmap] one import map for every imported ES module
//	         ↓
//	    [emit] head, bodyhead and bodytail tags
//	         ↓
//	    [web] page template with the tags and template variables
//
// Registering a module mounts it into the [router] through the [registry];
// closing the registration handle unmounts it again.
//
// # Quick Start
//
//	w := web.New(web.WithGlobalModules("theme"))
//	jquery := webmodule.Must(webmodule.JS("/js/jquery.js", assets, "jquery.js"))
//	bootstrap := webmodule.Must(webmodule.JS("/js/bootstrap.js", assets, "bootstrap.js", jquery))
//	if _, err := w.RegisterModules(bootstrap); err != nil {
//	    return err
//	}
//	w.Handle("/", http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
//	    _ = web.Require(r.Context(), bootstrap)
//	    w.Page("index.html", nil)(rw, r)
//	}))
//	http.ListenAndServe(":8080", w.Handler())
//
// # Main Packages
//
// ## Modules
//
// [webmodule] - Resources, modules, the module builder and the HTTP handler
// of each mount type (file, directory, content, URL).
//
// [webmodule/npm] - Modules built from npm packages, either a package
// directory on disk or a published version served from a CDN.
//
// [manifest] - Site manifests declaring modules, npm directories and CDN
// packages in TOML or YAML.
//
// ## Rendering
//
// [resolve], [importmap], [emit] - The three stages of the asset pipeline.
//
// [pipeline] - Runs the stages for a page, plus the graph pipeline that draws
// requires graphs as JSON, DOT or SVG.
//
// [dag], [dag/transform] - The requires graph, topological ordering, cycle
// detection and transitive reduction.
//
// ## Hosting
//
// [registry], [router] - Reference-counted registration and the dynamic
// router modules are mounted into.
//
// [web] - The web plugin: render scopes, page templates, decorators and the
// HTTP handler.
//
// [plugin], [xpoints] - Plugin lifecycle under a supervisor, and extension
// points plugins contribute to.
//
// ## Infrastructure
//
// [config] - Layered configuration (defaults, file, environment) with reload.
//
// [cache] - File, Redis and null caches for npm registry data.
//
// [integrations] - HTTP client shared by the npm registry client.
//
// [metrics], [observability] - Prometheus collectors behind observability
// hooks.
//
// [errors] - Error codes used across every package.
//
// [webmodule]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/webmodule
// [webmodule/npm]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/webmodule/npm
// [manifest]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/manifest
// [resolve]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/resolve
// [importmap]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/importmap
// [emit]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/emit
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/pipeline
// [dag]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/dag/transform
// [registry]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/registry
// [router]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/router
// [web]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/web
// [plugin]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/plugin
// [xpoints]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/xpoints
// [config]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/cache
// [integrations]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/integrations
// [metrics]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/metrics
// [observability]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/jenny/pkg/errors
package pkg
