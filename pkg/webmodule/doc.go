// Package webmodule defines web modules: named bundles of JS, CSS and other
// assets that pages require, together with the modules they depend on.
//
// # Resources
//
// A [Resource] is one asset. Its content comes from exactly one source: a
// file in an [io/fs.FS], an inline string, or a [router.Handler]. Its [Kind]
// decides how it is emitted (stylesheet, classic script, ES module, module
// exposed through the import map, or not at all) and is inferred from the
// path extension when not given. Its [Placement] decides the page region.
//
// # Modules
//
// A [Module] is built with a [Builder]:
//
//	jq := webmodule.Must(webmodule.JS("/js/jquery.js", assets, "jquery.js"))
//	bs := webmodule.Must(webmodule.NewBuilder().
//		WithName("bootstrap").
//		WithURI("/npm/bootstrap/5.3.3/").
//		WithResources(
//			webmodule.Ref(dist, "css/bootstrap.min.css"),
//			webmodule.Ref(dist, "js/bootstrap.bundle.min.js"),
//		).
//		WithRequires(jq).
//		Build())
//
// The [Mount] controls how the module is exposed over HTTP:
//
//   - [MountFile] serves its single resource at the module URI.
//   - [MountDirectory] serves resources below the URI by relative path.
//   - [MountContent] has no URI; resources render inline.
//   - [MountURL] points at an external base URL such as a CDN.
//
// Modules are identified by name. Without an explicit name the route
// pattern is used, which is the URI with regex metacharacters escaped.
package webmodule
