// Package render draws module graphs as node-link diagrams.
//
// Convert a graph to DOT, then render to SVG with the in-process Graphviz
// from [github.com/goccy/go-graphviz]:
//
//	dot := render.ToDOT(g, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// The DOT output is bottom-to-top, so a module sits above what it requires.
// Modules the registry does not know are drawn dashed and grey; edges that
// close a requires cycle are drawn red and dashed.
package render
