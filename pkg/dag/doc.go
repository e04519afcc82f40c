// Package dag provides the directed graph behind web module resolution.
//
// # Overview
//
// Every web module is a node and every "requires" relationship is an edge
// from the dependent module to its dependency. The resolver builds one graph
// per page render from the modules the page asked for, then asks the graph
// for a topological order in which every dependency precedes the modules
// that need it.
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "bootstrap", Seq: 2})
//	g.AddNode(dag.Node{ID: "jquery", Seq: 1})
//	g.AddEdge(dag.Edge{From: "bootstrap", To: "jquery"})
//	order, err := g.TopoSort() // [jquery bootstrap]
//
// # Determinism
//
// Pages must be byte-reproducible, so nothing in this package depends on map
// iteration order. [DAG.TopoSort] is Kahn's algorithm driven by a min-heap
// keyed on [Node.Seq] (the module's registration sequence) with insertion
// order as the final tie-break. [DAG.Nodes], [DAG.Sources] and [DAG.Sinks]
// return nodes in the same order.
//
// # Cycles
//
// Cycles are detected with a depth-first search using white/gray/black
// coloring. [DAG.TopoSort] and [DAG.Validate] fail with an error that wraps
// both [ErrGraphHasCycle] and a *errors.CycleError listing the cycle members,
// so callers can match either the sentinel or the error code.
//
// # Metadata
//
// Both nodes and the graph itself support arbitrary metadata via [Metadata] maps.
// The module graph stores mount type, URI and resource counts there for the
// graph exporters.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. The resolver builds a fresh
// graph per render, so no sharing happens in practice.
//
// # Related Packages
//
// The [transform] subpackage provides transitive reduction and back-edge
// detection used by the graph export commands.
//
// [transform]: github.com/matzehuels/jenny/pkg/dag/transform
package dag
