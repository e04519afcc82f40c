package transform_test

import (
	"fmt"

	"github.com/matzehuels/jenny/pkg/dag"
	"github.com/matzehuels/jenny/pkg/dag/transform"
)

func ExampleTransitiveReduction() {
	// table requires bootstrap and jquery; bootstrap already requires jquery
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "table"})
	_ = g.AddNode(dag.Node{ID: "bootstrap"})
	_ = g.AddNode(dag.Node{ID: "jquery"})
	_ = g.AddEdge(dag.Edge{From: "table", To: "bootstrap"})
	_ = g.AddEdge(dag.Edge{From: "table", To: "jquery"})
	_ = g.AddEdge(dag.Edge{From: "bootstrap", To: "jquery"})

	removed := transform.TransitiveReduction(g)
	fmt.Println("Removed:", removed)
	fmt.Println("table requires:", g.Children("table"))
	// Output:
	// Removed: 1
	// table requires: [bootstrap]
}

func ExampleDepths() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "table"})
	_ = g.AddNode(dag.Node{ID: "bootstrap"})
	_ = g.AddNode(dag.Node{ID: "jquery"})
	_ = g.AddEdge(dag.Edge{From: "table", To: "bootstrap"})
	_ = g.AddEdge(dag.Edge{From: "bootstrap", To: "jquery"})

	d := transform.Depths(g)
	fmt.Println(d["jquery"], d["bootstrap"], d["table"])
	// Output:
	// 0 1 2
}

func ExampleBreakCycles() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "a"})
	_ = g.AddNode(dag.Node{ID: "b"})
	_ = g.AddEdge(dag.Edge{From: "a", To: "b"})
	_ = g.AddEdge(dag.Edge{From: "b", To: "a"})

	fmt.Println("Removed:", transform.BreakCycles(g))
	fmt.Println("Valid:", g.Validate() == nil)
	// Output:
	// Removed: 1
	// Valid: true
}
