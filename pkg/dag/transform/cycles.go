package transform

import "github.com/matzehuels/jenny/pkg/dag"

// BackEdges returns the edges that close a cycle, found with a white/gray/black
// depth-first search starting from the sources and then from every remaining
// node in (Seq, insertion) order. The graph is not modified.
func BackEdges(g *dag.DAG) [][2]string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var backEdges [][2]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		for _, child := range g.Children(node) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				backEdges = append(backEdges, [2]string{node, child})
			}
		}
		color[node] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	return backEdges
}

// BreakCycles removes every back edge found by [BackEdges] and returns how
// many edges were removed. The graph exporters use it to draw a cyclic
// manifest instead of refusing it.
func BreakCycles(g *dag.DAG) int {
	backEdges := BackEdges(g)
	for _, e := range backEdges {
		g.RemoveEdge(e[0], e[1])
	}
	return len(backEdges)
}
