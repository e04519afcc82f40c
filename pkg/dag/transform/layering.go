package transform

import "github.com/matzehuels/jenny/pkg/dag"

// Depths returns, for every node, the length of the longest requires chain
// below it: modules that require nothing have depth 0 and every module sits
// one level above its deepest dependency.
//
// Depths uses Kahn's algorithm over the reversed edges, so it runs in
// O(V + E). Nodes on a cycle never become ready and keep depth 0; run
// [BreakCycles] first when the graph may be cyclic.
func Depths(g *dag.DAG) map[string]int {
	nodes := g.Nodes()
	pending := make(map[string]int, len(nodes))
	depths := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))

	for _, n := range nodes {
		degree := g.OutDegree(n.ID)
		pending[n.ID] = degree
		if degree == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, parent := range g.Parents(curr) {
			if d := depths[curr] + 1; d > depths[parent] {
				depths[parent] = d
			}
			pending[parent]--
			if pending[parent] == 0 {
				queue = append(queue, parent)
			}
		}
	}

	return depths
}
