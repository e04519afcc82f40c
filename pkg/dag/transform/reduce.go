package transform

import "github.com/matzehuels/jenny/pkg/dag"

// TransitiveReduction removes edges implied by longer paths: if A requires B
// and B requires C, an explicit A requires C edge is dropped. Resolution
// order does not change, but exported graphs become readable. It returns
// the number of edges removed.
//
// The graph must be acyclic.
func TransitiveReduction(g *dag.DAG) int {
	var redundant [][2]string
	for _, n := range g.Nodes() {
		direct := g.Children(n.ID)
		for _, target := range direct {
			for _, via := range direct {
				if via != target && reaches(g, via, target) {
					redundant = append(redundant, [2]string{n.ID, target})
					break
				}
			}
		}
	}
	for _, e := range redundant {
		g.RemoveEdge(e[0], e[1])
	}
	return len(redundant)
}

func reaches(g *dag.DAG, from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range g.Children(curr) {
			if c == to {
				return true
			}
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}
