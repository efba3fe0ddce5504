package graph

import (
	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Undirected returns the graph as a gonum undirected graph whose node IDs are
// the zero based vertex indices.
func (g *Graph) Undirected() *simple.UndirectedGraph {
	ug := simple.NewUndirectedGraph()
	for v := g.Base; v < g.VertNnd; v++ {
		ug.AddNode(simple.Node(v - g.Base))
	}
	for v := g.Base; v < g.VertNnd; v++ {
		for e := g.Vert.At(v); e < g.Vend.At(v); e++ {
			if w := g.Edge.At(e); w != v {
				ug.SetEdge(simple.Edge{F: simple.Node(v - g.Base), T: simple.Node(w - g.Base)})
			}
		}
	}
	return ug
}

// Components returns the number of connected components.
func (g *Graph) Components() int {
	return len(topo.ConnectedComponents(g.Undirected()))
}

// Distances returns, for each based vertex, its hop distance to the closest
// source vertex, or -1 when it cannot be reached within distmax hops.
func (g *Graph) Distances(sources []int, distmax int) (dist []int) {
	var (
		ug = g.Undirected()
		bf traverse.BreadthFirst
	)
	dist = make([]int, g.VertNbr)
	for i := range dist {
		dist[i] = -1
	}
	for _, s := range sources {
		bf.Reset()
		bf.Walk(ug, simple.Node(s-g.Base), func(n gograph.Node, d int) bool {
			if d > distmax {
				return true
			}
			if id := n.ID(); dist[id] < 0 || d < dist[id] {
				dist[id] = d
			}
			return false
		})
	}
	return
}
