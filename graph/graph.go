/*
Package graph holds the centralized graph: the whole vertex set in one
process, stored as based compressed adjacency arrays. Distributed graphs are
built from it, gathered into it and checked against it.
*/
package graph

import (
	"fmt"

	"github.com/notargets/gopart/types"
)

type Graph struct {
	Base    int
	VertNbr int
	VertNnd int
	Vert    types.Array[int] // Start of edge sub-array of each vertex
	Vend    types.Array[int] // End of edge sub-array of each vertex
	Velo    types.Array[int] // Vertex loads, absent means unit loads
	Vnum    types.Array[int] // Original vertex numbers, absent means identity
	Vlbl    types.Array[int] // Vertex labels
	VeloSum int
	EdgeNbr int
	Edge    types.Array[int]
	Edlo    types.Array[int] // Edge loads, absent means unit loads
	DegrMax int
}

/*
New builds a compact graph: vert holds VertNbr+1 based offsets into edge.
Optional arrays may be nil. The arrays are used in place, not copied.
*/
func New(base int, vert, velo, vnum, vlbl, edge, edlo []int) (g *Graph, err error) {
	if base != 0 && base != 1 {
		return nil, ErrBase
	}
	if len(vert) == 0 {
		return nil, fmt.Errorf("vertex array needs at least one entry: %w", ErrInvalidGraph)
	}
	nv := len(vert) - 1
	g = &Graph{
		Base:    base,
		VertNbr: nv,
		VertNnd: nv + base,
		Vert:    types.Wrap(base, vert[:nv]),
		Vend:    types.Wrap(base, vert[1:]),
		Velo:    types.Wrap(base, velo),
		Vnum:    types.Wrap(base, vnum),
		Vlbl:    types.Wrap(base, vlbl),
		EdgeNbr: vert[nv] - vert[0],
		Edge:    types.Wrap(base, edge),
		Edlo:    types.Wrap(base, edlo),
	}
	g.VeloSum = nv
	if g.Velo.Has() {
		g.VeloSum = 0
		for _, v := range velo {
			g.VeloSum += v
		}
	}
	for v := g.Base; v < g.VertNnd; v++ {
		if d := g.Vend.At(v) - g.Vert.At(v); d > g.DegrMax {
			g.DegrMax = d
		}
	}
	return
}

// VertexLoad returns the load of vertex v, 1 when loads are absent.
func (g *Graph) VertexLoad(v int) int {
	return types.IntArrayOf(g.Velo, v, 1)
}

// EdgeLoad returns the load of edge e, 1 when loads are absent.
func (g *Graph) EdgeLoad(e int) int {
	return types.IntArrayOf(g.Edlo, e, 1)
}

// VertexNumber returns the original number of vertex v.
func (g *Graph) VertexNumber(v int) int {
	return types.IntArrayOf(g.Vnum, v, v)
}

// EdgeKeys returns the undirected edge set of the graph in original vertex
// numbers, so that renumbered copies of a graph compare equal.
func (g *Graph) EdgeKeys() types.EdgeKeySet {
	keys := make([]types.EdgeKey, 0, g.EdgeNbr/2)
	for v := g.Base; v < g.VertNnd; v++ {
		vn := g.VertexNumber(v)
		for e := g.Vert.At(v); e < g.Vend.At(v); e++ {
			wn := g.VertexNumber(g.Edge.At(e))
			if vn < wn {
				keys = append(keys, types.NewEdgeKey([2]int{vn, wn}))
			}
		}
	}
	return types.NewEdgeKeySet(keys)
}
