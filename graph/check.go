package graph

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

/*
Adjacency returns the arc-load matrix of the graph, zero based. Each arc
(v, w) stores the load of its edge at row v, column w.
*/
func (g *Graph) Adjacency() *sparse.CSR {
	var (
		ia   = make([]int, g.VertNbr+1)
		ja   = make([]int, 0, g.EdgeNbr)
		data = make([]float64, 0, g.EdgeNbr)
	)
	for v := g.Base; v < g.VertNnd; v++ {
		for e := g.Vert.At(v); e < g.Vend.At(v); e++ {
			ja = append(ja, g.Edge.At(e)-g.Base)
			data = append(data, float64(g.EdgeLoad(e)))
		}
		ia[v-g.Base+1] = len(ja)
	}
	return sparse.NewCSR(g.VertNbr, g.VertNbr, ia, ja, data)
}

/*
Check verifies the structure of the graph: edge ranges, endpoint ranges,
absence of loops, cached sums, non-negative loads and arc symmetry with equal
edge loads on both arcs.
*/
func (g *Graph) Check() error {
	if g.Base != 0 && g.Base != 1 {
		return ErrBase
	}
	if g.VertNnd != g.VertNbr+g.Base {
		return fmt.Errorf("vertex end %d for %d vertices: %w", g.VertNnd, g.VertNbr, ErrInvalidGraph)
	}
	var (
		edgeNbr, veloSum, degrMax int
		edgeNnd                   = g.Edge.Nnd()
	)
	for v := g.Base; v < g.VertNnd; v++ {
		e1, e2 := g.Vert.At(v), g.Vend.At(v)
		if e1 < g.Base || e2 < e1 || e2 > edgeNnd {
			return fmt.Errorf("vertex %d has edge range [%d,%d): %w", v, e1, e2, ErrInvalidGraph)
		}
		for e := e1; e < e2; e++ {
			w := g.Edge.At(e)
			if w < g.Base || w >= g.VertNnd {
				return fmt.Errorf("edge %d of vertex %d ends at %d: %w", e, v, w, ErrInvalidGraph)
			}
			if w == v {
				return fmt.Errorf("loop on vertex %d: %w", v, ErrInvalidGraph)
			}
		}
		edgeNbr += e2 - e1
		if e2-e1 > degrMax {
			degrMax = e2 - e1
		}
		load := g.VertexLoad(v)
		if load < 0 {
			return fmt.Errorf("vertex %d has negative load %d: %w", v, load, ErrInvalidGraph)
		}
		veloSum += load
	}
	if edgeNbr != g.EdgeNbr {
		return fmt.Errorf("edge count %d, cached %d: %w", edgeNbr, g.EdgeNbr, ErrInvalidGraph)
	}
	if veloSum != g.VeloSum {
		return fmt.Errorf("vertex load sum %d, cached %d: %w", veloSum, g.VeloSum, ErrInvalidGraph)
	}
	if degrMax != g.DegrMax {
		return fmt.Errorf("maximum degree %d, cached %d: %w", degrMax, g.DegrMax, ErrInvalidGraph)
	}
	// Multiplicity and load of every ordered vertex pair, so duplicated arcs
	// have to be matched by as many reverse arcs
	type arcs struct{ count, load int }
	var (
		pairs = make(map[[2]int]arcs, g.EdgeNbr)
		bad   error
	)
	g.Adjacency().DoNonZero(func(i, j int, v float64) {
		a := pairs[[2]int{i, j}]
		a.count++
		a.load += int(v)
		pairs[[2]int{i, j}] = a
	})
	for p, a := range pairs {
		r := pairs[[2]int{p[1], p[0]}]
		if a != r {
			bad = fmt.Errorf("arc (%d,%d) appears %d time(s) with load %d, its reverse %d time(s) with load %d: %w",
				p[0]+g.Base, p[1]+g.Base, a.count, a.load, r.count, r.load, ErrInvalidGraph)
			break
		}
	}
	return bad
}
