package dgraph

import (
	"fmt"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/graph"
	"github.com/notargets/gopart/types"
	"github.com/notargets/gopart/utils"
)

/*
Scatter distributes a centralized graph, process p receiving the p-th
balanced slice of the vertex numbering. Every process passes the same graph,
or at least one with the same vertex count and base; the centralized graph's
vertex numbers, when present, become the distributed vertex numbers.
*/
func Scatter(c *comm.Comm, cg *graph.Graph) (g *Dgraph, err error) {
	g = Init(c)
	if cg == nil {
		err = fmt.Errorf("scatter of nil graph: %w", ErrInvalidGraph)
	}
	if err = reduceError(c, err); err != nil {
		return
	}
	var (
		base = cg.Base
		pm   = utils.NewPartitionMap(c.Size(), cg.VertNbr)
	)
	pm.Base = base
	rng := pm.Split1D(c.Rank())
	var (
		vertlocnbr = rng[1] - rng[0]
		vert       = make([]int, vertlocnbr+1)
		edge       []int
		edlo       []int
		velo, vnum []int
		vlbl       []int
	)
	vert[0] = base
	for v := rng[0]; v < rng[1]; v++ {
		e1, e2 := cg.Vert.At(v), cg.Vend.At(v)
		edge = append(edge, cg.Edge.Slice(e1, e2)...)
		if cg.Edlo.Has() {
			edlo = append(edlo, cg.Edlo.Slice(e1, e2)...)
		}
		vert[v-rng[0]+1] = base + len(edge)
	}
	if cg.Velo.Has() {
		velo = append(velo, cg.Velo.Slice(rng[0], rng[1])...)
	}
	if cg.Vnum.Has() {
		vnum = append(vnum, cg.Vnum.Slice(rng[0], rng[1])...)
	}
	if cg.Vlbl.Has() {
		vlbl = append(vlbl, cg.Vlbl.Slice(rng[0], rng[1])...)
	}
	err = g.Build(base, vert, velo, vnum, vlbl, edge, edlo)
	return
}

/*
Gather assembles the whole graph on every process, vertices in global
numbering order. Vertex numbers are carried when any process has them, with
global numbers filling in for processes that have none.
*/
func (g *Dgraph) Gather() (cg *graph.Graph, err error) {
	var (
		base = g.Base
		degr = make([]int, g.VertLocNbr)
		edge = make([]int, 0, g.EdgeLocNbr)
		edlo []int
		velo []int
		vnum []int
		vlbl []int
	)
	for v := base; v < g.VertLocNnd; v++ {
		e1, e2 := g.VertLoc.At(v), g.VendLoc.At(v)
		degr[v-base] = e2 - e1
		edge = append(edge, g.EdgeLoc.Slice(e1, e2)...)
		if g.Flags&FlagHasEdlo != 0 {
			for e := e1; e < e2; e++ {
				edlo = append(edlo, g.edgeLoad(e))
			}
		}
		if g.Flags&FlagHasVelo != 0 {
			velo = append(velo, g.vertexLoad(v))
		}
		if g.Flags&FlagHasVnum != 0 {
			vnum = append(vnum, g.vertexNum(v))
		}
		if g.Flags&FlagHasVlbl != 0 {
			vlbl = append(vlbl, types.IntArrayOf(g.VlblLoc, v, 0))
		}
	}
	var (
		all  = make([][][]int, 6)
		locs = [][]int{degr, edge, edlo, velo, vnum, vlbl}
	)
	for i, loc := range locs {
		if all[i], err = comm.Allgatherv(g.Comm, loc); err != nil {
			return
		}
	}
	flat := func(parts [][]int) (out []int) {
		for _, part := range parts {
			out = append(out, part...)
		}
		return
	}
	var (
		degrGlb = flat(all[0])
		vert    = make([]int, len(degrGlb)+1)
	)
	vert[0] = base
	for i, d := range degrGlb {
		vert[i+1] = vert[i] + d
	}
	cg, err = graph.New(base, vert, flat(all[3]), flat(all[4]), flat(all[5]),
		flat(all[1]), flat(all[2]))
	return
}
