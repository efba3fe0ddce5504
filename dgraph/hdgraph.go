package dgraph

import (
	"fmt"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/types"
)

/*
Hdgraph is a distributed graph with halo. The embedded graph's VendLoc ends
the ordinary edges of each vertex; the halo edges that follow, up to VhndLoc,
lead to halo vertices, which are not part of the graph and are numbered per
process in [Base, Base+VhalLocNbr). Halo graphs carry no edge loads.
*/
type Hdgraph struct {
	S          Dgraph
	VhalLocNbr int
	VhndLoc    types.Array[int]
	EhalLocNbr int
	LevlNum    int // Nested dissection level
}

// Exit releases the graph and, when it owns it, its communicator.
func (h *Hdgraph) Exit() {
	h.S.Exit()
	*h = Hdgraph{}
}

/*
InduceHalo builds the halo graph induced by the vertices of part partval.
Edges to vertices of other parts become halo edges, the distinct ends of which
are numbered in order of first appearance. parts holds the part of each local
vertex from index 0 for Base.
*/
func (g *Dgraph) InduceHalo(parts []types.GraphPart, partval types.GraphPart) (h *Hdgraph, err error) {
	if err = g.Ghst(); err != nil {
		return
	}
	if len(parts) < g.VertLocNbr {
		err = fmt.Errorf("%d parts for %d local vertices: %w", len(parts), g.VertLocNbr, ErrPartArray)
	}
	if err = reduceError(g.Comm, err); err != nil {
		return
	}
	var (
		base       = g.Base
		indlocnbr  int
		indcnttab  []int
		indvertmin = base
		indgst     = make([]int, g.VertGstNbr)
	)
	for v := base; v < g.VertLocNnd; v++ {
		if parts[v-base] == partval {
			indlocnbr++
		}
	}
	if indcnttab, err = comm.Allgather(g.Comm, []int{indlocnbr}); err != nil {
		return
	}
	for _, cnt := range indcnttab[:g.ProcLocNum] {
		indvertmin += cnt
	}
	for i := range indgst {
		indgst[i] = -1
		if i < g.VertLocNbr && parts[i] == partval {
			indgst[i] = indvertmin
			indvertmin++
		}
	}
	if err = HaloSync(g, indgst); err != nil {
		return
	}

	var (
		hasVel  = g.Flags&FlagHasVelo != 0
		vert    = make([]int, 0, indlocnbr)
		vend    = make([]int, 0, indlocnbr)
		vhnd    = make([]int, 0, indlocnbr)
		edge    = make([]int, 0, g.EdgeLocNbr)
		halo    []int
		velo    []int
		vnum    = make([]int, 0, indlocnbr)
		halnum  = make(map[int]int)
		edgenbr int
	)
	for v := base; v < g.VertLocNnd; v++ {
		if parts[v-base] != partval {
			continue
		}
		vert = append(vert, base+len(edge))
		halo = halo[:0]
		for e := g.VertLoc.At(v); e < g.VendLoc.At(v); e++ {
			if w := indgst[g.EdgeGst.At(e)-base]; w >= 0 {
				edge = append(edge, w)
				continue
			}
			w := g.EdgeLoc.At(e)
			hw, ok := halnum[w]
			if !ok {
				hw = base + len(halnum)
				halnum[w] = hw
			}
			halo = append(halo, hw)
		}
		vend = append(vend, base+len(edge))
		edgenbr += vend[len(vend)-1] - vert[len(vert)-1]
		edge = append(edge, halo...)
		vhnd = append(vhnd, base+len(edge))
		if hasVel {
			velo = append(velo, g.vertexLoad(v))
		}
		vnum = append(vnum, g.vertexNum(v))
	}

	h = &Hdgraph{
		S:          *Init(g.Comm),
		VhalLocNbr: len(halnum),
		VhndLoc:    types.Wrap(base, vhnd),
		EhalLocNbr: len(edge) - edgenbr,
	}
	if err = h.S.Build4(BuildArrays{
		Base:       base,
		VertLocNbr: indlocnbr,
		VertLoc:    types.Wrap(base, vert),
		VendLoc:    types.Wrap(base, vend),
		VeloLoc:    types.Wrap(base, velo),
		VnumLoc:    types.Wrap(base, vnum),
		EdgeLocNbr: edgenbr,
		EdgeLocSiz: len(edge),
		EdgeLoc:    types.Wrap(base, edge),
	}); err != nil {
		return nil, err
	}
	if DebugChecks {
		if err = h.Check(); err != nil {
			return nil, err
		}
	}
	g.logf("halo graph of part %v: %d vertices %d halo vertices", partval, indlocnbr, h.VhalLocNbr)
	return
}

// Check verifies the embedded graph, then the halo edges of every process.
func (h *Hdgraph) Check() error {
	if err := h.S.Check(); err != nil {
		return err
	}
	return reduceError(h.S.Comm, h.checkHalo())
}

func (h *Hdgraph) checkHalo() error {
	var (
		g       = &h.S
		base    = g.Base
		ehalnbr int
	)
	if g.VertLocNbr > 0 && h.VhndLoc.Len() < g.VertLocNbr {
		return fmt.Errorf("halo end array of %d entries for %d vertices: %w",
			h.VhndLoc.Len(), g.VertLocNbr, ErrInvalidGraph)
	}
	for v := base; v < g.VertLocNnd; v++ {
		e1, e2 := g.VendLoc.At(v), h.VhndLoc.At(v)
		if e2 < e1 || e2 > base+g.EdgeLocSiz {
			return fmt.Errorf("vertex %d has halo edge range [%d,%d): %w", v, e1, e2, ErrInvalidGraph)
		}
		for e := e1; e < e2; e++ {
			if w := g.EdgeLoc.At(e); w < base || w >= base+h.VhalLocNbr {
				return fmt.Errorf("halo edge %d of vertex %d ends at %d: %w", e, v, w, ErrInvalidGraph)
			}
		}
		ehalnbr += e2 - e1
	}
	if ehalnbr != h.EhalLocNbr {
		return fmt.Errorf("halo edge count %d, recomputed %d: %w", h.EhalLocNbr, ehalnbr, ErrInvalidGraph)
	}
	return nil
}
