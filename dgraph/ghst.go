package dgraph

import (
	"fmt"
	"sort"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/types"
	"github.com/notargets/gopart/utils"
)

type ghostArc struct {
	vert int // Global end vertex
	edge int // Arc index
}

/*
Ghst computes the ghost edge array and the neighbor tables. Non-local end
vertices become ghosts numbered from VertLocNnd on, grouped by owning process
in ascending rank order and by ascending global number within a process.

ProcSidTab drives the halo senders: scanning local vertices from Base, a
negative entry -n advances the current vertex by n, a non-negative entry is
the index in ProcNgbTab of a neighbor to which the current vertex is sent.

Calling Ghst again is a no-op until InvalidateGhst.
*/
func (g *Dgraph) Ghst() (err error) {
	if g.Flags&FlagHasEdgeGst != 0 {
		return
	}
	var (
		base       = g.Base
		procglbnbr = g.ProcGlbNbr
		vertlocmin = g.ProcVrtTab[g.ProcLocNum]
		vertlocmax = g.ProcVrtTab[g.ProcLocNum+1]
		vertlocadj = vertlocmin - base
		search     = utils.NewOwnerSearch(g.owners)
		sndtab     = make([]int, procglbnbr)
		rcvtab     = make([]int, procglbnbr)
		vertsidtab = make([]int, procglbnbr) // Last vertex sent to each process
		sidtab     = make([]int, 0, g.VertLocNbr)
		vertsidnum = base
		arcs       []ghostArc
		edgegst    = g.EdgeGst
	)
	if edgegst.Len() != g.EdgeLocSiz {
		edgegst = types.NewArray[int](base, g.EdgeLocSiz)
	}
	for p := range vertsidtab {
		vertsidtab[p] = base - 1
	}
scan:
	for v := base; v < g.VertLocNnd; v++ {
		for e := g.VertLoc.At(v); e < g.VendLoc.At(v); e++ {
			w := g.EdgeLoc.At(e)
			if w >= vertlocmin && w < vertlocmax {
				edgegst.Set(e, w-vertlocadj)
				continue
			}
			p := search.Owner(w)
			if p < 0 {
				err = fmt.Errorf("edge %d of vertex %d ends at %d, outside [%d,%d): %w",
					e, v, w, base, g.ProcVrtTab[procglbnbr], ErrInvalidGraph)
				break scan
			}
			if vertsidtab[p] != v {
				vertsidtab[p] = v
				sndtab[p]++
				if v != vertsidnum {
					sidtab = append(sidtab, vertsidnum-v)
					vertsidnum = v
				}
				sidtab = append(sidtab, p)
			}
			arcs = append(arcs, ghostArc{vert: w, edge: e})
		}
	}

	var (
		vertgstnnd = g.VertLocNnd
		procngbnbr int
		procgstmax int
		ngbidx     = make([]int, procglbnbr)
	)
	if err == nil {
		sort.Slice(arcs, func(i, j int) bool { return arcs[i].vert < arcs[j].vert })
		var (
			vertlast = base - 1
			procnum  = -1
			procmax  = base - 1 // End of current neighbor's range
		)
		for _, arc := range arcs {
			if arc.vert != vertlast {
				vertlast = arc.vert
				if arc.vert >= procmax {
					procnum = search.Owner(arc.vert)
					procmax = g.ProcVrtTab[procnum+1]
				}
				rcvtab[procnum]++
				vertgstnnd++
			}
			edgegst.Set(arc.edge, vertgstnnd-1)
		}
		for p := 0; p < procglbnbr; p++ {
			ngbidx[p] = -1
			if sndtab[p] == 0 && rcvtab[p] == 0 {
				continue
			}
			ngbidx[p] = procngbnbr
			procngbnbr++
			procgstmax = max(procgstmax, sndtab[p], rcvtab[p])
		}
		for i, s := range sidtab {
			if s >= 0 {
				sidtab[i] = ngbidx[s]
			}
		}
	}

	errmax := []int{0, procngbnbr, procgstmax}
	if err != nil {
		errmax[0] = 1
	}
	if e := comm.Allreduce(g.Comm, errmax, comm.OpMax); e != nil {
		return e
	}
	if errmax[0] != 0 {
		if err == nil {
			err = ErrPeerFailure
		}
		return
	}

	g.ProcNgbTab = make([]int, 0, procngbnbr)
	for p := 0; p < procglbnbr; p++ {
		if ngbidx[p] >= 0 {
			g.ProcNgbTab = append(g.ProcNgbTab, p)
		}
	}
	g.ProcNgbNbr = procngbnbr
	g.ProcNgbMax = errmax[1]
	g.ProcGstMax = errmax[2]
	g.ProcRcvTab = rcvtab
	g.ProcSndTab = sndtab
	g.ProcSidTab = sidtab
	g.VertGstNbr = vertgstnnd - base
	g.VertGstNnd = vertgstnnd
	g.EdgeGst = edgegst
	g.Flags |= FlagHasEdgeGst
	g.logf("ghosts %d neighbors %d", g.VertGstNbr-g.VertLocNbr, procngbnbr)
	return
}

// ghostRanges returns, for each neighbor index, the start of its ghost range
// followed by the end of the last one.
func (g *Dgraph) ghostRanges() []int {
	dsp := make([]int, g.ProcNgbNbr+1)
	dsp[0] = g.VertLocNnd
	for i, p := range g.ProcNgbTab {
		dsp[i+1] = dsp[i] + g.ProcRcvTab[p]
	}
	return dsp
}

// ghostOwner returns the neighbor index owning ghost vertex w.
func ghostOwner(dsp []int, w int) int {
	return sort.SearchInts(dsp[1:], w+1)
}
