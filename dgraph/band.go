package dgraph

import (
	"fmt"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/dlog"
	"github.com/notargets/gopart/types"
)

// AnchorVnum is the vertex number carried by anchor vertices of band graphs.
const AnchorVnum = -1

// BandInput describes the band to extract around the frontier of a two-way partition.
type BandInput struct {
	Frontier     []int             // Local vertices of the frontier
	Parts        []types.GraphPart // Part of each local vertex, from index 0 for Base
	CompLocLoad0 int               // Local load of part 0
	CompLocLoad1 int               // Local load of part 1
	DistMax      int               // Band width, at least 1
}

/*
BandGraph is the band extracted around a frontier. Band vertices are numbered
in breadth-first order from the frontier, followed on each process by the
anchors of part 0 and part 1, which stand for the vertices left out of the band.
*/
type BandGraph struct {
	Graph       *Dgraph
	Frontier    []int             // Frontier vertices in band numbering
	Parts       []types.GraphPart // Part of each band vertex, anchors included
	VertLvlNum  int               // First vertex of the last level
	VertLocNbr1 int               // Band vertices in part 1, anchors excluded
	AnchorBump  bool              // Anchor loads were raised by one
}

/*
bandLevels runs the level-synchronous breadth-first search of Band. Each
round restarts the persistent receives, drains the local queue of the current
level, ships remote neighbors to their owners and merges what the neighbors
ship back. It returns the local vertices in band order, the band index of each
local vertex (-1 outside) and the start of the last level.
*/
func (g *Dgraph) bandLevels(frontier []int, distmax int) (queue, stamp []int, vertlvlnum int, err error) {
	const (
		unseen = -1
		ghost  = -2
	)
	var (
		base       = g.Base
		dsp        = g.ghostRanges()
		procngbnbr = g.ProcNgbNbr
		rcvbufs    = make([][]int, procngbnbr)
		sndbufs    = make([][]int, procngbnbr)
		rcvreqs    = make([]*comm.Request, procngbnbr)
		sndreqs    = make([]*comm.Request, 0, procngbnbr)
	)
	stamp = make([]int, g.VertGstNbr)
	for i := range stamp {
		stamp[i] = unseen
	}
	queue = make([]int, 0, g.VertLocNbr)
	for _, v := range frontier {
		stamp[v-base] = base + len(queue)
		queue = append(queue, v)
	}
	for i, p := range g.ProcNgbTab {
		rcvbufs[i] = make([]int, g.ProcSndTab[p])
		sndbufs[i] = make([]int, 0, g.ProcRcvTab[p])
		if rcvreqs[i], err = comm.RecvInit(g.Comm, rcvbufs[i], p,
			procTag(kindBand, g.ProcGlbNbr, p)); err != nil {
			return
		}
	}
	defer func() {
		for _, r := range rcvreqs {
			if r != nil {
				r.Free()
			}
		}
	}()

	vertlvlnum = base
	for queuhead, distval := 0, 1; distval <= distmax; distval++ {
		if err = comm.Startall(rcvreqs); err != nil {
			return
		}
		vertlvlnum = base + len(queue)
		for queuend := len(queue); queuhead < queuend; queuhead++ {
			v := queue[queuhead]
			for e := g.VertLoc.At(v); e < g.VendLoc.At(v); e++ {
				w := g.EdgeGst.At(e)
				if stamp[w-base] != unseen {
					continue
				}
				if w < g.VertLocNnd {
					stamp[w-base] = base + len(queue)
					queue = append(queue, w)
					continue
				}
				stamp[w-base] = ghost
				i := ghostOwner(dsp, w)
				sndbufs[i] = append(sndbufs[i],
					g.EdgeLoc.At(e)-g.ProcVrtTab[g.ProcNgbTab[i]]+base)
			}
		}
		sndreqs = sndreqs[:0]
		for i, p := range g.ProcNgbTab {
			r, e := comm.Isend(g.Comm, sndbufs[i], p, procTag(kindBand, g.ProcGlbNbr, g.ProcLocNum))
			if e != nil {
				return nil, nil, 0, e
			}
			sndreqs = append(sndreqs, r)
			sndbufs[i] = sndbufs[i][:0]
		}
		for {
			i, e := comm.Waitany(rcvreqs)
			if e != nil {
				return nil, nil, 0, e
			}
			if i < 0 {
				break
			}
			for _, v := range rcvbufs[i][:rcvreqs[i].Count()] {
				if v < base || v >= g.VertLocNnd {
					return nil, nil, 0, fmt.Errorf("band vertex %d from rank %d is not local: %w",
						v, g.ProcNgbTab[i], ErrInvalidGraph)
				}
				if stamp[v-base] == unseen {
					stamp[v-base] = base + len(queue)
					queue = append(queue, v)
				}
			}
		}
		if err = comm.Waitall(sndreqs); err != nil {
			return
		}
	}
	for i := range stamp {
		if stamp[i] == ghost {
			stamp[i] = unseen
		}
	}
	return
}

/*
Band extracts the distributed band graph of the vertices at distance at most
DistMax of the frontier. DistMax is raised to 1 when smaller. Vertices of the
last level are linked to the anchor of their part, separator vertices to no
anchor, and same-part anchors of all processes form a clique. Anchor loads
make up for the vertices left out of the band; when either anchor load would
be zero, both are raised by one.
*/
func (g *Dgraph) Band(in BandInput) (bg *BandGraph, err error) {
	var (
		base    = g.Base
		distmax = max(in.DistMax, 1)
	)
	if err = g.Ghst(); err != nil {
		return
	}
	if len(in.Parts) < g.VertLocNbr {
		err = fmt.Errorf("%d parts for %d local vertices: %w", len(in.Parts), g.VertLocNbr, ErrPartArray)
	} else {
		seen := make(map[int]bool, len(in.Frontier))
		for _, v := range in.Frontier {
			if v < base || v >= g.VertLocNnd || seen[v] {
				err = fmt.Errorf("frontier vertex %d: %w", v, ErrFrontier)
				break
			}
			seen[v] = true
		}
	}
	if err = reduceError(g.Comm, err); err != nil {
		return
	}

	queue, stamp, vertlvlnum, err := g.bandLevels(in.Frontier, distmax)
	if err != nil {
		dlog.Errorf(dlog.Rankf(g.ProcLocNum, "band search: %v"), err)
	}
	if err = reduceError(g.Comm, err); err != nil {
		return
	}

	var (
		bandvertlocnbr = len(queue) + 2 // Anchors last
		bandvertlocnnd = base + bandvertlocnbr
		bandvrtcnt     []int
		bandvrttab     = make([]int, g.ProcGlbNbr+1)
	)
	if bandvrtcnt, err = comm.Allgather(g.Comm, []int{bandvertlocnbr}); err != nil {
		return
	}
	bandvrttab[0] = base
	for p, cnt := range bandvrtcnt {
		bandvrttab[p+1] = bandvrttab[p] + cnt
	}
	bandvertlocmin := bandvrttab[g.ProcLocNum]
	vnumgst := make([]int, g.VertGstNbr)
	for i := range vnumgst {
		vnumgst[i] = -1
		if i < g.VertLocNbr && stamp[i] >= base {
			vnumgst[i] = bandvertlocmin + stamp[i] - base
		}
	}
	if err = HaloSync(g, vnumgst); err != nil {
		return
	}

	var (
		hasEdlo       = g.Flags&FlagHasEdlo != 0
		anchors       = [2]int{bandvertlocnnd - 2, bandvertlocnnd - 1}
		anchorglb     = [2]int{bandvertlocmin + bandvertlocnbr - 2, bandvertlocmin + bandvertlocnbr - 1}
		anchorngb     [2][]int
		bandload      [2]int
		vert          = make([]int, bandvertlocnbr+1)
		edge          = make([]int, 0, g.EdgeLocNbr+2*g.ProcGlbNbr)
		edlo          []int
		velo          = make([]int, bandvertlocnbr)
		vnum          = make([]int, bandvertlocnbr)
		parts         = make([]types.GraphPart, bandvertlocnbr)
		vertlocnbr1   int
		appendArc     = func(w, load int) {
			edge = append(edge, w)
			if hasEdlo {
				edlo = append(edlo, load)
			}
		}
	)
	vert[0] = base
	for i, v := range queue {
		bv := base + i
		part := in.Parts[v-base]
		for e := g.VertLoc.At(v); e < g.VendLoc.At(v); e++ {
			if w := vnumgst[g.EdgeGst.At(e)-base]; w >= 0 {
				appendArc(w, g.edgeLoad(e))
			}
		}
		if side := part.Side(); side >= 0 {
			bandload[side] += g.vertexLoad(v)
			if bv >= vertlvlnum {
				appendArc(anchorglb[side], 1)
				anchorngb[side] = append(anchorngb[side], bandvertlocmin+i)
			}
		}
		if part == types.Part1 {
			vertlocnbr1++
		}
		vert[i+1] = base + len(edge)
		velo[i] = g.vertexLoad(v)
		vnum[i] = g.vertexNum(v)
		parts[i] = part
	}

	anchorload := [2]int{in.CompLocLoad0 - bandload[0], in.CompLocLoad1 - bandload[1]}
	if anchorload[0] < 0 || anchorload[1] < 0 {
		err = fmt.Errorf("side loads %d/%d below band loads %d/%d: %w",
			in.CompLocLoad0, in.CompLocLoad1, bandload[0], bandload[1], ErrAnchorLoad)
	}
	bump := anchorload[0] == 0 || anchorload[1] == 0
	if bump {
		anchorload[0]++
		anchorload[1]++
	}
	for side, av := range anchors {
		i := av - base
		for p := 0; p < g.ProcGlbNbr; p++ {
			if p != g.ProcLocNum {
				appendArc(bandvrttab[p+1]-2+side, 1)
			}
		}
		for _, w := range anchorngb[side] {
			appendArc(w, 1)
		}
		vert[i+1] = base + len(edge)
		velo[i] = anchorload[side]
		vnum[i] = AnchorVnum
		parts[i] = types.GraphPart(side)
	}
	if err = reduceError(g.Comm, err); err != nil {
		return
	}

	bg = &BandGraph{
		Graph:       Init(g.Comm),
		Frontier:    make([]int, len(in.Frontier)),
		Parts:       parts,
		VertLvlNum:  vertlvlnum,
		VertLocNbr1: vertlocnbr1,
		AnchorBump:  bump,
	}
	for i := range bg.Frontier {
		bg.Frontier[i] = base + i
	}
	err = bg.Graph.Build(base, vert, velo, vnum, nil, edge, edlo)
	if err == nil && DebugChecks {
		err = bg.Graph.Check()
	}
	if err != nil {
		return nil, err
	}
	g.logf("band vertices %d last level %d anchors %d/%d",
		bandvertlocnbr-2, bandvertlocnbr-2-(vertlvlnum-base), anchorload[0], anchorload[1])
	return
}
