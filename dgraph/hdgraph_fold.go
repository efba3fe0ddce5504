package dgraph

import (
	"fmt"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/types"
)

// HdgraphFold moves a halo graph onto half of its processes, as FoldInfo does
// for plain graphs.
func HdgraphFold(h *Hdgraph, partval int) (fld *Hdgraph, err error) {
	var (
		fp      *FoldPlan
		fldComm *comm.Comm
		color   = comm.Undefined
	)
	if fp, err = FoldComm(&h.S, partval); err != nil {
		return
	}
	if fp.Survivor(h.S.ProcLocNum) {
		color = 0
	}
	if fldComm, err = h.S.Comm.Split(color, h.S.ProcLocNum); err != nil {
		return
	}
	if fld, err = HdgraphFold2(h, partval, fldComm); err != nil {
		if fldComm != nil {
			fldComm.Free()
		}
		return nil, err
	}
	if fld != nil {
		fld.S.Flags |= FlagFreeComm
	}
	return
}

/*
HdgraphFold2 folds a halo graph onto fldComm. Ordinary edges are renumbered
through the fold plan like those of plain graphs. Halo numbers only mean
something on the process that made them, so each incoming chunk, and the kept
vertices, get their own remapping table into the compact halo numbering of
the folded process.
*/
func HdgraphFold2(h *Hdgraph, partval int, fldComm *comm.Comm) (fld *Hdgraph, err error) {
	g := &h.S
	fp, err := FoldComm(g, partval)
	if err == nil {
		err = foldCheckSetup[int](g, fp, fldComm, nil)
	}
	if err = reduceError(g.Comm, err); err != nil {
		return
	}
	return hdgraphFoldExchange(h, fp, fldComm)
}

// hdgraphFoldExchange moves the chunks of a checked plan, with the send
// failures reduced over all processes before any receiver waits.
func hdgraphFoldExchange(h *Hdgraph, fp *FoldPlan, fldComm *comm.Comm) (fld *Hdgraph, err error) {
	g := &h.S
	var sndreqs []*comm.Request
	if fp.Role != RolePureReceiver {
		sndreqs, err = hdgraphFoldPost(h, fp)
	}
	if err = reduceError(g.Comm, err); err != nil {
		return nil, err
	}
	g.logf("halo fold role %v send %d receive %d", fp.Role, fp.SendNbr, fp.RecvNbr)
	if fp.Role == RolePureSender {
		err = comm.Waitall(sndreqs)
		return
	}
	fld, err = hdgraphFoldReceive(h, fp, fldComm)
	if e := comm.Waitall(sndreqs); e != nil && err == nil {
		err = e
	}
	if err = reduceError(fldComm, err); err != nil {
		return nil, err
	}
	if DebugChecks {
		if err = fld.Check(); err != nil {
			return nil, err
		}
	}
	return
}

// hdgraphFoldPost sends each chunk as vertex offsets over ordinary and halo
// edges, ordinary degrees, edges, loads, numbers and the sender's halo count.
func hdgraphFoldPost(h *Hdgraph, fp *FoldPlan) (reqs []*comm.Request, err error) {
	var (
		g      = &h.S
		base   = g.Base
		me     = g.ProcLocNum
		P      = g.ProcGlbNbr
		hasVel = g.Flags&FlagHasVelo != 0
	)
	post := func(buf []int, dst, kind int) {
		if err != nil {
			return
		}
		var r *comm.Request
		if r, err = comm.Isend(g.Comm, buf, dst, procTag(kind, P, me)); err == nil {
			reqs = append(reqs, r)
		}
	}
	for _, s := range fp.SendTab[:fp.SendNbr] {
		var (
			v1   = s.VertGlbMin - g.ProcVrtTab[me] + base
			v2   = v1 + s.VertNbr
			vert = make([]int, 0, s.VertNbr+1)
			vhnd = make([]int, 0, s.VertNbr)
			vnum = make([]int, 0, s.VertNbr)
			edge []int
			velo []int
		)
		for v := v1; v < v2; v++ {
			e1, e2 := g.VertLoc.At(v), h.VhndLoc.At(v)
			vert = append(vert, len(edge))
			vhnd = append(vhnd, g.VendLoc.At(v)-e1)
			edge = append(edge, g.EdgeLoc.Slice(e1, e2)...)
			if hasVel {
				velo = append(velo, g.vertexLoad(v))
			}
			vnum = append(vnum, g.vertexNum(v))
		}
		vert = append(vert, len(edge))
		post(vert, s.Proc, kindFoldVert)
		post(vhnd, s.Proc, kindFoldVhnd)
		post(edge, s.Proc, kindFoldEdge)
		if hasVel {
			post(velo, s.Proc, kindFoldVelo)
		}
		post(vnum, s.Proc, kindFoldVnum)
		post([]int{h.VhalLocNbr}, s.Proc, kindFoldVhal)
	}
	return
}

// halRemap maps the halo numbers of one process to folded halo numbers,
// allocating them on first use.
type halRemap struct {
	base   int
	tab    []int
	fldnbr *int
}

func (hr halRemap) get(w int) (int, error) {
	if w < hr.base || w >= hr.base+len(hr.tab) {
		return 0, fmt.Errorf("halo vertex %d outside [%d,%d): %w", w, hr.base, hr.base+len(hr.tab), ErrInvalidGraph)
	}
	if hr.tab[w-hr.base] < 0 {
		hr.tab[w-hr.base] = hr.base + *hr.fldnbr
		*hr.fldnbr++
	}
	return hr.tab[w-hr.base], nil
}

func newHalRemap(base, vhalnbr int, fldnbr *int) halRemap {
	tab := make([]int, vhalnbr)
	for i := range tab {
		tab[i] = -1
	}
	return halRemap{base: base, tab: tab, fldnbr: fldnbr}
}

func hdgraphFoldReceive(h *Hdgraph, fp *FoldPlan, fldComm *comm.Comm) (fld *Hdgraph, err error) {
	type recvReqs struct {
		vert, vhnd, edge, velo, vnum, vhal *comm.Request
	}
	var (
		g          = &h.S
		base       = g.Base
		P          = g.ProcGlbNbr
		hasVel     = g.Flags&FlagHasVelo != 0
		rreqs      = make([]recvReqs, fp.RecvNbr)
		vertlocnbr = fp.FldProcVrtTab[fp.FldProcNum+1] - fp.FldProcVrtTab[fp.FldProcNum]
		vert       = make([]int, 0, vertlocnbr)
		vend       = make([]int, 0, vertlocnbr)
		vhnd       = make([]int, 0, vertlocnbr)
		vnum       = make([]int, 0, vertlocnbr)
		edge       = make([]int, 0, g.EdgeLocSiz)
		velo       []int
		velosum    int
		edgenbr    int
		fldvhalnbr int
	)
	recv := func(src, kind int) (r *comm.Request) {
		if err == nil {
			r, err = comm.Irecv[int](g.Comm, nil, src, procTag(kind, P, src))
		}
		return
	}
	for j, s := range fp.RecvTab[:fp.RecvNbr] {
		rreqs[j].vert = recv(s.Proc, kindFoldVert)
		rreqs[j].vhnd = recv(s.Proc, kindFoldVhnd)
		rreqs[j].edge = recv(s.Proc, kindFoldEdge)
		if hasVel {
			rreqs[j].velo = recv(s.Proc, kindFoldVelo)
		}
		rreqs[j].vnum = recv(s.Proc, kindFoldVnum)
		rreqs[j].vhal = recv(s.Proc, kindFoldVhal)
	}

	// appendVertex adds one vertex from its ordinary and halo edges.
	appendVertex := func(nonhalo, halo []int, fldvhalloctax halRemap) {
		vert = append(vert, base+len(edge))
		for _, w := range nonhalo {
			edge = append(edge, fp.FoldVertex(w))
		}
		vend = append(vend, base+len(edge))
		edgenbr += len(nonhalo)
		for _, w := range halo {
			hw, e := fldvhalloctax.get(w)
			if e != nil && err == nil {
				err = e
			}
			edge = append(edge, hw)
		}
		vhnd = append(vhnd, base+len(edge))
	}

	own := newHalRemap(base, h.VhalLocNbr, &fldvhalnbr)
	for v := base; v < base+fp.KeepNbr; v++ {
		appendVertex(g.EdgeLoc.Slice(g.VertLoc.At(v), g.VendLoc.At(v)),
			g.EdgeLoc.Slice(g.VendLoc.At(v), h.VhndLoc.At(v)), own)
		if hasVel {
			velo = append(velo, g.vertexLoad(v))
			velosum += g.vertexLoad(v)
		}
		vnum = append(vnum, g.vertexNum(v))
	}

	wait := func(r *comm.Request, want int, what string) []int {
		if err != nil {
			return nil
		}
		if err = comm.Wait(r); err != nil {
			return nil
		}
		data := comm.Received[int](r)
		if want >= 0 && len(data) != want {
			err = fmt.Errorf("%s array of %d entries, expected %d: %w", what, len(data), want, ErrMessageLength)
			return nil
		}
		return data
	}
	for j, s := range fp.RecvTab[:fp.RecvNbr] {
		offs := wait(rreqs[j].vert, s.VertNbr+1, "vertex")
		degr := wait(rreqs[j].vhnd, s.VertNbr, "ordinary degree")
		vhal := wait(rreqs[j].vhal, 1, "halo count")
		if err != nil {
			break
		}
		chunk := wait(rreqs[j].edge, offs[s.VertNbr]-offs[0], "edge")
		if err != nil {
			break
		}
		fldvhalloctax := newHalRemap(base, vhal[0], &fldvhalnbr)
		for i := 0; i < s.VertNbr; i++ {
			e1, e2 := offs[i]-offs[0], offs[i+1]-offs[0]
			if degr[i] < 0 || degr[i] > e2-e1 {
				err = fmt.Errorf("ordinary degree %d over %d edges: %w", degr[i], e2-e1, ErrInvalidGraph)
				break
			}
			appendVertex(chunk[e1:e1+degr[i]], chunk[e1+degr[i]:e2], fldvhalloctax)
		}
		if hasVel {
			for _, l := range wait(rreqs[j].velo, s.VertNbr, "vertex load") {
				velo = append(velo, l)
				velosum += l
			}
		}
		vnum = append(vnum, wait(rreqs[j].vnum, s.VertNbr, "vertex number")...)
		if err != nil {
			break
		}
	}
	if err == nil && len(vert) != vertlocnbr {
		err = fmt.Errorf("folded %d vertices, planned %d: %w", len(vert), vertlocnbr, ErrInvalidGraph)
	}
	if err = reduceError(fldComm, err); err != nil {
		return nil, err
	}

	fld = &Hdgraph{
		S:          *Init(fldComm),
		VhalLocNbr: fldvhalnbr,
		VhndLoc:    types.Wrap(base, vhnd),
		EhalLocNbr: len(edge) - edgenbr,
		LevlNum:    h.LevlNum,
	}
	err = fld.S.Build4(BuildArrays{
		Base:       base,
		VertLocNbr: vertlocnbr,
		VertLoc:    types.Wrap(base, vert),
		VendLoc:    types.Wrap(base, vend),
		VeloLoc:    types.Wrap(base, velo),
		VnumLoc:    types.Wrap(base, vnum),
		VeloLocSum: velosum,
		EdgeLocNbr: edgenbr,
		EdgeLocSiz: len(edge),
		EdgeLoc:    types.Wrap(base, edge),
	})
	return
}
