package dgraph

import (
	"fmt"
	"slices"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/types"
)

// Fold moves g onto half of its processes, see FoldInfo.
func (g *Dgraph) Fold(partval int) (*Dgraph, error) {
	fld, _, err := FoldInfo[int](g, partval, nil)
	return fld, err
}

/*
FoldInfo moves g onto the first ceil(P/2) processes (partval 0) or the last
floor(P/2) ones (partval 1), carrying along the per-vertex values of info when
info is not nil. Every process must pass an info array or none. Surviving
processes get the folded graph, which owns a new communicator, and their share
of info; the other processes get nil.
*/
func FoldInfo[T any](g *Dgraph, partval int, info []T) (fld *Dgraph, fldinfo []T, err error) {
	var (
		fp      *FoldPlan
		fldComm *comm.Comm
		color   = comm.Undefined
	)
	if fp, err = FoldComm(g, partval); err != nil {
		return
	}
	if fp.Survivor(g.ProcLocNum) {
		color = 0
	}
	if fldComm, err = g.Comm.Split(color, g.ProcLocNum); err != nil {
		return
	}
	if fld, fldinfo, err = Fold2(g, partval, fldComm, info); err != nil {
		if fldComm != nil {
			fldComm.Free()
		}
		return nil, nil, err
	}
	if fld != nil {
		fld.Flags |= FlagFreeComm
	}
	return
}

/*
Fold2 folds g onto fldComm, a communicator holding the surviving processes in
rank order and nil on the others. Receivers post all their receives first,
then renumber the arcs they keep while the chunks are in flight, and splice
each chunk in when it completes. The folded graph always carries the original
vertex numbers.
*/
func Fold2[T any](g *Dgraph, partval int, fldComm *comm.Comm, info []T) (fld *Dgraph, fldinfo []T, err error) {
	fp, err := FoldComm(g, partval)
	if err == nil {
		err = foldCheckSetup(g, fp, fldComm, info)
	}
	hasInfo := 0
	if info != nil {
		hasInfo = 1
	}
	flags := []int{0, hasInfo, 1 - hasInfo}
	if err != nil {
		flags[0] = 1
	}
	if e := comm.Allreduce(g.Comm, flags, comm.OpMax); e != nil {
		return nil, nil, e
	}
	switch {
	case err != nil:
		return
	case flags[0] != 0:
		return nil, nil, ErrPeerFailure
	case flags[1] != 0 && flags[2] != 0:
		return nil, nil, ErrInfoMismatch
	}

	return foldExchange(g, fp, fldComm, info)
}

// foldExchange moves the chunks of a checked plan. Send failures are reduced
// over all processes before any receiver waits on a chunk.
func foldExchange[T any](g *Dgraph, fp *FoldPlan, fldComm *comm.Comm, info []T) (fld *Dgraph, fldinfo []T, err error) {
	var sndreqs []*comm.Request
	if fp.Role != RolePureReceiver {
		sndreqs, err = foldPost(g, fp, info)
	}
	if err = reduceError(g.Comm, err); err != nil {
		return nil, nil, err
	}
	g.logf("fold role %v send %d receive %d", fp.Role, fp.SendNbr, fp.RecvNbr)
	if fp.Role == RolePureSender {
		err = comm.Waitall(sndreqs)
		return
	}

	fld, fldinfo, err = foldReceive(g, fp, fldComm, info)
	if e := comm.Waitall(sndreqs); e != nil && err == nil {
		err = e
	}
	if err = reduceError(fldComm, err); err != nil {
		return nil, nil, err
	}
	if DebugChecks {
		if !slices.Equal(fld.ProcVrtTab, fp.FldProcVrtTab) {
			err = fmt.Errorf("folded process table %v, planned %v: %w",
				fld.ProcVrtTab, fp.FldProcVrtTab, ErrInvalidGraph)
		}
		if err = reduceError(fldComm, err); err == nil {
			err = fld.Check()
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return
}

func foldCheckSetup[T any](g *Dgraph, fp *FoldPlan, fldComm *comm.Comm, info []T) error {
	if info != nil && len(info) < g.VertLocNbr {
		return fmt.Errorf("%d info values for %d vertices: %w", len(info), g.VertLocNbr, ErrInfoLength)
	}
	survivor := fp.Survivor(g.ProcLocNum)
	switch {
	case survivor && fldComm == nil:
		return fmt.Errorf("surviving rank %d without folded communicator: %w", g.ProcLocNum, ErrInvalidGraph)
	case !survivor && fldComm != nil:
		return fmt.Errorf("leaving rank %d with folded communicator: %w", g.ProcLocNum, ErrInvalidGraph)
	case survivor && (fldComm.Size() != fp.FldProcGlbNbr || fldComm.Rank() != fp.FldProcNum):
		return fmt.Errorf("folded communicator rank %d of %d, planned %d of %d: %w",
			fldComm.Rank(), fldComm.Size(), fp.FldProcNum, fp.FldProcGlbNbr, ErrInvalidGraph)
	}
	return nil
}

// foldPost sends the chunks of the plan. Vertex offsets carry one more entry
// than the chunk has vertices and start from zero.
func foldPost[T any](g *Dgraph, fp *FoldPlan, info []T) (reqs []*comm.Request, err error) {
	var (
		base   = g.Base
		me     = g.ProcLocNum
		P      = g.ProcGlbNbr
		hasVel = g.Flags&FlagHasVelo != 0
		hasEdl = g.Flags&FlagHasEdlo != 0
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
			vnum = make([]int, 0, s.VertNbr)
			edge []int
			edlo []int
			velo []int
		)
		for v := v1; v < v2; v++ {
			e1, e2 := g.VertLoc.At(v), g.VendLoc.At(v)
			vert = append(vert, len(edge))
			edge = append(edge, g.EdgeLoc.Slice(e1, e2)...)
			if hasEdl {
				for e := e1; e < e2; e++ {
					edlo = append(edlo, g.edgeLoad(e))
				}
			}
			if hasVel {
				velo = append(velo, g.vertexLoad(v))
			}
			vnum = append(vnum, g.vertexNum(v))
		}
		vert = append(vert, len(edge))
		post(vert, s.Proc, kindFoldVert)
		post(edge, s.Proc, kindFoldEdge)
		if hasEdl {
			post(edlo, s.Proc, kindFoldEdlo)
		}
		if hasVel {
			post(velo, s.Proc, kindFoldVelo)
		}
		post(vnum, s.Proc, kindFoldVnum)
		if info != nil && err == nil {
			var r *comm.Request
			if r, err = comm.Isend(g.Comm, info[v1-base:v2-base], s.Proc,
				procTag(kindFoldInfo, P, me)); err == nil {
				reqs = append(reqs, r)
			}
		}
	}
	return
}

// foldRecvReqs are the receives of one incoming chunk, indexed by array kind.
type foldRecvReqs struct {
	vert, edge, edlo, velo, vnum, info *comm.Request
}

func foldReceive[T any](g *Dgraph, fp *FoldPlan, fldComm *comm.Comm, info []T) (fld *Dgraph, fldinfo []T, err error) {
	var (
		base       = g.Base
		P          = g.ProcGlbNbr
		hasVel     = g.Flags&FlagHasVelo != 0
		hasEdl     = g.Flags&FlagHasEdlo != 0
		rreqs      = make([]foldRecvReqs, fp.RecvNbr)
		vertlocnbr = fp.FldProcVrtTab[fp.FldProcNum+1] - fp.FldProcVrtTab[fp.FldProcNum]
		vert       = make([]int, 0, vertlocnbr+1)
		vnum       = make([]int, 0, vertlocnbr)
		edge       = make([]int, 0, g.EdgeLocNbr)
		edlo       []int
		velo       []int
		velosum    int
	)
	recv := func(src, kind int) (r *comm.Request) {
		if err == nil {
			r, err = comm.Irecv[int](g.Comm, nil, src, procTag(kind, P, src))
		}
		return
	}
	for j, s := range fp.RecvTab[:fp.RecvNbr] {
		rreqs[j].vert = recv(s.Proc, kindFoldVert)
		rreqs[j].edge = recv(s.Proc, kindFoldEdge)
		if hasEdl {
			rreqs[j].edlo = recv(s.Proc, kindFoldEdlo)
		}
		if hasVel {
			rreqs[j].velo = recv(s.Proc, kindFoldVelo)
		}
		rreqs[j].vnum = recv(s.Proc, kindFoldVnum)
		if info != nil && err == nil {
			rreqs[j].info, err = comm.Irecv[T](g.Comm, nil, s.Proc, procTag(kindFoldInfo, P, s.Proc))
		}
	}
	if info != nil {
		fldinfo = make([]T, 0, vertlocnbr)
	}

	for v := base; v < base+fp.KeepNbr; v++ {
		vert = append(vert, base+len(edge))
		for e := g.VertLoc.At(v); e < g.VendLoc.At(v); e++ {
			edge = append(edge, fp.FoldVertex(g.EdgeLoc.At(e)))
			if hasEdl {
				edlo = append(edlo, g.edgeLoad(e))
			}
		}
		if hasVel {
			velo = append(velo, g.vertexLoad(v))
			velosum += g.vertexLoad(v)
		}
		vnum = append(vnum, g.vertexNum(v))
	}
	if info != nil {
		fldinfo = append(fldinfo, info[:fp.KeepNbr]...)
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
		if err != nil {
			break
		}
		edgenbr := offs[s.VertNbr] - offs[0]
		edgenum := base + len(edge) - offs[0]
		for _, o := range offs[:s.VertNbr] {
			vert = append(vert, edgenum+o)
		}
		for _, w := range wait(rreqs[j].edge, edgenbr, "edge") {
			edge = append(edge, fp.FoldVertex(w))
		}
		if hasEdl {
			edlo = append(edlo, wait(rreqs[j].edlo, edgenbr, "edge load")...)
		}
		if hasVel {
			for _, l := range wait(rreqs[j].velo, s.VertNbr, "vertex load") {
				velo = append(velo, l)
				velosum += l
			}
		}
		vnum = append(vnum, wait(rreqs[j].vnum, s.VertNbr, "vertex number")...)
		if info != nil && err == nil {
			if err = comm.Wait(rreqs[j].info); err == nil {
				chunk := comm.Received[T](rreqs[j].info)
				if len(chunk) != s.VertNbr {
					err = fmt.Errorf("info array of %d entries, expected %d: %w",
						len(chunk), s.VertNbr, ErrMessageLength)
				}
				fldinfo = append(fldinfo, chunk...)
			}
		}
		if err != nil {
			break
		}
	}
	vert = append(vert, base+len(edge))
	if err == nil && len(vert) != vertlocnbr+1 {
		err = fmt.Errorf("folded %d vertices, planned %d: %w", len(vert)-1, vertlocnbr, ErrInvalidGraph)
	}
	if err = reduceError(fldComm, err); err != nil {
		return nil, nil, err
	}

	fld = Init(fldComm)
	err = fld.Build4(BuildArrays{
		Base:       base,
		VertLocNbr: vertlocnbr,
		VertLoc:    types.Wrap(base, vert),
		VeloLoc:    types.Wrap(base, velo),
		VnumLoc:    types.Wrap(base, vnum),
		VeloLocSum: velosum,
		EdgeLocNbr: len(edge),
		EdgeLocSiz: len(edge),
		EdgeLoc:    types.Wrap(base, edge),
		EdloLoc:    types.Wrap(base, edlo),
	})
	return
}
