/*
Package dgraph implements distributed graphs: each process of a communicator
holds a contiguous range of the global vertices together with their adjacency,
edge endpoints being global vertex numbers. On top of the structure come the
ghost-vertex builder, halo synchronization, band-graph extraction and graph
folding, every one of them a collective operation that all processes of the
graph's communicator must call together.

Every entry point returns an error. Failures that could leave peer processes
blocked are reported to all processes through a reduction before returning;
processes that succeeded locally then get ErrPeerFailure.
*/
package dgraph

import (
	"fmt"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/dlog"
	"github.com/notargets/gopart/types"
	"github.com/notargets/gopart/utils"
)

type Flag uint32

const (
	FlagFreeComm   Flag = 1 << iota // Communicator belongs to the graph
	FlagCompact                     // VendLoc is VertLoc shifted by one
	FlagHasVelo                     // Vertex loads present on some process
	FlagHasEdlo                     // Edge loads present on some process
	FlagHasVnum                     // Vertex numbers present on some process
	FlagHasVlbl                     // Vertex labels present on some process
	FlagHasEdgeGst                  // EdgeGst and the neighbor tables are valid
)

// DebugChecks turns on the consistency checks of derived graphs.
var DebugChecks bool

// Dgraph is one process's share of a distributed graph.
type Dgraph struct {
	Flags      Flag
	Base       int
	Comm       *comm.Comm
	ProcGlbNbr int
	ProcLocNum int
	ProcVrtTab []int // Global vertex boundaries, ProcGlbNbr+1 entries
	ProcDspTab []int // Displacements, equal to ProcVrtTab without holes
	ProcCntTab []int // Vertices per process
	VertGlbNbr int
	VertGlbMax int
	VertLocNbr int
	VertLocNnd int
	VertGstNbr int // Local plus ghost vertices
	VertGstNnd int
	VertLoc    types.Array[int]
	VendLoc    types.Array[int]
	VeloLoc    types.Array[int]
	VnumLoc    types.Array[int]
	VlblLoc    types.Array[int]
	VeloLocSum int
	VeloGlbSum int
	EdgeGlbNbr int
	EdgeGlbMax int
	EdgeLocNbr int
	EdgeLocSiz int
	EdgeLoc    types.Array[int] // Global end vertex numbers
	EdgeGst    types.Array[int] // Local and ghost end vertex numbers
	EdloLoc    types.Array[int]
	DegrGlbMax int
	ProcNgbNbr int
	ProcNgbMax int
	ProcNgbTab []int // Neighbor process ranks, ascending
	ProcRcvTab []int // Ghost vertices received from each process
	ProcSndTab []int // Local vertices sent to each process
	ProcSidTab []int // Encoded send list, see Ghst
	ProcGstMax int

	owners *utils.PartitionMap
}

// Init binds a graph to a communicator. The graph has no vertices until built.
func Init(c *comm.Comm) *Dgraph {
	return &Dgraph{
		Comm:       c,
		ProcGlbNbr: c.Size(),
		ProcLocNum: c.Rank(),
	}
}

/*
Free drops the graph arrays and derived data but keeps the communicator, the
process identity and the process vertex tables, so that the structure can be
rebuilt in place, for instance after an error that still requires collective
calls on the communicator.
*/
func (g *Dgraph) Free() {
	*g = Dgraph{
		Flags:      g.Flags & FlagFreeComm,
		Base:       g.Base,
		Comm:       g.Comm,
		ProcGlbNbr: g.ProcGlbNbr,
		ProcLocNum: g.ProcLocNum,
		ProcVrtTab: g.ProcVrtTab,
		ProcDspTab: g.ProcDspTab,
		ProcCntTab: g.ProcCntTab,
		owners:     g.owners,
	}
}

// Exit releases everything, including the communicator when the graph owns it.
func (g *Dgraph) Exit() {
	if g.Flags&FlagFreeComm != 0 && g.Comm != nil {
		g.Comm.Free()
	}
	*g = Dgraph{}
}

// InvalidateGhst marks the ghost edge array stale after a change of the edge array.
func (g *Dgraph) InvalidateGhst() {
	g.Flags &^= FlagHasEdgeGst
}

// VertLocMin returns the first global vertex number owned by this process.
func (g *Dgraph) VertLocMin() int { return g.ProcVrtTab[g.ProcLocNum] }

// Owner returns the rank owning global vertex v, or -1.
func (g *Dgraph) Owner(v int) int { return g.owners.Owner(v) }

func (g *Dgraph) vertexLoad(v int) int { return types.IntArrayOf(g.VeloLoc, v, 1) }
func (g *Dgraph) edgeLoad(e int) int   { return types.IntArrayOf(g.EdloLoc, e, 1) }

// vertexNum returns the original number of local vertex v, its global number
// when the graph carries no vertex numbers.
func (g *Dgraph) vertexNum(v int) int {
	return types.IntArrayOf(g.VnumLoc, v, g.ProcVrtTab[g.ProcLocNum]+v-g.Base)
}

func (g *Dgraph) logf(format string, args ...interface{}) {
	dlog.Debugf(dlog.Rankf(g.ProcLocNum, format), args...)
}

/*
reduceError funnels a local failure to every process of c with one max
reduction. It returns the local error when there is one and ErrPeerFailure
when only peers failed.
*/
func reduceError(c *comm.Comm, err error) error {
	flag := []int{0}
	if err != nil {
		flag[0] = 1
	}
	if cerr := comm.Allreduce(c, flag, comm.OpMax); cerr != nil {
		dlog.Errorf("error reduction failed: %v", cerr)
		if err == nil {
			err = fmt.Errorf("error reduction: %w", cerr)
		}
		return err
	}
	if err != nil {
		return err
	}
	if flag[0] != 0 {
		return ErrPeerFailure
	}
	return nil
}

// procTag derives message tags so that arrays of different kinds never match,
// whatever the number of processes.
func procTag(kind, procglbnbr, procnum int) int {
	return kind*procglbnbr + procnum
}

const (
	kindHalo = iota
	kindBand
	kindFoldVert
	kindFoldVelo
	kindFoldVnum
	kindFoldEdge
	kindFoldEdlo
	kindFoldInfo
	kindFoldVhnd
	kindFoldVhal
)
