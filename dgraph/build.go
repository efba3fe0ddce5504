package dgraph

import (
	"fmt"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/graph"
	"github.com/notargets/gopart/types"
	"github.com/notargets/gopart/utils"
)

/*
BuildArrays carries the local arrays of a distributed graph. When VendLoc is
absent, VertLoc holds VertLocNbr+1 entries and the graph is compact. Optional
arrays (loads, numbers, labels) may be left empty.
*/
type BuildArrays struct {
	Base       int
	VertLocNbr int
	VertLoc    types.Array[int]
	VendLoc    types.Array[int]
	VeloLoc    types.Array[int]
	VnumLoc    types.Array[int]
	VlblLoc    types.Array[int]
	VeloLocSum int // Trusted when non-zero, computed otherwise
	EdgeLocNbr int // Arcs in use, may be smaller than EdgeLocSiz when not compact
	EdgeLocSiz int
	EdgeLoc    types.Array[int]
	EdloLoc    types.Array[int]
}

/*
Build creates the graph from compact local arrays: vert holds VertLocNbr+1
based offsets into edge, edge holds global end vertex numbers. Optional arrays
may be nil. The arrays are used in place, not copied.
*/
func (g *Dgraph) Build(base int, vert, velo, vnum, vlbl, edge, edlo []int) error {
	a := BuildArrays{
		Base:    base,
		VertLoc: types.Wrap(base, vert),
		VeloLoc: types.Wrap(base, velo),
		VnumLoc: types.Wrap(base, vnum),
		VlblLoc: types.Wrap(base, vlbl),
		EdgeLoc: types.Wrap(base, edge),
		EdloLoc: types.Wrap(base, edlo),
	}
	if len(vert) > 0 {
		a.VertLocNbr = len(vert) - 1
		a.EdgeLocNbr = vert[a.VertLocNbr] - vert[0]
	} else {
		a.VertLoc = types.Wrap(base, []int{base})
	}
	a.EdgeLocSiz = len(edge)
	return g.Build4(a)
}

/*
Build4 installs the local arrays and computes the process tables and global
counts through collective calls. Every process of the graph communicator must
call it, including processes owning no vertex.
*/
func (g *Dgraph) Build4(a BuildArrays) (err error) {
	var (
		base       = a.Base
		veloLocSum = a.VertLocNbr
		degrLocMax int
		presence   = func(ar types.Array[int]) int {
			if ar.Has() {
				return 1
			}
			return 0
		}
	)
	if g.Comm == nil {
		return fmt.Errorf("build without communicator: %w", ErrInvalidGraph)
	}
	if base != 0 && base != 1 {
		err = ErrBase
	}
	vertLoc, vendLoc := a.VertLoc, a.VendLoc
	compact := !vendLoc.Has()
	switch {
	case err != nil:
	case !compact:
		if vertLoc.Len() < a.VertLocNbr || vendLoc.Len() < a.VertLocNbr {
			err = fmt.Errorf("vertex arrays of %d and %d entries for %d vertices: %w",
				vertLoc.Len(), vendLoc.Len(), a.VertLocNbr, ErrInvalidGraph)
		}
	case vertLoc.Len() > a.VertLocNbr:
		vendLoc = types.Wrap(base, vertLoc.Data[1:a.VertLocNbr+1])
		vertLoc = types.Wrap(base, vertLoc.Data[:a.VertLocNbr])
	case a.VertLocNbr > 0:
		err = fmt.Errorf("compact vertex array of %d entries for %d vertices: %w",
			vertLoc.Len(), a.VertLocNbr, ErrInvalidGraph)
	}
	for _, ar := range []struct {
		name string
		arr  types.Array[int]
		need int
	}{
		{"vertex load", a.VeloLoc, a.VertLocNbr},
		{"vertex number", a.VnumLoc, a.VertLocNbr},
		{"vertex label", a.VlblLoc, a.VertLocNbr},
		{"edge load", a.EdloLoc, a.EdgeLocSiz},
	} {
		if err == nil && ar.arr.Has() && ar.arr.Len() < ar.need {
			err = fmt.Errorf("%s array of %d entries, need %d: %w", ar.name, ar.arr.Len(), ar.need, ErrInvalidGraph)
		}
	}
	if err == nil && a.EdgeLoc.Len() < a.EdgeLocSiz {
		err = fmt.Errorf("edge array of %d entries, need %d: %w", a.EdgeLoc.Len(), a.EdgeLocSiz, ErrInvalidGraph)
	}
	if err == nil {
		for v := base; v < base+a.VertLocNbr; v++ {
			e1, e2 := vertLoc.At(v), vendLoc.At(v)
			if e1 < base || e2 < e1 || e2 > base+a.EdgeLocSiz {
				err = fmt.Errorf("vertex %d has edge range [%d,%d) outside [%d,%d): %w",
					v, e1, e2, base, base+a.EdgeLocSiz, ErrInvalidGraph)
				break
			}
			if e2-e1 > degrLocMax {
				degrLocMax = e2 - e1
			}
		}
	}
	if err == nil && a.VeloLoc.Has() && a.VeloLocSum != 0 {
		veloLocSum = a.VeloLocSum
	} else if err == nil && a.VeloLoc.Has() {
		veloLocSum = 0
		for v := base; v < base+a.VertLocNbr; v++ {
			veloLocSum += a.VeloLoc.At(v)
		}
	}

	var (
		errFlag = 0
		maxTab  []int
		sumTab  = []int{veloLocSum, a.EdgeLocNbr}
		cntTab  []int
	)
	if err != nil {
		errFlag = 1
	}
	maxTab = []int{errFlag, degrLocMax, a.VertLocNbr, a.EdgeLocNbr,
		presence(a.VeloLoc), presence(a.EdloLoc), presence(a.VnumLoc), presence(a.VlblLoc)}
	if e := comm.Allreduce(g.Comm, maxTab, comm.OpMax); e != nil {
		return e
	}
	if maxTab[0] != 0 {
		if err == nil {
			err = ErrPeerFailure
		}
		return
	}
	if err = comm.Allreduce(g.Comm, sumTab, comm.OpSum); err != nil {
		return
	}
	if cntTab, err = comm.Allgather(g.Comm, []int{a.VertLocNbr}); err != nil {
		return
	}

	g.Flags &= FlagFreeComm
	if compact {
		g.Flags |= FlagCompact
	}
	for i, f := range []Flag{FlagHasVelo, FlagHasEdlo, FlagHasVnum, FlagHasVlbl} {
		if maxTab[4+i] != 0 {
			g.Flags |= f
		}
	}
	g.Base = base
	g.ProcGlbNbr = g.Comm.Size()
	g.ProcLocNum = g.Comm.Rank()
	g.ProcCntTab = cntTab
	g.ProcVrtTab = make([]int, g.ProcGlbNbr+1)
	g.ProcVrtTab[0] = base
	for p, cnt := range cntTab {
		g.ProcVrtTab[p+1] = g.ProcVrtTab[p] + cnt
	}
	g.ProcDspTab = append([]int(nil), g.ProcVrtTab...)
	if g.owners, err = utils.NewPartitionMapFromBounds(g.ProcVrtTab); err != nil {
		return
	}
	g.VertGlbNbr = g.ProcVrtTab[g.ProcGlbNbr] - base
	g.VertGlbMax = maxTab[2]
	g.VertLocNbr = a.VertLocNbr
	g.VertLocNnd = base + a.VertLocNbr
	g.VertGstNbr = g.VertLocNbr
	g.VertGstNnd = g.VertLocNnd
	g.VertLoc = vertLoc
	g.VendLoc = vendLoc
	g.VeloLoc = a.VeloLoc
	g.VnumLoc = a.VnumLoc
	g.VlblLoc = a.VlblLoc
	g.VeloLocSum = veloLocSum
	g.VeloGlbSum = sumTab[0]
	g.EdgeGlbNbr = sumTab[1]
	g.EdgeGlbMax = maxTab[3]
	g.EdgeLocNbr = a.EdgeLocNbr
	g.EdgeLocSiz = a.EdgeLocSiz
	g.EdgeLoc = a.EdgeLoc
	g.EdgeGst = types.Array[int]{}
	g.EdloLoc = a.EdloLoc
	g.DegrGlbMax = maxTab[1]
	g.ProcNgbNbr, g.ProcNgbMax, g.ProcGstMax = 0, 0, 0
	g.ProcNgbTab, g.ProcRcvTab, g.ProcSndTab, g.ProcSidTab = nil, nil, nil, nil
	return
}

/*
GridOptions drives BuildGrid3D. With VeloMax > 0 vertex loads are drawn in
[1, VeloMax] from Random, which must then be set; the draws depend only on the
global vertex number, so that the same grid is obtained on any number of
processes. With EdgeLoads set, edges carry a load derived from their ends.
*/
type GridOptions struct {
	Base      int
	Dims      [3]int
	VeloMax   int
	Random    *utils.Random
	EdgeLoads bool
}

// GridEdgeLoad is the load of the grid edge joining global vertices v and w.
func GridEdgeLoad(v, w int) int {
	return 1 + (v+w)%3
}

// BuildGrid3D builds a distributed grid graph, each process owning one
// balanced slice of the vertex numbering.
func BuildGrid3D(c *comm.Comm, opts GridOptions) (g *Dgraph, err error) {
	var (
		base             = opts.Base
		dimx, dimy, dimz = opts.Dims[0], opts.Dims[1], opts.Dims[2]
		vertglbnbr       = dimx * dimy * dimz
		velo, edlo       []int
	)
	g = Init(c)
	if dimx < 1 || dimy < 1 || dimz < 1 {
		err = graph.ErrEmptyGrid
	} else if opts.VeloMax > 0 && opts.Random == nil {
		err = fmt.Errorf("grid vertex loads need a random generator: %w", ErrInvalidGraph)
	}
	if err = reduceError(c, err); err != nil {
		return
	}
	pm := utils.NewPartitionMap(c.Size(), vertglbnbr)
	pm.Base = base
	rng := pm.Split1D(c.Rank())
	vertlocnbr := rng[1] - rng[0]
	vert := make([]int, vertlocnbr+1)
	edge := make([]int, 0, 6*vertlocnbr)
	vert[0] = base
	for v := rng[0]; v < rng[1]; v++ {
		n0 := len(edge)
		edge = graph.GridNeighbors(edge, base, dimx, dimy, dimz, v)
		if opts.EdgeLoads {
			for _, w := range edge[n0:] {
				edlo = append(edlo, GridEdgeLoad(v, w))
			}
		}
		vert[v-rng[0]+1] = base + len(edge)
	}
	if opts.VeloMax > 0 {
		opts.Random.Reset()
		opts.Random.Skip(rng[0]-base, opts.VeloMax)
		velo = make([]int, vertlocnbr)
		for i := range velo {
			velo[i] = 1 + opts.Random.IntN(opts.VeloMax)
		}
	}
	err = g.Build(base, vert, velo, nil, nil, edge, edlo)
	return
}

/*
GridBisection splits a grid built by BuildGrid3D with planes of width dimx
along the plane x = dimx/2, which forms the separator; vertices before it go
to part 0 and the others to part 1. It returns the part of each local vertex,
the local separator vertices and the local load of each part.
*/
func GridBisection(g *Dgraph, dimx int) (parts []types.GraphPart, frontier []int, load [2]int) {
	parts = make([]types.GraphPart, g.VertLocNbr)
	vertlocmin := g.VertLocMin()
	for v := g.Base; v < g.VertLocNnd; v++ {
		x := (vertlocmin + v - 2*g.Base) % dimx
		switch {
		case x < dimx/2:
			parts[v-g.Base] = types.Part0
		case x == dimx/2:
			parts[v-g.Base] = types.PartSep
			frontier = append(frontier, v)
		default:
			parts[v-g.Base] = types.Part1
		}
		if side := parts[v-g.Base].Side(); side >= 0 {
			load[side] += g.vertexLoad(v)
		}
	}
	return
}
