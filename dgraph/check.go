package dgraph

import (
	"fmt"
	"slices"

	"github.com/notargets/gopart/comm"
)

/*
Check verifies the distributed graph: identical process tables on all
processes, local array ranges, cached sums against recomputed ones, ghost
numbering when present, then arc symmetry on the gathered graph. It is
collective and all processes get the same verdict.
*/
func (g *Dgraph) Check() (err error) {
	var all []int
	if all, err = comm.Allgather(g.Comm, g.ProcVrtTab); err != nil {
		return
	}
	for p := 0; p < g.ProcGlbNbr && err == nil; p++ {
		if !slices.Equal(all[p*len(g.ProcVrtTab):(p+1)*len(g.ProcVrtTab)], g.ProcVrtTab) {
			err = fmt.Errorf("process table of rank %d differs: %w", p, ErrInvalidGraph)
		}
	}
	if err == nil {
		err = g.checkLocal()
	}
	if err = reduceError(g.Comm, err); err != nil {
		return
	}

	sums := []int{g.VertLocNbr, g.EdgeLocNbr, g.VeloLocSum}
	if err = comm.Allreduce(g.Comm, sums, comm.OpSum); err != nil {
		return
	}
	switch {
	case sums[0] != g.VertGlbNbr:
		err = fmt.Errorf("global vertex count %d, sum of local counts %d: %w",
			g.VertGlbNbr, sums[0], ErrInvalidGraph)
	case sums[1] != g.EdgeGlbNbr:
		err = fmt.Errorf("global arc count %d, sum of local counts %d: %w",
			g.EdgeGlbNbr, sums[1], ErrInvalidGraph)
	case sums[2] != g.VeloGlbSum:
		err = fmt.Errorf("global load %d, sum of local loads %d: %w",
			g.VeloGlbSum, sums[2], ErrInvalidGraph)
	}
	if err = reduceError(g.Comm, err); err != nil {
		return
	}

	cg, err := g.Gather()
	if err != nil {
		return
	}
	err = reduceError(g.Comm, cg.Check())
	return
}

func (g *Dgraph) checkLocal() error {
	var (
		base       = g.Base
		vertlocmin = g.ProcVrtTab[g.ProcLocNum]
		vertglbnnd = g.ProcVrtTab[g.ProcGlbNbr]
		velosum    int
		edgenbr    int
	)
	if g.VertLocNbr != g.ProcCntTab[g.ProcLocNum] ||
		g.VertLocNnd != base+g.VertLocNbr ||
		g.ProcVrtTab[g.ProcLocNum+1]-vertlocmin != g.VertLocNbr {
		return fmt.Errorf("local vertex count %d disagrees with process tables: %w",
			g.VertLocNbr, ErrInvalidGraph)
	}
	for v := base; v < g.VertLocNnd; v++ {
		e1, e2 := g.VertLoc.At(v), g.VendLoc.At(v)
		if e1 < base || e2 < e1 || e2 > base+g.EdgeLocSiz {
			return fmt.Errorf("vertex %d has edge range [%d,%d): %w", v, e1, e2, ErrInvalidGraph)
		}
		velosum += g.vertexLoad(v)
		edgenbr += e2 - e1
		vglb := vertlocmin + v - base
		for e := e1; e < e2; e++ {
			w := g.EdgeLoc.At(e)
			if w < base || w >= vertglbnnd {
				return fmt.Errorf("edge %d of vertex %d ends at %d: %w", e, vglb, w, ErrInvalidGraph)
			}
			if w == vglb {
				return fmt.Errorf("loop on vertex %d: %w", vglb, ErrInvalidGraph)
			}
			if g.Flags&FlagHasEdlo != 0 && g.edgeLoad(e) < 1 {
				return fmt.Errorf("edge %d of vertex %d has load %d: %w",
					e, vglb, g.edgeLoad(e), ErrInvalidGraph)
			}
			if g.Flags&FlagHasEdgeGst == 0 {
				continue
			}
			wg := g.EdgeGst.At(e)
			if w >= vertlocmin && w < vertlocmin+g.VertLocNbr {
				if wg != w-vertlocmin+base {
					return fmt.Errorf("local edge %d has ghost end %d for %d: %w", e, wg, w, ErrInvalidGraph)
				}
			} else if wg < g.VertLocNnd || wg >= g.VertGstNnd {
				return fmt.Errorf("remote edge %d has ghost end %d: %w", e, wg, ErrInvalidGraph)
			}
		}
	}
	if velosum != g.VeloLocSum {
		return fmt.Errorf("local load %d, recomputed %d: %w", g.VeloLocSum, velosum, ErrInvalidGraph)
	}
	if edgenbr != g.EdgeLocNbr {
		return fmt.Errorf("local arc count %d, recomputed %d: %w", g.EdgeLocNbr, edgenbr, ErrInvalidGraph)
	}
	return nil
}
