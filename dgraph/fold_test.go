package dgraph

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/graph"
	"github.com/notargets/gopart/types"
	"github.com/notargets/gopart/utils"
)

// planGraph fakes the process tables of a distributed graph seen from rank me.
func planGraph(base, me int, cnts []int) *Dgraph {
	g := &Dgraph{
		Base:       base,
		ProcGlbNbr: len(cnts),
		ProcLocNum: me,
		ProcCntTab: cnts,
		ProcVrtTab: make([]int, len(cnts)+1),
	}
	g.ProcVrtTab[0] = base
	for p, cnt := range cnts {
		g.ProcVrtTab[p+1] = g.ProcVrtTab[p] + cnt
	}
	g.VertGlbNbr = g.ProcVrtTab[len(cnts)] - base
	return g
}

// checkPlans verifies the plans of all ranks against each other.
func checkPlans(t *testing.T, base, partval int, cnts []int) []*FoldPlan {
	t.Helper()
	plans := make([]*FoldPlan, len(cnts))
	for p := range cnts {
		fp, err := FoldComm(planGraph(base, p, cnts), partval)
		require.NoError(t, err)
		plans[p] = fp
	}
	var (
		fp0     = plans[0]
		vertnbr = fp0.FldProcVrtTab[fp0.FldProcGlbNbr] - base
		seen    = make([]bool, vertnbr)
		sent    int
		recv    int
	)
	for p, fp := range plans {
		assert.Equal(t, fp0.FldProcVrtTab, fp.FldProcVrtTab)
		assert.Equal(t, fp0.VertAdjTab, fp.VertAdjTab)
		assert.LessOrEqual(t, fp.SendNbr, FoldCommNbr)
		assert.LessOrEqual(t, fp.RecvNbr, FoldCommNbr)
		for _, s := range fp.SendTab[:fp.SendNbr] {
			sent += s.VertNbr
			assert.True(t, fp.Survivor(s.Proc))
		}
		for _, s := range fp.RecvTab[:fp.RecvNbr] {
			recv += s.VertNbr
		}
		if !fp.Survivor(p) {
			assert.Equal(t, RolePureSender, fp.Role)
			assert.Equal(t, -1, fp.FldProcNum)
			continue
		}
		// Kept and received vertices fill the folded range of the rank in order
		next := fp.FldProcVrtTab[fp.FldProcNum]
		for v := 0; v < fp.KeepNbr; v++ {
			assert.Equal(t, next, fp.FoldVertex(base+sum(cnts[:p])+v))
			next++
		}
		for _, s := range fp.RecvTab[:fp.RecvNbr] {
			for v := s.VertGlbMin; v < s.VertGlbMin+s.VertNbr; v++ {
				assert.Equal(t, next, fp.FoldVertex(v))
				next++
			}
		}
		assert.Equal(t, fp.FldProcVrtTab[fp.FldProcNum+1], next)
	}
	assert.Equal(t, sent, recv)
	assert.Equal(t, sum(cnts), vertnbr)
	for v := base; v < base+vertnbr; v++ {
		w := fp0.FoldVertex(v) - base
		require.True(t, w >= 0 && w < vertnbr)
		assert.False(t, seen[w], "vertex %d mapped twice", w)
		seen[w] = true
	}
	return plans
}

func sum(a []int) (s int) {
	for _, v := range a {
		s += v
	}
	return
}

func TestFoldComm(t *testing.T) {
	{ // Four ranks onto the first two
		plans := checkPlans(t, 0, 0, []int{3, 2, 2, 2})
		assert.Equal(t, []int{0, 5, 9}, plans[0].FldProcVrtTab)
		assert.Equal(t, RolePureReceiver, plans[0].Role)
		assert.Equal(t, 3, plans[0].KeepNbr)
		assert.Equal(t, FoldSlot{Proc: 2, VertGlbMin: 5, VertNbr: 2}, plans[0].RecvTab[0])
		assert.Equal(t, RolePureSender, plans[2].Role)
		assert.Equal(t, FoldSlot{Proc: 0, VertGlbMin: 5, VertNbr: 2}, plans[2].SendTab[0])
		assert.Equal(t, FoldSlot{Proc: 1, VertGlbMin: 7, VertNbr: 2}, plans[3].SendTab[0])
		for v, w := range []int{0, 1, 2, 5, 6, 3, 4, 7, 8} {
			assert.Equal(t, w, plans[1].FoldVertex(v))
		}
	}
	{ // Four ranks onto the last two, base 1
		plans := checkPlans(t, 1, 1, []int{3, 2, 2, 2})
		assert.Equal(t, 2, plans[0].FldProcGlbNbr)
		assert.Equal(t, 0, plans[2].FldProcNum)
		assert.Equal(t, 2, plans[2].KeepNbr)
		assert.Equal(t, FoldSlot{Proc: 0, VertGlbMin: 1, VertNbr: 3}, plans[2].RecvTab[0])
		assert.Equal(t, []int{1, 6, 10}, plans[3].FldProcVrtTab)
	}
	{ // Odd counts
		plans := checkPlans(t, 0, 0, []int{4, 3, 3})
		assert.Equal(t, 2, plans[0].FldProcGlbNbr)
		plans = checkPlans(t, 0, 1, []int{4, 3, 3})
		assert.Equal(t, 1, plans[0].FldProcGlbNbr)
		assert.Equal(t, 2, plans[2].RecvNbr)
	}
	{ // A survivor above its share ships its tail
		plans := checkPlans(t, 0, 0, []int{10, 0, 0, 0})
		assert.Equal(t, RoleSenderReceiver, plans[0].Role)
		assert.Equal(t, 5, plans[0].KeepNbr)
		assert.Equal(t, FoldSlot{Proc: 1, VertGlbMin: 5, VertNbr: 5}, plans[0].SendTab[0])
		assert.Equal(t, RolePureReceiver, plans[1].Role)
	}
	{ // Many small senders hit the receiver bound
		plans := checkPlans(t, 0, 0, []int{0, 20, 20, 20, 20, 4, 4, 4, 4, 4})
		assert.Equal(t, FoldCommNbr, plans[0].RecvNbr)
		assert.Equal(t, []int{0, 16, 40, 60, 80, 100}, plans[0].FldProcVrtTab)
	}
	{ // One big survivor hits the sender bound
		cnts := make([]int, 12)
		cnts[6] = 120
		plans := checkPlans(t, 0, 1, cnts)
		assert.Equal(t, RoleSenderReceiver, plans[6].Role)
		assert.Equal(t, FoldCommNbr, plans[6].SendNbr)
		assert.Equal(t, 40, plans[6].SendTab[FoldCommNbr-1].VertNbr)
		assert.Equal(t, []int{0, 20, 40, 60, 80, 120, 120}, plans[0].FldProcVrtTab)
	}
	{ // Errors
		_, err := FoldComm(planGraph(0, 0, []int{4}), 1)
		assert.ErrorIs(t, err, ErrFoldTooFewProcs)
		_, err = FoldComm(planGraph(0, 0, []int{4, 4}), 2)
		assert.ErrorIs(t, err, ErrPartVal)
	}
}

type foldResult struct {
	fld  *Dgraph
	cg   *graph.Graph
	info []string
	err  error
}

func TestFoldGrid(t *testing.T) {
	ref, err := graph.Grid3D(0, 3, 3, 1)
	require.NoError(t, err)
	res := make([]foldResult, 4)
	err = comm.Run(4, func(c *comm.Comm) error {
		g, err := grid(c, 0, 3, 3, 1)
		if err != nil {
			return err
		}
		fld, err := g.Fold(0)
		if err != nil {
			return err
		}
		res[c.Rank()].fld = fld
		if fld == nil {
			return nil
		}
		res[c.Rank()].cg, err = fld.Gather()
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, res[2].fld)
	assert.Nil(t, res[3].fld)
	// Each survivor holds its own vertices and those of one leaving rank
	assert.Equal(t, 3+2, res[0].fld.VertLocNbr)
	assert.Equal(t, 2+2, res[1].fld.VertLocNbr)
	for _, r := range res[:2] {
		assert.Equal(t, 2, r.fld.ProcGlbNbr)
		assert.Equal(t, 24, r.fld.EdgeGlbNbr)
		assert.Equal(t, 9, r.fld.VeloGlbSum)
		assert.NotZero(t, r.fld.Flags&FlagHasVnum)
		assert.NotZero(t, r.fld.Flags&FlagFreeComm)
		assert.True(t, ref.EdgeKeys().Equal(r.cg.EdgeKeys()))
	}
	assert.Equal(t, []int{0, 1, 2, 5, 6}, res[0].fld.VnumLoc.Data)
}

func TestFoldWeightedInfo(t *testing.T) {
	const np = 5
	var (
		orig = make([]*graph.Graph, np)
		res  = make([]foldResult, np)
	)
	err := comm.Run(np, func(c *comm.Comm) error {
		g, err := BuildGrid3D(c, GridOptions{
			Base:      1,
			Dims:      [3]int{4, 3, 2},
			VeloMax:   9,
			Random:    utils.NewRandom(7),
			EdgeLoads: true,
		})
		if err != nil {
			return err
		}
		if orig[c.Rank()], err = g.Gather(); err != nil {
			return err
		}
		info := make([]string, g.VertLocNbr)
		for i := range info {
			info[i] = fmt.Sprintf("v%d", g.VertLocMin()+i)
		}
		fld, fldinfo, err := FoldInfo(g, 1, info)
		if err != nil {
			return err
		}
		res[c.Rank()] = foldResult{fld: fld, info: fldinfo}
		if fld != nil {
			res[c.Rank()].cg, err = fld.Gather()
		}
		return err
	})
	require.NoError(t, err)
	for p, r := range res {
		if p < 3 {
			assert.Nil(t, r.fld)
			assert.Nil(t, r.info)
			continue
		}
		require.NotNil(t, r.fld)
		assert.Equal(t, orig[0].VeloSum, r.fld.VeloGlbSum)
		assert.Equal(t, orig[0].EdgeNbr, r.fld.EdgeGlbNbr)
		require.Len(t, r.info, r.fld.VertLocNbr)
		for i, s := range r.info {
			v := r.fld.VnumLoc.At(r.fld.Base + i)
			assert.Equal(t, fmt.Sprintf("v%d", v), s)
			// Loads travel with their vertex
			assert.Equal(t, orig[0].VertexLoad(v), r.fld.VeloLoc.At(r.fld.Base+i))
		}
		assert.True(t, orig[0].EdgeKeys().Equal(r.cg.EdgeKeys()))
		edlosum := 0
		for e := r.cg.Base; e < r.cg.Base+r.cg.EdgeNbr; e++ {
			edlosum += r.cg.EdgeLoad(e)
		}
		origsum := 0
		for e := orig[0].Base; e < orig[0].Base+orig[0].EdgeNbr; e++ {
			origsum += orig[0].EdgeLoad(e)
		}
		assert.Equal(t, origsum, edlosum)
	}
}

func TestFoldRecursive(t *testing.T) {
	ref, err := graph.Grid3D(0, 4, 4, 3)
	require.NoError(t, err)
	var last *graph.Graph
	err = comm.Run(8, func(c *comm.Comm) error {
		g, err := grid(c, 0, 4, 4, 3)
		if err != nil {
			return err
		}
		for g != nil && g.ProcGlbNbr > 1 {
			fld, err := g.Fold(0)
			if err != nil {
				return err
			}
			if g.ProcGlbNbr < 8 {
				g.Exit()
			}
			g = fld
		}
		if g == nil {
			return nil
		}
		assert.Equal(t, 48, g.VertLocNbr)
		last, err = g.Gather()
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, ref.EdgeKeys().Equal(last.EdgeKeys()))
}

func TestFoldErrors(t *testing.T) {
	errs := make([]error, 3)
	err := comm.Run(3, func(c *comm.Comm) error {
		g, err := grid(c, 0, 3, 3, 1)
		if err != nil {
			return err
		}
		var info []int
		if c.Rank() == 0 {
			info = make([]int, g.VertLocNbr)
		}
		_, _, errs[c.Rank()] = FoldInfo(g, 0, info)
		return nil
	})
	require.NoError(t, err)
	for _, e := range errs {
		assert.ErrorIs(t, e, ErrInfoMismatch)
	}

	err = comm.Run(1, func(c *comm.Comm) error {
		g, err := grid(c, 0, 3, 3, 1)
		if err != nil {
			return err
		}
		_, errs[0] = g.Fold(1)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, errs[0], ErrFoldTooFewProcs)
}

// skewLoad is the vertex load of the skewed grids.
func skewLoad(v int) int { return 1 + v%4 }

// skewedGrid distributes ref with cnts vertices per process, in global order,
// with vertex loads and grid edge loads.
func skewedGrid(c *comm.Comm, ref *graph.Graph, cnts []int) (*Dgraph, error) {
	var (
		vmin = sum(cnts[:c.Rank()])
		vert = []int{0}
		velo []int
		edge []int
		edlo []int
	)
	for v := vmin; v < vmin+cnts[c.Rank()]; v++ {
		for e := ref.Vert.At(v); e < ref.Vend.At(v); e++ {
			w := ref.Edge.At(e)
			edge = append(edge, w)
			edlo = append(edlo, GridEdgeLoad(v, w))
		}
		vert = append(vert, len(edge))
		velo = append(velo, skewLoad(v))
	}
	g := Init(c)
	return g, g.Build(0, vert, velo, nil, nil, edge, edlo)
}

func TestFoldSkewed(t *testing.T) {
	// 60 vertices held unevenly, one process empty
	cnts := []int{40, 0, 3, 17}
	ref, err := graph.Grid3D(0, 6, 10, 1)
	require.NoError(t, err)
	velosum := 0
	for v := 0; v < ref.VertNbr; v++ {
		velosum += skewLoad(v)
	}
	{ // The first survivor keeps its head and ships its tail
		plans := checkPlans(t, 0, 0, cnts)
		assert.Equal(t, RoleSenderReceiver, plans[0].Role)
		assert.Equal(t, 30, plans[0].KeepNbr)
		assert.Equal(t, FoldSlot{Proc: 1, VertGlbMin: 30, VertNbr: 10}, plans[0].SendTab[0])
		assert.Equal(t, RolePureReceiver, plans[1].Role)
		assert.Equal(t, 3, plans[1].RecvNbr)
		plans = checkPlans(t, 0, 1, cnts)
		assert.Equal(t, RolePureSender, plans[0].Role)
		assert.Equal(t, 2, plans[0].SendNbr)
	}
	for partval := 0; partval < 2; partval++ {
		var (
			res   = make([]foldResult, 4)
			infos = make([][]int, 4)
		)
		err := comm.Run(4, func(c *comm.Comm) error {
			g, err := skewedGrid(c, ref, cnts)
			if err != nil {
				return err
			}
			info := make([]int, g.VertLocNbr)
			for i := range info {
				info[i] = g.VertLocMin() + i
			}
			fld, fldinfo, err := FoldInfo(g, partval, info)
			if err != nil {
				return err
			}
			res[c.Rank()].fld, infos[c.Rank()] = fld, fldinfo
			if fld != nil {
				res[c.Rank()].cg, err = fld.Gather()
			}
			return err
		})
		require.NoError(t, err, "partval %d", partval)
		for p, r := range res {
			if (partval == 0) != (p < 2) {
				assert.Nil(t, r.fld)
				continue
			}
			fld := r.fld
			require.NotNil(t, fld)
			assert.Equal(t, 2, fld.ProcGlbNbr)
			assert.Equal(t, 30, fld.VertLocNbr)
			assert.Equal(t, velosum, fld.VeloGlbSum)
			assert.Equal(t, ref.EdgeNbr, fld.EdgeGlbNbr)
			require.Len(t, infos[p], fld.VertLocNbr)
			for i, n := range infos[p] {
				v := fld.Base + i
				assert.Equal(t, n, fld.VnumLoc.At(v))
				assert.Equal(t, skewLoad(n), fld.VeloLoc.At(v))
			}
			cg := r.cg
			assert.True(t, ref.EdgeKeys().Equal(cg.EdgeKeys()))
			for v := cg.Base; v < cg.VertNnd; v++ {
				for e := cg.Vert.At(v); e < cg.Vend.At(v); e++ {
					vn, wn := cg.VertexNumber(v), cg.VertexNumber(cg.Edge.At(e))
					assert.Equal(t, GridEdgeLoad(vn, wn), cg.EdgeLoad(e), "arc (%d,%d)", vn, wn)
				}
			}
		}
	}
}

func TestHdgraphFoldSkewed(t *testing.T) {
	// Part 0 is x < 3 of a 6x10 grid: 21, 0, 1 and 8 vertices per process
	cnts := []int{40, 0, 3, 17}
	ref, err := graph.Grid3D(0, 6, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, RoleSenderReceiver, checkPlans(t, 0, 0, []int{21, 0, 1, 8})[0].Role)
	for partval := 0; partval < 2; partval++ {
		var (
			induced = make([]haloCounts, 4)
			folded  = make([]*haloCounts, 4)
		)
		err := comm.Run(4, func(c *comm.Comm) error {
			g, err := skewedGrid(c, ref, cnts)
			if err != nil {
				return err
			}
			parts := make([]types.GraphPart, g.VertLocNbr)
			for i := range parts {
				if (g.VertLocMin()+i)%6 >= 3 {
					parts[i] = types.Part1
				}
			}
			h, err := g.InduceHalo(parts, types.Part0)
			if err != nil {
				return err
			}
			induced[c.Rank()] = countHalo(h)
			fld, err := HdgraphFold(h, partval)
			if err != nil {
				return err
			}
			if fld != nil {
				hc := countHalo(fld)
				folded[c.Rank()] = &hc
				assert.Equal(t, velosumOf(hc.vnum), fld.S.VeloLocSum)
				fld.Exit()
			}
			return nil
		})
		require.NoError(t, err, "partval %d", partval)
		assert.Equal(t, []int{21, 0, 1, 8}, []int{induced[0].vert, induced[1].vert, induced[2].vert, induced[3].vert})

		var vnum []int
		for p, hc := range folded {
			if (partval == 0) != (p < 2) {
				assert.Nil(t, hc)
				continue
			}
			require.NotNil(t, hc)
			assert.Equal(t, 15, hc.vert)
			// Each halo edge leads to its own halo vertex
			assert.Equal(t, hc.ehal, hc.vhal)
			for n, d := range hc.haloDegree {
				if n%6 == 2 {
					assert.Equal(t, 1, d, "vertex %d", n)
				} else {
					assert.Zero(t, d, "vertex %d", n)
				}
			}
			vnum = append(vnum, hc.vnum...)
		}
		var want []int
		for v := 0; v < ref.VertNbr; v++ {
			if v%6 < 3 {
				want = append(want, v)
			}
		}
		slices.Sort(vnum)
		assert.Equal(t, want, vnum)
	}
}

func velosumOf(vnum []int) (s int) {
	for _, n := range vnum {
		s += skewLoad(n)
	}
	return
}

func TestFoldSendFailure(t *testing.T) {
	// A pure sender that cannot post its chunk releases its receiver
	for _, halo := range []bool{false, true} {
		errs := make([]error, 2)
		err := comm.Run(2, func(c *comm.Comm) error {
			g, err := grid(c, 0, 5, 3, 1)
			if err != nil {
				return err
			}
			var h *Hdgraph
			if halo {
				parts, _, _ := stripParts(g)
				if h, err = g.InduceHalo(parts, types.Part0); err != nil {
					return err
				}
				g = &h.S
			}
			fp, err := FoldComm(g, 0)
			if err != nil {
				return err
			}
			color := comm.Undefined
			if fp.Survivor(g.ProcLocNum) {
				color = 0
			}
			fldComm, err := g.Comm.Split(color, g.ProcLocNum)
			if err != nil {
				return err
			}
			if fp.Role == RolePureSender {
				fp.SendTab[0].Proc = g.ProcGlbNbr
			}
			if halo {
				_, errs[c.Rank()] = hdgraphFoldExchange(h, fp, fldComm)
			} else {
				_, _, errs[c.Rank()] = foldExchange[int](g, fp, fldComm, nil)
			}
			return nil
		})
		require.NoError(t, err)
		assert.ErrorIs(t, errs[0], ErrPeerFailure, "halo %v", halo)
		assert.ErrorIs(t, errs[1], comm.ErrRankRange, "halo %v", halo)
	}
}
