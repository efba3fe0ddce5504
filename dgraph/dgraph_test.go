package dgraph

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/graph"
	"github.com/notargets/gopart/utils"
)

func TestMain(m *testing.M) {
	DebugChecks = true
	os.Exit(m.Run())
}

func grid(c *comm.Comm, base, dimx, dimy, dimz int) (*Dgraph, error) {
	return BuildGrid3D(c, GridOptions{Base: base, Dims: [3]int{dimx, dimy, dimz}})
}

func TestBuildGrid3D(t *testing.T) {
	{ // 3x3x1 slab on 4 processes
		ref, err := graph.Grid3D(0, 3, 3, 1)
		require.NoError(t, err)
		gathered := make([]*graph.Graph, 4)
		err = comm.Run(4, func(c *comm.Comm) error {
			g, err := grid(c, 0, 3, 3, 1)
			if err != nil {
				return err
			}
			assert.Equal(t, []int{0, 3, 5, 7, 9}, g.ProcVrtTab)
			assert.Equal(t, []int{3, 2, 2, 2}, g.ProcCntTab)
			assert.Equal(t, 9, g.VertGlbNbr)
			assert.Equal(t, 3, g.VertGlbMax)
			assert.Equal(t, 24, g.EdgeGlbNbr)
			assert.Equal(t, 4, g.DegrGlbMax)
			assert.Equal(t, 9, g.VeloGlbSum)
			assert.Equal(t, FlagCompact, g.Flags)
			if err = g.Check(); err != nil {
				return err
			}
			gathered[c.Rank()], err = g.Gather()
			return err
		})
		require.NoError(t, err)
		for _, cg := range gathered {
			assert.True(t, ref.EdgeKeys().Equal(cg.EdgeKeys()))
		}
	}
	{ // Loads do not depend on the number of processes
		sums := make([]int, 2)
		loads := make([][]int, 2)
		for i, np := range []int{1, 3} {
			err := comm.Run(np, func(c *comm.Comm) error {
				g, err := BuildGrid3D(c, GridOptions{
					Base:      1,
					Dims:      [3]int{4, 3, 2},
					VeloMax:   5,
					Random:    utils.NewRandom(42),
					EdgeLoads: true,
				})
				if err != nil {
					return err
				}
				if err = g.Check(); err != nil {
					return err
				}
				cg, err := g.Gather()
				if err != nil {
					return err
				}
				if c.Rank() == 0 {
					sums[i] = g.VeloGlbSum
					loads[i] = cg.Velo.Data
				}
				return nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, sums[0], sums[1])
		assert.Equal(t, loads[0], loads[1])
		for _, l := range loads[0] {
			assert.True(t, l >= 1 && l <= 5)
		}
	}
	{ // Empty grid fails on every process
		err := comm.Run(2, func(c *comm.Comm) error {
			_, err := grid(c, 0, 0, 3, 1)
			if !errors.Is(err, graph.ErrEmptyGrid) {
				return errors.New("empty grid accepted")
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestBuildErrors(t *testing.T) {
	errs := make([]error, 3)
	err := comm.Run(3, func(c *comm.Comm) error {
		g := Init(c)
		vert := []int{0, 1}
		edge := []int{0}
		if c.Rank() == 1 {
			edge = []int{0, 0}
			vert = []int{0, 3} // Edge range past the edge array
		}
		errs[c.Rank()] = g.Build(0, vert, nil, nil, nil, edge, nil)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, errs[0], ErrPeerFailure)
	assert.ErrorIs(t, errs[1], ErrInvalidGraph)
	assert.ErrorIs(t, errs[2], ErrPeerFailure)

	err = comm.Run(2, func(c *comm.Comm) error {
		errs[c.Rank()] = Init(c).Build(2, nil, nil, nil, nil, nil, nil)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, errs[0], ErrBase)
	assert.ErrorIs(t, errs[1], ErrBase)
}

func TestCheckDetectsAsymmetry(t *testing.T) {
	errs := make([]error, 2)
	err := comm.Run(2, func(c *comm.Comm) error {
		g := Init(c)
		// Vertex 0 on rank 0 points at vertex 1 on rank 1, which has no edge back
		var err error
		if c.Rank() == 0 {
			err = g.Build(0, []int{0, 1}, nil, nil, nil, []int{1}, nil)
		} else {
			err = g.Build(0, []int{0, 0}, nil, nil, nil, nil, nil)
		}
		if err != nil {
			return err
		}
		errs[c.Rank()] = g.Check()
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, errs[0], graph.ErrInvalidGraph)
	assert.ErrorIs(t, errs[1], graph.ErrInvalidGraph)
}

func TestScatterGather(t *testing.T) {
	ref, err := graph.Grid3D(1, 4, 4, 2)
	require.NoError(t, err)
	gathered := make([]*graph.Graph, 5)
	err = comm.Run(5, func(c *comm.Comm) error {
		g, err := Scatter(c, ref)
		if err != nil {
			return err
		}
		if err = g.Check(); err != nil {
			return err
		}
		gathered[c.Rank()], err = g.Gather()
		return err
	})
	require.NoError(t, err)
	for _, cg := range gathered {
		assert.Equal(t, ref.Vert.Data, cg.Vert.Data)
		assert.Equal(t, ref.Edge.Data, cg.Edge.Data)
	}
}

func TestFreeExit(t *testing.T) {
	err := comm.Run(2, func(c *comm.Comm) error {
		g, err := grid(c, 0, 2, 2, 1)
		if err != nil {
			return err
		}
		if err = g.Ghst(); err != nil {
			return err
		}
		g.Free()
		assert.Same(t, c, g.Comm)
		assert.Equal(t, 2, g.ProcGlbNbr)
		assert.Equal(t, c.Rank(), g.ProcLocNum)
		assert.Zero(t, g.VertLocNbr)
		assert.False(t, g.VertLoc.Has())
		assert.False(t, g.EdgeLoc.Has())
		assert.False(t, g.EdgeGst.Has())
		assert.Nil(t, g.ProcNgbTab)
		assert.Zero(t, g.Flags&FlagHasEdgeGst)
		// Process tables survive
		assert.Equal(t, []int{0, 2, 4}, g.ProcVrtTab)
		assert.Equal(t, []int{0, 2, 4}, g.ProcDspTab)
		assert.Equal(t, []int{2, 2}, g.ProcCntTab)
		assert.Equal(t, 2*c.Rank(), g.VertLocMin())
		assert.Equal(t, 1, g.Owner(3))
		// The structure can be rebuilt in place
		if err = g.Build(0, []int{0}, nil, nil, nil, nil, nil); err != nil {
			return err
		}
		assert.Equal(t, []int{0, 0, 0}, g.ProcVrtTab)
		g.Exit()
		assert.Nil(t, g.Comm)
		return nil
	})
	require.NoError(t, err)
}

func TestStats(t *testing.T) {
	stats := make([]LoadStats, 4)
	err := comm.Run(4, func(c *comm.Comm) error {
		g, err := grid(c, 0, 3, 3, 1)
		if err != nil {
			return err
		}
		stats[c.Rank()], err = g.Stats()
		return err
	})
	require.NoError(t, err)
	for _, st := range stats {
		assert.Equal(t, 2, st.MinVert)
		assert.Equal(t, 3, st.MaxVert)
		assert.InDelta(t, 2.25, st.AvgLoad, 1e-12)
		assert.InDelta(t, 3/2.25-1, st.Imbalance, 1e-12)
	}
}
