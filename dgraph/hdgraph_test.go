package dgraph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/types"
)

type haloCounts struct {
	vert, vhal, ehal int
	vnum             []int
	haloDegree       map[int]int // By original vertex number
}

func countHalo(h *Hdgraph) (hc haloCounts) {
	g := &h.S
	hc = haloCounts{
		vert:       g.VertLocNbr,
		vhal:       h.VhalLocNbr,
		ehal:       h.EhalLocNbr,
		haloDegree: make(map[int]int),
	}
	for v := g.Base; v < g.VertLocNnd; v++ {
		hc.vnum = append(hc.vnum, g.VnumLoc.At(v))
		hc.haloDegree[g.VnumLoc.At(v)] = h.VhndLoc.At(v) - g.VendLoc.At(v)
	}
	return
}

func TestInduceHaloAndFold(t *testing.T) {
	var (
		induced = make([]haloCounts, 3)
		folded  = make([]*haloCounts, 3)
	)
	err := comm.Run(3, func(c *comm.Comm) error {
		g, err := grid(c, 0, 5, 3, 1)
		if err != nil {
			return err
		}
		if err = g.Ghst(); err != nil {
			return err
		}
		parts, _, _ := stripParts(g)
		h, err := g.InduceHalo(parts, types.Part0)
		if err != nil {
			return err
		}
		induced[c.Rank()] = countHalo(h)
		fld, err := HdgraphFold(h, 0)
		if err != nil {
			return err
		}
		if fld != nil {
			hc := countHalo(fld)
			folded[c.Rank()] = &hc
			assert.NotZero(t, fld.S.Flags&FlagFreeComm)
			fld.Exit()
		}
		return nil
	})
	require.NoError(t, err)

	for _, hc := range induced {
		assert.Equal(t, 2, hc.vert)
		assert.Equal(t, 1, hc.vhal)
		assert.Equal(t, 1, hc.ehal)
	}
	assert.Equal(t, []int{0, 1}, induced[0].vnum)
	assert.Equal(t, []int{10, 11}, induced[2].vnum)

	require.Nil(t, folded[2])
	var (
		vnum             []int
		vert, vhal, ehal int
	)
	for _, hc := range folded[:2] {
		require.NotNil(t, hc)
		assert.Equal(t, 3, hc.vert)
		vnum = append(vnum, hc.vnum...)
		vert += hc.vert
		vhal += hc.vhal
		ehal += hc.ehal
		for n, d := range hc.haloDegree {
			if n%5 == 1 {
				assert.Equal(t, 1, d, "vertex %d", n)
			} else {
				assert.Zero(t, d, "vertex %d", n)
			}
		}
	}
	slices.Sort(vnum)
	assert.Equal(t, []int{0, 1, 5, 6, 10, 11}, vnum)
	assert.Equal(t, 6, vert)
	assert.Equal(t, 3, ehal)
	// Halo numbers are compact per process: rank 0 receives a vertex without halo
	assert.Equal(t, 1, folded[0].vhal)
	assert.Equal(t, 2, folded[1].vhal)
	assert.Equal(t, 3, vhal)
}

func TestHdgraphCheck(t *testing.T) {
	errs := make([]error, 2)
	err := comm.Run(2, func(c *comm.Comm) error {
		g, err := grid(c, 0, 5, 2, 1)
		if err != nil {
			return err
		}
		parts, _, _ := stripParts(g)
		h, err := g.InduceHalo(parts, types.Part1)
		if err != nil {
			return err
		}
		if c.Rank() == 1 {
			h.EhalLocNbr++
		}
		errs[c.Rank()] = h.Check()
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, errs[0], ErrPeerFailure)
	assert.ErrorIs(t, errs[1], ErrInvalidGraph)
}
