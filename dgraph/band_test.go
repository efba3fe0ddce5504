package dgraph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/graph"
	"github.com/notargets/gopart/types"
	"github.com/notargets/gopart/utils"
)

// stripParts cuts a 5-wide grid in columns: x<2 in part 0, x=2 on the
// separator, x>2 in part 1.
func stripParts(g *Dgraph) (parts []types.GraphPart, frontier []int, load [2]int) {
	return GridBisection(g, 5)
}

type bandResult struct {
	bg      *BandGraph
	cg      *graph.Graph
	procvrt []int
}

func runBand(t *testing.T, np, base, distmax int) []bandResult {
	t.Helper()
	res := make([]bandResult, np)
	err := comm.Run(np, func(c *comm.Comm) error {
		g, err := BuildGrid3D(c, GridOptions{Base: base, Dims: [3]int{5, 3, 1}, EdgeLoads: true})
		if err != nil {
			return err
		}
		if err = g.Ghst(); err != nil {
			return err
		}
		parts, frontier, load := stripParts(g)
		bg, err := g.Band(BandInput{
			Frontier:     frontier,
			Parts:        parts,
			CompLocLoad0: load[0],
			CompLocLoad1: load[1],
			DistMax:      distmax,
		})
		if err != nil {
			return err
		}
		cg, err := bg.Graph.Gather()
		if err != nil {
			return err
		}
		res[c.Rank()] = bandResult{bg: bg, cg: cg, procvrt: bg.Graph.ProcVrtTab}
		return nil
	})
	require.NoError(t, err)
	return res
}

func bandReference(t *testing.T, distmax int) (verts []int) {
	ref, err := graph.Grid3D(0, 5, 3, 1)
	require.NoError(t, err)
	for v, d := range ref.Distances([]int{2, 7, 12}, distmax) {
		if d >= 0 {
			verts = append(verts, v)
		}
	}
	return
}

func TestBandOneLevel(t *testing.T) {
	for _, base := range []int{0, 1} {
		for _, distmax := range []int{0, 1} { // Zero acts as one
			res := runBand(t, 3, base, distmax)
			var (
				vnums   []int
				loadsum int
			)
			for p, r := range res {
				bg, g := r.bg, r.bg.Graph
				assert.Equal(t, 5, g.VertLocNbr)
				assert.Equal(t, []int{base}, bg.Frontier)
				assert.Equal(t, base+1, bg.VertLvlNum)
				assert.Equal(t, 1, bg.VertLocNbr1)
				assert.False(t, bg.AnchorBump)
				assert.Equal(t, []types.GraphPart{types.PartSep, types.Part0, types.Part1,
					types.Part0, types.Part1}, bg.Parts)
				assert.Equal(t, AnchorVnum, g.VnumLoc.At(base+3))
				assert.Equal(t, AnchorVnum, g.VnumLoc.At(base+4))
				assert.Equal(t, []int{1, 1}, g.VeloLoc.Slice(base+3, base+5))
				for side := 0; side < 2; side++ {
					a := base + 3 + side
					assert.Equal(t, 3, g.VendLoc.At(a)-g.VertLoc.At(a))
					for e := g.VertLoc.At(a); e < g.VendLoc.At(a); e++ {
						assert.Equal(t, 1, g.EdloLoc.At(e))
					}
					// The last level vertex of each side ends with an arc to the local anchor
					v := base + 1 + side
					assert.Equal(t, r.procvrt[p]+3+side, g.EdgeLoc.At(g.VendLoc.At(v)-1))
				}
				loadsum += g.VeloLocSum
			}
			for v := base; v < res[0].cg.VertNnd; v++ {
				if n := res[0].cg.VertexNumber(v); n != AnchorVnum {
					vnums = append(vnums, n-base)
				}
			}
			slices.Sort(vnums)
			assert.Equal(t, bandReference(t, 1), vnums)
			assert.Equal(t, 15, loadsum)
		}
	}
}

func TestBandWholeGraph(t *testing.T) {
	res := runBand(t, 3, 0, 2)
	loadsum := 0
	for _, r := range res {
		bg := r.bg
		assert.Equal(t, 7, bg.Graph.VertLocNbr)
		assert.Equal(t, 3, bg.VertLvlNum)
		assert.True(t, bg.AnchorBump)
		assert.Equal(t, 2, bg.VertLocNbr1)
		assert.Equal(t, []types.GraphPart{types.PartSep, types.Part0, types.Part1,
			types.Part0, types.Part1, types.Part0, types.Part1}, bg.Parts)
		assert.Equal(t, []int{1, 1}, bg.Graph.VeloLoc.Slice(5, 7))
		loadsum += bg.Graph.VeloLocSum
	}
	assert.Equal(t, bandReference(t, 2), []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14})
	// Every anchor was raised by one
	assert.Equal(t, 15+2*3, loadsum)
}

func TestBandAcrossProcesses(t *testing.T) {
	// Rank boundaries fall inside grid rows, so level members are found
	// through ghosts as well as locally
	const dimx, dimy = 7, 5
	ref, err := graph.Grid3D(0, dimx, dimy, 1)
	require.NoError(t, err)
	var seps []int
	for y := 0; y < dimy; y++ {
		seps = append(seps, y*dimx+dimx/2)
	}
	for np := 2; np <= 6; np++ {
		for distmax := 1; distmax <= 3; distmax++ {
			var (
				base = np % 2
				orig = make([]*graph.Graph, np)
				res  = make([]bandResult, np)
			)
			err := comm.Run(np, func(c *comm.Comm) error {
				g, err := BuildGrid3D(c, GridOptions{
					Base:      base,
					Dims:      [3]int{dimx, dimy, 1},
					VeloMax:   6,
					Random:    utils.NewRandom(uint64(np)),
					EdgeLoads: true,
				})
				if err != nil {
					return err
				}
				if orig[c.Rank()], err = g.Gather(); err != nil {
					return err
				}
				parts, frontier, load := GridBisection(g, dimx)
				bg, err := g.Band(BandInput{
					Frontier:     frontier,
					Parts:        parts,
					CompLocLoad0: load[0],
					CompLocLoad1: load[1],
					DistMax:      distmax,
				})
				if err != nil {
					return err
				}
				if err = bg.Graph.Check(); err != nil {
					return err
				}
				cg, err := bg.Graph.Gather()
				if err != nil {
					return err
				}
				res[c.Rank()] = bandResult{bg: bg, cg: cg, procvrt: bg.Graph.ProcVrtTab}
				return nil
			})
			require.NoError(t, err, "%d procs, distance %d", np, distmax)

			var (
				band, last     []int
				loadsum, bumps int
				vertnbr1       int
				wantBand       []int
				wantLast       []int
				wantNbr1       int
			)
			for _, r := range res {
				g := r.bg.Graph
				for bv := g.Base; bv < g.VertLocNnd-2; bv++ {
					n := g.VnumLoc.At(bv) - base
					band = append(band, n)
					if bv >= r.bg.VertLvlNum {
						last = append(last, n)
					}
					want := types.Part1
					switch x := n % dimx; {
					case x < dimx/2:
						want = types.Part0
					case x == dimx/2:
						want = types.PartSep
					}
					assert.Equal(t, want, r.bg.Parts[bv-g.Base], "vertex %d", n)
					assert.Equal(t, orig[0].VertexLoad(n+base), g.VeloLoc.At(bv), "vertex %d", n)
				}
				assert.Equal(t, AnchorVnum, g.VnumLoc.At(g.VertLocNnd-2))
				assert.Equal(t, AnchorVnum, g.VnumLoc.At(g.VertLocNnd-1))
				loadsum += g.VeloLocSum
				vertnbr1 += r.bg.VertLocNbr1
				if r.bg.AnchorBump {
					bumps++
				}
			}
			for v, d := range ref.Distances(seps, distmax) {
				if d < 0 {
					continue
				}
				wantBand = append(wantBand, v)
				if d == distmax {
					wantLast = append(wantLast, v)
				}
				if v%dimx > dimx/2 {
					wantNbr1++
				}
			}
			slices.Sort(band)
			slices.Sort(last)
			assert.Equal(t, wantBand, band, "%d procs, distance %d", np, distmax)
			assert.Equal(t, wantLast, last, "%d procs, distance %d", np, distmax)
			assert.Equal(t, wantNbr1, vertnbr1)
			// Anchors make up for the vertices left out, plus one per bumped anchor
			assert.Equal(t, orig[0].VeloSum+2*bumps, loadsum, "%d procs, distance %d", np, distmax)
			assert.Equal(t, loadsum, res[0].cg.VeloSum)
			assert.Equal(t, len(wantBand)+2*np, res[0].cg.VertNbr)
		}
	}
}

func TestBandErrors(t *testing.T) {
	errs := make([]error, 2)
	err := comm.Run(2, func(c *comm.Comm) error {
		g, err := grid(c, 0, 5, 2, 1)
		if err != nil {
			return err
		}
		parts, frontier, load := stripParts(g)
		if c.Rank() == 1 {
			frontier = append(frontier, frontier[0])
		}
		_, errs[c.Rank()] = g.Band(BandInput{Frontier: frontier, Parts: parts,
			CompLocLoad0: load[0], CompLocLoad1: load[1], DistMax: 1})
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, errs[0], ErrPeerFailure)
	assert.ErrorIs(t, errs[1], ErrFrontier)

	err = comm.Run(2, func(c *comm.Comm) error {
		g, err := grid(c, 0, 5, 2, 1)
		if err != nil {
			return err
		}
		parts, frontier, _ := stripParts(g)
		_, errs[c.Rank()] = g.Band(BandInput{Frontier: frontier, Parts: parts, DistMax: 1})
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, errs[0], ErrAnchorLoad)
	assert.ErrorIs(t, errs[1], ErrAnchorLoad)
}
