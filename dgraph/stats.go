package dgraph

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gopart/comm"
)

// LoadStats describes the spread of vertices and loads over the processes.
type LoadStats struct {
	MinVert, MaxVert int
	MinLoad, MaxLoad float64
	AvgLoad          float64
	StdDev           float64
	Imbalance        float64 // Max over average, minus one
}

// Stats gathers the per-process loads. It is collective.
func (g *Dgraph) Stats() (st LoadStats, err error) {
	var all []int
	if all, err = comm.Allgather(g.Comm, []int{g.VertLocNbr, g.VeloLocSum}); err != nil {
		return
	}
	var (
		loads = make([]float64, g.ProcGlbNbr)
		verts = make([]float64, g.ProcGlbNbr)
	)
	for p := range loads {
		verts[p] = float64(all[2*p])
		loads[p] = float64(all[2*p+1])
	}
	st.MinVert, st.MaxVert = int(floats.Min(verts)), int(floats.Max(verts))
	st.MinLoad, st.MaxLoad = floats.Min(loads), floats.Max(loads)
	if len(loads) > 1 {
		st.AvgLoad, st.StdDev = stat.MeanStdDev(loads, nil)
	} else {
		st.AvgLoad = loads[0]
	}
	if st.AvgLoad > 0 {
		st.Imbalance = st.MaxLoad/st.AvgLoad - 1
	}
	return
}
