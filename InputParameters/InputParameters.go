package InputParameters

import (
	"fmt"
	"io"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/gopart/dgraph"
)

// Parameters obtained from the YAML run file
type RunParameters struct {
	Title      string         `yaml:"Title"`
	Procs      int            `yaml:"Procs"`
	Base       int            `yaml:"Base"`
	Dims       []int          `yaml:"Dims"`       // Grid extent, missing dimensions are 1
	DistMax    int            `yaml:"DistMax"`    // Band width
	PartVal    int            `yaml:"PartVal"`    // Half kept by the folds
	FoldLevels int            `yaml:"FoldLevels"` // Number of successive folds, 0 folds down to one process
	VeloMax    int            `yaml:"VeloMax"`    // Vertex loads are drawn in [1, VeloMax], unit loads when 0
	EdgeLoads  bool           `yaml:"EdgeLoads"`
	Seed       uint64         `yaml:"Seed"`
	Log        map[string]int `yaml:"Log"` // Log level per stage: ghost, band, fold
}

// NewRunParameters returns the parameters used when no run file is given.
func NewRunParameters() *RunParameters {
	return &RunParameters{
		Title:   "grid",
		Procs:   4,
		Dims:    []int{8, 8, 1},
		DistMax: 3,
		Seed:    1,
	}
}

func (rp *RunParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, rp); err != nil {
		return err
	}
	return rp.Validate()
}

func (rp *RunParameters) Validate() error {
	switch {
	case rp.Procs < 1:
		return fmt.Errorf("process count %d must be positive", rp.Procs)
	case rp.Base != 0 && rp.Base != 1:
		return fmt.Errorf("base %d is neither 0 nor 1", rp.Base)
	case len(rp.Dims) == 0 || len(rp.Dims) > 3:
		return fmt.Errorf("grid needs between 1 and 3 dimensions, got %d", len(rp.Dims))
	case rp.DistMax < 1:
		return fmt.Errorf("band width %d must be positive", rp.DistMax)
	case rp.PartVal != 0 && rp.PartVal != 1:
		return fmt.Errorf("fold part value %d is neither 0 nor 1", rp.PartVal)
	case rp.FoldLevels < 0:
		return fmt.Errorf("fold level count %d is negative", rp.FoldLevels)
	case rp.VeloMax < 0:
		return fmt.Errorf("maximum vertex load %d is negative", rp.VeloMax)
	}
	for _, d := range rp.Dims {
		if d < 1 {
			return fmt.Errorf("grid dimensions %v must be positive", rp.Dims)
		}
	}
	return nil
}

// GridDims pads the grid extent to three dimensions.
func (rp *RunParameters) GridDims() (dims [3]int) {
	dims = [3]int{1, 1, 1}
	copy(dims[:], rp.Dims)
	return
}

func (rp *RunParameters) VertGlbNbr() int {
	d := rp.GridDims()
	return d[0] * d[1] * d[2]
}

/*
FoldCount is the number of folds of a run: FoldLevels when set, otherwise as
many as it takes to reach a single process, never more than the process count
allows.
*/
func (rp *RunParameters) FoldCount() (n int) {
	for p := rp.Procs; p > 1 && (rp.FoldLevels == 0 || n < rp.FoldLevels); n++ {
		_, p = dgraph.FoldHalf(p, rp.PartVal)
	}
	return
}

func (rp *RunParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", rp.Title)
	fmt.Fprintf(w, "[%d]\t\t\t= Processes\n", rp.Procs)
	fmt.Fprintf(w, "%v\t\t= Grid Dimensions (base %d)\n", rp.GridDims(), rp.Base)
	fmt.Fprintf(w, "[%d]\t\t\t= Band Width\n", rp.DistMax)
	fmt.Fprintf(w, "[%d]\t\t\t= Fold Part, %d fold(s)\n", rp.PartVal, rp.FoldCount())
	if rp.VeloMax > 0 {
		fmt.Fprintf(w, "[%d]\t\t\t= Max Vertex Load, seed %d\n", rp.VeloMax, rp.Seed)
	}
	if rp.EdgeLoads {
		fmt.Fprintf(w, "[on]\t\t\t= Edge Loads\n")
	}
	keys := make([]string, len(rp.Log))
	i := 0
	for k := range rp.Log {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "Log[%s] = %d\n", key, rp.Log[key])
	}
}
