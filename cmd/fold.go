/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/notargets/gopart/InputParameters"
	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/dgraph"
	"github.com/notargets/gopart/dlog"
)

// FoldLevel describes the graph after one fold.
type FoldLevel struct {
	ProcGlbNbr int
	ProcVrtTab []int
	Roles      map[dgraph.FoldRole]int // Processes per role in the fold leading here
	Stats      dgraph.LoadStats
	Footprint  uint64
}

func newFoldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fold",
		Short: "Fold a distributed grid onto half of its processes, repeatedly",
		Long: `Folds the distributed grid FoldLevels times, or down to one process when
FoldLevels is 0, each time onto the first (PartVal 0) or last (PartVal 1)
half of the processes, carrying the vertex owners along as fold information.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := runParameters()
			if err != nil {
				return err
			}
			_, err = RunFold(rp, cmd.OutOrStdout())
			return err
		},
	}
}

// RunFold folds the grid level after level and reports each level.
func RunFold(rp *InputParameters.RunParameters, w io.Writer) (levels []FoldLevel, err error) {
	defer stageLog(rp, "fold")()
	var (
		tl   = dlog.NewTimeLog()
		nlev = rp.FoldCount()
	)
	levels = make([]FoldLevel, nlev)
	err = comm.Run(rp.Procs, func(c *comm.Comm) error {
		g, err := buildGrid(c, rp)
		if err != nil {
			return err
		}
		vrttab := append([]int(nil), g.ProcVrtTab...)
		owner := make([]int, g.VertLocNbr)
		for i := range owner {
			owner[i] = c.Rank()
		}
		for lev := range nlev {
			fp, err := dgraph.FoldComm(g, rp.PartVal)
			if err != nil {
				g.Exit()
				return err
			}
			roles, err := comm.Allgather(g.Comm, []int{int(fp.Role)})
			if err != nil {
				g.Exit()
				return err
			}
			fld, fldowner, err := dgraph.FoldInfo(g, rp.PartVal, owner)
			g.Exit()
			if err != nil || fld == nil {
				return err
			}
			for i, p := range fldowner {
				n := fld.VnumLoc.At(fld.Base + i)
				if q := sort.SearchInts(vrttab, n+1) - 1; q != p {
					fld.Exit()
					return fmt.Errorf("vertex %d owned by %d arrives from %d: %w", n, q, p, dgraph.ErrInvalidGraph)
				}
			}
			st, err := fld.Stats()
			if err != nil {
				fld.Exit()
				return err
			}
			if fld.ProcLocNum == 0 {
				lvl := FoldLevel{
					ProcGlbNbr: fld.ProcGlbNbr,
					ProcVrtTab: append([]int(nil), fld.ProcVrtTab...),
					Roles:      make(map[dgraph.FoldRole]int),
					Stats:      st,
					Footprint:  footprint(fld),
				}
				for _, r := range roles {
					lvl.Roles[dgraph.FoldRole(r)]++
				}
				levels[lev] = lvl
			}
			g, owner = fld, fldowner
		}
		g.Exit()
		return nil
	})
	if err != nil {
		return nil, err
	}
	tl.Infof("%d fold(s) from %d processes", nlev, rp.Procs)

	for lev, l := range levels {
		fmt.Fprintf(w, "level %d: %d process(es), vertices %v\n", lev+1, l.ProcGlbNbr, l.ProcVrtTab)
		fmt.Fprintf(w, "  senders %d, receivers %d, senders-receivers %d\n",
			l.Roles[dgraph.RolePureSender], l.Roles[dgraph.RolePureReceiver], l.Roles[dgraph.RoleSenderReceiver])
		fmt.Fprintf(w, "  vertices per process %d..%d, load imbalance %.3f, rank 0 memory %s\n",
			l.Stats.MinVert, l.Stats.MaxVert, l.Stats.Imbalance, humanize.Bytes(l.Footprint))
	}
	return
}
