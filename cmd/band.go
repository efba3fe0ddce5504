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

	"github.com/spf13/cobra"

	"github.com/notargets/gopart/InputParameters"
	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/dgraph"
	"github.com/notargets/gopart/dlog"
)

type BandRank struct {
	BandNbr    int    // Band vertices, anchors excluded
	Part1Nbr   int    // Band vertices of part 1
	LastLevel  int    // Vertices of the last level
	AnchorLoad [2]int // Loads of the part 0 and part 1 anchors
}

type BandReport struct {
	Ranks      []BandRank
	VertGlbNbr int // Anchors included
	EdgeGlbNbr int
	Components int
	AnchorBump bool
	Imbalance  float64
}

func newBandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "band",
		Short: "Extract the band graph around the separator of a bisected grid",
		Long: `Bisects the distributed grid along the plane x = Dims[0]/2 and extracts
the band of the vertices within DistMax hops of that separator, with one
anchor per part and process standing for the vertices left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := runParameters()
			if err != nil {
				return err
			}
			_, err = RunBand(rp, cmd.OutOrStdout())
			return err
		},
	}
}

// RunBand extracts the band graph and reports its shape.
func RunBand(rp *InputParameters.RunParameters, w io.Writer) (rep *BandReport, err error) {
	defer stageLog(rp, "band")()
	tl := dlog.NewTimeLog()
	rep = &BandReport{Ranks: make([]BandRank, rp.Procs)}
	err = comm.Run(rp.Procs, func(c *comm.Comm) error {
		g, err := buildGrid(c, rp)
		if err != nil {
			return err
		}
		defer g.Exit()
		parts, frontier, load := dgraph.GridBisection(g, rp.GridDims()[0])
		bg, err := g.Band(dgraph.BandInput{
			Frontier:     frontier,
			Parts:        parts,
			CompLocLoad0: load[0],
			CompLocLoad1: load[1],
			DistMax:      rp.DistMax,
		})
		if err != nil {
			return err
		}
		b := bg.Graph
		defer b.Exit()
		anchor0 := b.VertLocNnd - 2
		rep.Ranks[c.Rank()] = BandRank{
			BandNbr:    b.VertLocNbr - 2,
			Part1Nbr:   bg.VertLocNbr1,
			LastLevel:  anchor0 - bg.VertLvlNum,
			AnchorLoad: [2]int{b.VeloLoc.At(anchor0), b.VeloLoc.At(anchor0 + 1)},
		}
		cg, err := b.Gather()
		if err != nil {
			return err
		}
		st, err := b.Stats()
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			rep.VertGlbNbr = cg.VertNbr
			rep.EdgeGlbNbr = cg.EdgeNbr
			rep.Components = cg.Components()
			rep.AnchorBump = bg.AnchorBump
			rep.Imbalance = st.Imbalance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	tl.Infof("band of width %d on %d processes", rp.DistMax, rp.Procs)

	fmt.Fprintf(w, "%4s %6s %6s %6s %13s\n", "rank", "band", "part1", "last", "anchor loads")
	for p, r := range rep.Ranks {
		fmt.Fprintf(w, "%4d %6d %6d %6d %6d %6d\n", p, r.BandNbr, r.Part1Nbr, r.LastLevel,
			r.AnchorLoad[0], r.AnchorLoad[1])
	}
	fmt.Fprintf(w, "band graph: %d vertices, %d arcs, %d component(s), load imbalance %.3f\n",
		rep.VertGlbNbr, rep.EdgeGlbNbr, rep.Components, rep.Imbalance)
	if rep.AnchorBump {
		fmt.Fprintf(w, "anchor loads raised by one\n")
	}
	return
}
