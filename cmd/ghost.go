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

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/notargets/gopart/InputParameters"
	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/dgraph"
	"github.com/notargets/gopart/dlog"
)

type GhostReport struct {
	VertLocNbr int
	VertGstNbr int
	ProcNgbTab []int
	SendNbr    int
	Footprint  uint64
}

func newGhostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ghost",
		Short: "Build the ghost tables of a distributed grid",
		Long: `Builds the distributed grid, computes the ghost vertex numbering and
the neighbor process tables, and checks them with a halo exchange of the
global vertex numbers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := runParameters()
			if err != nil {
				return err
			}
			_, err = RunGhost(rp, cmd.OutOrStdout())
			return err
		},
	}
}

// RunGhost builds the ghost tables on every process and reports them per rank.
func RunGhost(rp *InputParameters.RunParameters, w io.Writer) (reps []GhostReport, err error) {
	defer stageLog(rp, "ghost")()
	tl := dlog.NewTimeLog()
	reps = make([]GhostReport, rp.Procs)
	err = comm.Run(rp.Procs, func(c *comm.Comm) error {
		g, err := buildGrid(c, rp)
		if err != nil {
			return err
		}
		defer g.Exit()
		if err = g.Ghst(); err != nil {
			return err
		}
		if err = checkGhosts(g); err != nil {
			return err
		}
		rep := GhostReport{
			VertLocNbr: g.VertLocNbr,
			VertGstNbr: g.VertGstNbr,
			ProcNgbTab: append([]int(nil), g.ProcNgbTab...),
			Footprint:  footprint(g),
		}
		for _, p := range g.ProcNgbTab {
			rep.SendNbr += g.ProcSndTab[p]
		}
		reps[c.Rank()] = rep
		return nil
	})
	if err != nil {
		return nil, err
	}
	tl.Infof("ghost tables of %d processes", rp.Procs)

	var (
		gsttot int
		memtot uint64
	)
	fmt.Fprintf(w, "%4s %9s %7s %6s %10s  %s\n", "rank", "vertices", "ghosts", "sent", "memory", "neighbors")
	for p, r := range reps {
		fmt.Fprintf(w, "%4d %9d %7d %6d %10s  %v\n", p, r.VertLocNbr, r.VertGstNbr-r.VertLocNbr,
			r.SendNbr, humanize.Bytes(r.Footprint), r.ProcNgbTab)
		gsttot += r.VertGstNbr - r.VertLocNbr
		memtot += r.Footprint
	}
	fmt.Fprintf(w, "ghosts %d, graph memory %s\n", gsttot, humanize.Bytes(memtot))
	return
}

// checkGhosts exchanges the global vertex numbers and compares every ghost
// with the end vertex of the arcs that lead to it.
func checkGhosts(g *dgraph.Dgraph) error {
	var (
		base = g.Base
		glb  = make([]int, g.VertGstNbr)
	)
	for i := range g.VertLocNbr {
		glb[i] = g.VertLocMin() + i
	}
	if err := dgraph.HaloSync(g, glb); err != nil {
		return err
	}
	for v := base; v < g.VertLocNnd; v++ {
		for e := g.VertLoc.At(v); e < g.VendLoc.At(v); e++ {
			if got := glb[g.EdgeGst.At(e)-base]; got != g.EdgeLoc.At(e) {
				return fmt.Errorf("rank %d: arc %d leads to %d but its ghost holds %d: %w",
					g.ProcLocNum, e, g.EdgeLoc.At(e), got, dgraph.ErrInvalidGraph)
			}
		}
	}
	return nil
}
