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
	"github.com/notargets/gopart/types"
)

// HaloCounts are the local sizes of a halo graph.
type HaloCounts struct {
	VertLocNbr int
	VhalLocNbr int
	EhalLocNbr int
}

type HaloReport struct {
	Induced []HaloCounts
	Folded  []HaloCounts // Empty when the run does not fold
}

func newHaloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "halo",
		Short: "Induce the halo graph of one half of a bisected grid and fold it",
		Long: `Bisects the distributed grid like the band command, induces the graph of
the part PartVal with the vertices of the other parts as its halo, and folds
that halo graph once onto the processes of half PartVal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := runParameters()
			if err != nil {
				return err
			}
			_, err = RunHalo(rp, cmd.OutOrStdout())
			return err
		},
	}
}

func haloCounts(h *dgraph.Hdgraph) HaloCounts {
	return HaloCounts{VertLocNbr: h.S.VertLocNbr, VhalLocNbr: h.VhalLocNbr, EhalLocNbr: h.EhalLocNbr}
}

// RunHalo induces and folds the halo graph of part PartVal.
func RunHalo(rp *InputParameters.RunParameters, w io.Writer) (rep *HaloReport, err error) {
	defer stageLog(rp, "halo")()
	var (
		tl      = dlog.NewTimeLog()
		fold    = rp.FoldCount() > 0
		fldproc int
	)
	rep = &HaloReport{Induced: make([]HaloCounts, rp.Procs)}
	if fold {
		var fldmin int
		fldmin, fldproc = dgraph.FoldHalf(rp.Procs, rp.PartVal)
		rep.Folded = make([]HaloCounts, fldproc)
		defer func() {
			if err == nil {
				tl.Infof("halo graph folded onto ranks %d to %d", fldmin, fldmin+fldproc-1)
			}
		}()
	}
	err = comm.Run(rp.Procs, func(c *comm.Comm) error {
		g, err := buildGrid(c, rp)
		if err != nil {
			return err
		}
		defer g.Exit()
		parts, _, _ := dgraph.GridBisection(g, rp.GridDims()[0])
		h, err := g.InduceHalo(parts, types.GraphPart(rp.PartVal))
		if err != nil {
			return err
		}
		defer h.Exit()
		rep.Induced[c.Rank()] = haloCounts(h)
		if !fold {
			return nil
		}
		fld, err := dgraph.HdgraphFold(h, rp.PartVal)
		if err != nil || fld == nil {
			return err
		}
		rep.Folded[fld.S.ProcLocNum] = haloCounts(fld)
		fld.Exit()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum := func(hc []HaloCounts) (s HaloCounts) {
		for _, c := range hc {
			s.VertLocNbr += c.VertLocNbr
			s.VhalLocNbr += c.VhalLocNbr
			s.EhalLocNbr += c.EhalLocNbr
		}
		return
	}
	fmt.Fprintf(w, "%4s %9s %6s %11s\n", "rank", "vertices", "halo", "halo edges")
	for p, hc := range rep.Induced {
		fmt.Fprintf(w, "%4d %9d %6d %11d\n", p, hc.VertLocNbr, hc.VhalLocNbr, hc.EhalLocNbr)
	}
	s := sum(rep.Induced)
	fmt.Fprintf(w, "induced part %d: %d vertices, %d halo edges\n", rp.PartVal, s.VertLocNbr, s.EhalLocNbr)
	if fold {
		for p, hc := range rep.Folded {
			fmt.Fprintf(w, "%4d %9d %6d %11d\n", p, hc.VertLocNbr, hc.VhalLocNbr, hc.EhalLocNbr)
		}
		s = sum(rep.Folded)
		fmt.Fprintf(w, "folded onto %d process(es): %d vertices, %d halo edges\n", fldproc, s.VertLocNbr, s.EhalLocNbr)
	}
	return
}
