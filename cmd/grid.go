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
	"math/bits"

	"github.com/notargets/gopart/InputParameters"
	"github.com/notargets/gopart/comm"
	"github.com/notargets/gopart/dgraph"
	"github.com/notargets/gopart/dlog"
	"github.com/notargets/gopart/utils"
)

func buildGrid(c *comm.Comm, rp *InputParameters.RunParameters) (*dgraph.Dgraph, error) {
	opts := dgraph.GridOptions{
		Base:      rp.Base,
		Dims:      rp.GridDims(),
		VeloMax:   rp.VeloMax,
		EdgeLoads: rp.EdgeLoads,
	}
	if rp.VeloMax > 0 {
		opts.Random = utils.NewRandom(rp.Seed)
	}
	return dgraph.BuildGrid3D(c, opts)
}

// footprint is the size in bytes of the local graph arrays and ghost tables.
func footprint(g *dgraph.Dgraph) uint64 {
	n := g.VertLoc.Len() + g.VeloLoc.Len() + g.VnumLoc.Len() + g.VlblLoc.Len() +
		g.EdgeLoc.Len() + g.EdgeGst.Len() + g.EdloLoc.Len() +
		len(g.ProcVrtTab) + len(g.ProcDspTab) + len(g.ProcCntTab) +
		len(g.ProcNgbTab) + len(g.ProcRcvTab) + len(g.ProcSndTab) + len(g.ProcSidTab)
	if g.Flags&dgraph.FlagCompact == 0 {
		n += g.VendLoc.Len()
	}
	return uint64(n) * bits.UintSize / 8
}

// stageLog applies the log level the run file gives to a stage and returns
// the function restoring the previous one.
func stageLog(rp *InputParameters.RunParameters, stage string) func() {
	prev := dlog.Mode()
	if lvl, ok := rp.Log[stage]; ok {
		dlog.SetLogMode(dlog.ModeFlag(lvl))
	}
	return func() { dlog.SetLogMode(prev) }
}
