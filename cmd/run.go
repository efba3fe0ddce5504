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
	"github.com/notargets/gopart/dlog"
	"github.com/notargets/gopart/utils"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage: ghost, band, halo and fold",
		Long: `Prints the run parameters, then runs the ghost, band, halo and fold
stages one after the other on freshly built grids.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := runParameters()
			if err != nil {
				return err
			}
			return RunAll(rp, cmd.OutOrStdout())
		},
	}
}

// RunAll runs the stages in order and stops at the first failure.
func RunAll(rp *InputParameters.RunParameters, w io.Writer) (err error) {
	tl := dlog.NewTimeLog()
	rp.Print(w)
	stages := []struct {
		name string
		run  func() error
	}{
		{"ghost", func() error { _, err := RunGhost(rp, w); return err }},
		{"band", func() error { _, err := RunBand(rp, w); return err }},
		{"halo", func() error { _, err := RunHalo(rp, w); return err }},
		{"fold", func() error { _, err := RunFold(rp, w); return err }},
	}
	for _, s := range stages {
		fmt.Fprintf(w, "== %s ==\n", s.name)
		if err = s.run(); err != nil {
			return fmt.Errorf("%s stage: %w", s.name, err)
		}
	}
	tl.Infof("run %q complete", rp.Title)
	fmt.Fprintf(w, "memory: %s\n", utils.MemUsage())
	return
}
