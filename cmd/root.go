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
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gopart/InputParameters"
	"github.com/notargets/gopart/dlog"
)

var (
	cfgFile string
	prof    interface{ Stop() }
)

var rootCmd = NewRootCmd()

// NewRootCmd builds the gopart command tree and binds its flags to the configuration.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gopart",
		Short: "Distributed graph engine driver",
		Long: `Builds a distributed grid graph on goroutine processes and runs the
engine stages on it: ghost tables, band extraction around a separator,
halo graph induction and folding onto half of the processes.

Parameters come from a YAML run file (-I), from $HOME/.gopart.yaml, from
GOPART_ environment variables and from the flags, the last ones winning.`,
		SilenceUsage:      true,
		PersistentPreRunE: startup,
		PersistentPostRun: shutdown,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gopart.yaml)")
	pf.StringP("inputParametersFile", "I", "", "YAML file for run parameters like:\n\t- Procs, Dims, Base\n\t- DistMax, PartVal, FoldLevels")
	pf.IntP("procs", "n", 4, "number of processes")
	pf.IntSliceP("dims", "D", []int{8, 8, 1}, "grid dimensions")
	pf.Int("base", 0, "base of the vertex and edge numbering, 0 or 1")
	pf.Int("distMax", 3, "band width")
	pf.Int("partVal", 0, "half of the processes kept by the folds, 0 or 1")
	pf.Int("foldLevels", 0, "number of folds, 0 folds down to one process")
	pf.Int("veloMax", 0, "draw vertex loads in [1, veloMax], unit loads when 0")
	pf.Bool("edgeLoads", false, "give grid edges a load")
	pf.Uint64("seed", 1, "seed of the vertex load generator")
	pf.BoolP("verbose", "v", false, "log engine operations")
	pf.String("logfile", "", "write the log to a rotated file")
	pf.String("profile", "", "profile the run: cpu or mem")
	for _, name := range []string{"inputParametersFile", "procs", "dims", "base", "distMax", "partVal",
		"foldLevels", "veloMax", "edgeLoads", "seed", "verbose", "logfile", "profile"} {
		if err := viper.BindPFlag(name, pf.Lookup(name)); err != nil {
			panic(err)
		}
	}
	cmd.AddCommand(newGhostCmd(), newBandCmd(), newHaloCmd(), newFoldCmd(), newRunCmd())
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		// Search config in home directory with name ".gopart" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".gopart")
	}
	viper.SetEnvPrefix("GOPART")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		dlog.Infof("Using config file: %s", viper.ConfigFileUsed())
	}
}

func startup(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		dlog.SetLogMode(dlog.DebugMode)
	} else {
		dlog.SetLogMode(dlog.InfoMode)
	}
	if logfile := viper.GetString("logfile"); logfile != "" {
		lc := &dlog.LogConfig{
			Logfile: logfile,
			MaxSize: 10,
			MaxAge:  7,
		}
		lc.SetLogger()
	}
	switch mode := viper.GetString("profile"); mode {
	case "":
	case "cpu":
		prof = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
	case "mem":
		prof = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
	default:
		return fmt.Errorf("unknown profile mode %q, expected cpu or mem", mode)
	}
	return nil
}

func shutdown(cmd *cobra.Command, args []string) {
	if prof != nil {
		prof.Stop()
		prof = nil
	}
	dlog.Shutdown()
}

/*
runParameters assembles the run parameters: defaults, then the run file, then
the configuration keys that were set by a flag, the config file or the
environment.
*/
func runParameters() (rp *InputParameters.RunParameters, err error) {
	rp = InputParameters.NewRunParameters()
	if file := viper.GetString("inputParametersFile"); file != "" {
		var data []byte
		if data, err = os.ReadFile(file); err != nil {
			return nil, err
		}
		if err = rp.Parse(data); err != nil {
			return nil, fmt.Errorf("run file %s: %w", file, err)
		}
	}
	if viper.IsSet("procs") {
		rp.Procs = viper.GetInt("procs")
	}
	if viper.IsSet("dims") {
		rp.Dims = viper.GetIntSlice("dims")
	}
	if viper.IsSet("base") {
		rp.Base = viper.GetInt("base")
	}
	if viper.IsSet("distMax") {
		rp.DistMax = viper.GetInt("distMax")
	}
	if viper.IsSet("partVal") {
		rp.PartVal = viper.GetInt("partVal")
	}
	if viper.IsSet("foldLevels") {
		rp.FoldLevels = viper.GetInt("foldLevels")
	}
	if viper.IsSet("veloMax") {
		rp.VeloMax = viper.GetInt("veloMax")
	}
	if viper.IsSet("edgeLoads") {
		rp.EdgeLoads = viper.GetBool("edgeLoads")
	}
	if viper.IsSet("seed") {
		rp.Seed = viper.GetUint64("seed")
	}
	if err = rp.Validate(); err != nil {
		return nil, err
	}
	return
}
