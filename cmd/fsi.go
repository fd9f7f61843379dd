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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/denMaier/solids4foam-sub000/InputParameters"
	"github.com/denMaier/solids4foam-sub000/coupling"
	"github.com/denMaier/solids4foam-sub000/model_problems/Channel2D"
	"github.com/denMaier/solids4foam-sub000/utils"
)

type ModelFSI struct {
	ICFile         string
	CheckpointFile string
	RestartFile    string
	Graph          bool
	Delay          time.Duration
	RunOptions
}

const exampleFSIFile = `
########################################
Title: "Flexible channel"
Length: 1
Height: 0.1
Depth: 0.1
Viscosity: 1
FlowRate: 0.01
RampTime: 0.5
Tension: 100
Foundation: 10000
FluidCells: 20
FluidLayers: 4
SolidCells: 15
MeshMotion: wendland # gaussian, tps
TimeStep: 0.25
Steps: 4
Predictor: previous # extrapolate
Coupling:
  Acceleration: aitken # fixed, iqn-ils
  InitialRelaxation: 0.1
  Tolerance: 1.e-6
  MaxIterations: 50
  OnDivergence: abort # accept
########################################
`

// FSICmd represents the fsi command
var FSICmd = &cobra.Command{
	Use:   "fsi",
	Short: "Channel flow with a flexible wall, coupled by partitioned iteration",
	Long: `
Solves lubrication flow through a channel whose upper wall is a tensioned
membrane. Fluid and membrane interfaces do not match; tractions and
displacements cross by area weighted exchange.

gofsi fsi -I channel.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		mf := &ModelFSI{RunOptions: runOptions()}
		fmt.Println("fsi called")
		mf.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		mf.CheckpointFile, _ = cmd.Flags().GetString("checkpoint")
		mf.RestartFile, _ = cmd.Flags().GetString("restart")
		mf.Graph, _ = cmd.Flags().GetBool("graph")
		Delay, _ := cmd.Flags().GetInt("delay")
		mf.Delay = time.Duration(Delay)
		ip := processFSIInput(mf)
		if err := execute(mf.RunOptions, func() error { return RunFSI(mf, ip, os.Stdout) }); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(FSICmd)
	FSICmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Viscosity\n\t- Tension")
	FSICmd.Flags().StringP("checkpoint", "c", "", "file to write the coupling state to at the end of the run")
	FSICmd.Flags().StringP("restart", "r", "", "checkpoint file to continue from")
	FSICmd.Flags().BoolP("graph", "g", false, "display a graph of deflection and pressure while computing")
	FSICmd.Flags().IntP("delay", "d", 0, "milliseconds of delay for plotting")
}

func processFSIInput(mf *ModelFSI) (ip *InputParameters.FSIParameters) {
	if len(mf.ICFile) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", exampleFSIFile)
		os.Exit(1)
	}
	var (
		data []byte
		err  error
	)
	if data, err = os.ReadFile(mf.ICFile); err != nil {
		panic(err)
	}
	ip = InputParameters.NewFSIParameters()
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	return
}

// newFSIChannel builds the channel from the case parameters and the run options
func newFSIChannel(mf *ModelFSI, ip *InputParameters.FSIParameters, w io.Writer) (c *Channel2D.Channel, err error) {
	var (
		p    Channel2D.Parameters
		opts coupling.Options
	)
	if p, err = ip.ChannelParameters(); err != nil {
		return
	}
	if opts, err = ip.CouplingOptions(); err != nil {
		return
	}
	p.ParallelDegree = mf.Procs
	opts.Exchange.ParallelDegree = mf.Procs
	if mf.Verbose {
		opts.Out = w
	}
	return Channel2D.NewChannel(p, opts)
}

func RunFSI(mf *ModelFSI, ip *InputParameters.FSIParameters, w io.Writer) (err error) {
	var (
		c *Channel2D.Channel
	)
	if c, err = newFSIChannel(mf, ip, w); err != nil {
		return
	}
	p := c.Params
	ip.Print(w)
	c.PrintInitialization(w)
	if len(mf.RestartFile) != 0 {
		var cp coupling.Checkpoint
		if cp, err = readFSICheckpoint(mf.RestartFile); err != nil {
			return
		}
		if err = c.Driver.Restore(cp); err != nil {
			return
		}
		c.Time = float64(cp.TimeStep) * p.TimeStep
		fmt.Fprintf(w, "Restarted from %s at time step %d\n", mf.RestartFile, cp.TimeStep)
	}
	_, runErr := c.Run(w, mf.Graph, mf.Delay*time.Millisecond)
	if len(mf.CheckpointFile) != 0 {
		if err = writeFile(mf.CheckpointFile, c.Driver.Checkpoint().Write); err != nil {
			return
		}
	}
	if mf.Verbose {
		fmt.Fprintln(w, utils.GetMemUsage())
	}
	return runErr
}

func readFSICheckpoint(name string) (cp coupling.Checkpoint, err error) {
	var f *os.File
	if f, err = os.Open(name); err != nil {
		return
	}
	defer f.Close()
	return coupling.ReadCheckpoint(f)
}

func writeFile(name string, write func(io.Writer) error) (err error) {
	var f *os.File
	if f, err = os.Create(name); err != nil {
		return
	}
	if err = write(f); err != nil {
		f.Close()
		return
	}
	return f.Close()
}
