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

	"github.com/spf13/cobra"

	"github.com/denMaier/solids4foam-sub000/InputParameters"
	"github.com/denMaier/solids4foam-sub000/coupling"
	"github.com/denMaier/solids4foam-sub000/model_problems/BlockContact"
	"github.com/denMaier/solids4foam-sub000/utils"
)

type ModelContact struct {
	ICFile         string
	CheckpointFile string
	RestartFile    string
	RunOptions
}

const exampleContactFile = `
########################################
Title: "Block on a flat"
Width: 1
Depth: 1
Height: 1
Cells: 4
Load: 10
Slide: 0.02
ShearModulus: 600
BulkModulus: 200
FrictionCoefficient: 0.3
PenaltyScale: 1
AdaptPenalty: false
Steps: 4
Coupling:
  Acceleration: iqn-ils
  Tolerance: 1.e-8
  MaxIterations: 100
########################################
`

// ContactCmd represents the contact command
var ContactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Elastic block pressed and slid on a rigid flat with penalty contact",
	Long: `
Solves penalty contact with Coulomb friction between an elastic block and a
rigid flat, loaded by a platen that presses and then slides the block.

gofsi contact -I block.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		mc := &ModelContact{RunOptions: runOptions()}
		fmt.Println("contact called")
		mc.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		mc.CheckpointFile, _ = cmd.Flags().GetString("checkpoint")
		mc.RestartFile, _ = cmd.Flags().GetString("restart")
		ip := processContactInput(mc)
		if err := execute(mc.RunOptions, func() error { return RunContact(mc, ip, os.Stdout) }); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ContactCmd)
	ContactCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Load\n\t- FrictionCoefficient")
	ContactCmd.Flags().StringP("checkpoint", "c", "", "file to write the contact state to at the end of the run")
	ContactCmd.Flags().StringP("restart", "r", "", "checkpoint file to continue from")
}

func processContactInput(mc *ModelContact) (ip *InputParameters.ContactParameters) {
	if len(mc.ICFile) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", exampleContactFile)
		os.Exit(1)
	}
	var (
		data []byte
		err  error
	)
	if data, err = os.ReadFile(mc.ICFile); err != nil {
		panic(err)
	}
	ip = InputParameters.NewContactParameters()
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	return
}

// newBlockContact builds the block problem from the case parameters and the run options
func newBlockContact(mc *ModelContact, ip *InputParameters.ContactParameters) (b *BlockContact.BlockContact, err error) {
	var (
		p    = ip.BlockParameters()
		acc  coupling.AccelerationOptions
		crit coupling.Criteria
	)
	if acc, err = ip.Coupling.AccelerationOptions(); err != nil {
		return
	}
	if crit, err = ip.Coupling.Criteria(); err != nil {
		return
	}
	p.Contact.Probe.ParallelDegree = mc.Procs
	p.Contact.Normal.ParallelDegree = mc.Procs
	p.Contact.Exchange.ParallelDegree = mc.Procs
	return BlockContact.NewBlockContact(p, acc, crit)
}

func RunContact(mc *ModelContact, ip *InputParameters.ContactParameters, w io.Writer) (err error) {
	var (
		b *BlockContact.BlockContact
	)
	if b, err = newBlockContact(mc, ip); err != nil {
		return
	}
	if mc.Verbose {
		b.Out = w
	}
	ip.Print(w)
	if len(mc.RestartFile) != 0 {
		var (
			f  *os.File
			cp BlockContact.Checkpoint
		)
		if f, err = os.Open(mc.RestartFile); err != nil {
			return
		}
		cp, err = BlockContact.ReadCheckpoint(f)
		f.Close()
		if err != nil {
			return
		}
		if err = b.Restore(cp); err != nil {
			return
		}
		fmt.Fprintf(w, "Restarted from %s at step %d\n", mc.RestartFile, cp.Step)
	}
	_, runErr := b.Run(w)
	if len(mc.CheckpointFile) != 0 {
		if err = writeFile(mc.CheckpointFile, b.Checkpoint().Write); err != nil {
			return
		}
	}
	if mc.Verbose {
		fmt.Fprintln(w, utils.GetMemUsage())
	}
	return runErr
}
