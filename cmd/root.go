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

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gofsi",
	Short: "Partitioned fluid structure interaction and penalty contact",
	Long: `
Couples a fluid and a solid solver through their interface with accelerated
fixed point iteration, and solves penalty contact with Coulomb friction.

gofsi fsi -I channel.yaml
gofsi contact -I block.yaml`,
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gofsi.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print every coupling iteration")
	rootCmd.PersistentFlags().IntP("procs", "p", 0, "goroutines for parallel loops, 0 uses every CPU")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the working directory")
	rootCmd.PersistentFlags().Bool("perf", false, "count cpu instructions of the run (linux)")
	for _, name := range []string{"verbose", "procs", "profile", "perf"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
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
		// Search config in home directory with name ".gofsi" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".gofsi")
	}
	viper.SetEnvPrefix("gofsi")
	viper.AutomaticEnv() // read in environment variables that match
	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// RunOptions are the settings common to every subcommand
type RunOptions struct {
	Verbose bool
	Procs   int
	Profile string
	Perf    bool
}

func runOptions() RunOptions {
	return RunOptions{
		Verbose: viper.GetBool("verbose"),
		Procs:   viper.GetInt("procs"),
		Profile: viper.GetString("profile"),
		Perf:    viper.GetBool("perf"),
	}
}

// startProfile returns the function that stops the profile
func startProfile(kind string) (stop func(), err error) {
	var mode func(*profile.Profile)
	switch kind {
	case "":
		return func() {}, nil
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	default:
		return nil, fmt.Errorf("unknown profile %q, use cpu or mem", kind)
	}
	p := profile.Start(mode, profile.ProfilePath("."), profile.NoShutdownHook)
	return p.Stop, nil
}

// execute runs f under the profiling selected in ro
func execute(ro RunOptions, f func() error) (err error) {
	var stop func()
	if stop, err = startProfile(ro.Profile); err != nil {
		return
	}
	defer stop()
	if !ro.Perf {
		return f()
	}
	return countInstructions(f)
}
