// Package main provides the cortexrig command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "cortexrig",
		Short: "Layered real-time character animation engine",
		Long: `cortexrig animates humanoid characters by composing a base pose, procedural
idle motion, gaze, keyframed gestures, facial expression and spring-based
follow-through into bone rotations and morph weights every frame.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newSimulateCmd(opts),
		newServeCmd(opts),
		newClipsCmd(opts),
		newBakeCmd(opts),
	)
	return root
}
