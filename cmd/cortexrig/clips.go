package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/normanking/cortexrig/internal/gesture"
)

func newClipsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clips",
		Short: "Inspect gesture clips",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the built-in and configured clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDURATION\tBLEND IN\tBLEND OUT\tLOOP\tINTERRUPTIBLE\tBONES")
			for _, name := range a.clips.Names() {
				d, _ := a.clips.Clip(name)
				fmt.Fprintf(tw, "%s\t%.2fs\t%.2fs\t%.2fs\t%t\t%t\t%d\n",
					name, d.Duration, d.BlendIn, d.BlendOut, d.Loop, d.Interruptible, len(d.Bones()))
			}
			return tw.Flush()
		},
	}

	validate := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate clip files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				lib, err := gesture.LoadLibrary(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d clips\n", path, len(lib.Names()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}

	cmd.AddCommand(list, validate)
	return cmd
}
