package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/scene"
)

type simulateOptions struct {
	duration   float64
	characters int
	fps        float64
	out        string
	every      int
	seed       uint64
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a headless scene on a fixed clock and dump frames",
		Long: `Run characters on a fixed-step clock as fast as possible. Frames are written
as JSON lines, one frame set per line, to --out ("-" for stdout).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()
			return runSimulate(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Float64VarP(&opts.duration, "duration", "d", 10, "simulated seconds")
	cmd.Flags().IntVarP(&opts.characters, "characters", "n", 0, "number of characters (default from config)")
	cmd.Flags().Float64Var(&opts.fps, "fps", 0, "frames per second (default from config)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "frame output file, - for stdout")
	cmd.Flags().IntVar(&opts.every, "every", 1, "write one frame set in N")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "director seed")
	return cmd
}

func runSimulate(ctx context.Context, a *app, opts *simulateOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	n := opts.characters
	if n <= 0 {
		n = a.cfg.Scene.Characters
	}
	fps := opts.fps
	if fps <= 0 {
		fps = a.cfg.Scene.FPS
	}
	if opts.every < 1 {
		opts.every = 1
	}

	var w *bufio.Writer
	switch opts.out {
	case "":
	case "-":
		w = bufio.NewWriter(stdout)
	default:
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.out, err)
		}
		defer f.Close()
		w = bufio.NewWriter(f)
	}

	host := scene.NewHost(
		scene.WithWorkers(a.cfg.Scene.Workers),
		scene.WithLogger(a.logger.Component("scene")),
	)
	ids, err := a.populate(host, n)
	if err != nil {
		return err
	}
	dir := newDirector(ids, opts.seed)

	dt := 1 / fps
	steps := int(opts.duration * fps)
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	for i := 0; i < steps; i++ {
		dir.step(host, host.Now())
		frames, err := host.Step(ctx, dt)
		if err != nil {
			return err
		}
		if enc != nil && i%opts.every == 0 {
			if err := enc.Encode(struct {
				Step   int              `json:"step"`
				Frames []animator.Frame `json:"frames"`
			}{i, frames}); err != nil {
				return fmt.Errorf("failed to write frames: %w", err)
			}
		}
	}
	if w != nil {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to flush frames: %w", err)
		}
	}

	stats := host.Stats()
	a.log.Info().
		Int("characters", stats.Characters).
		Uint64("steps", stats.Steps).
		Float64("seconds", stats.Now).
		Msg("simulation complete")
	if len(stats.Panics) > 0 {
		a.log.Warn().Interface("panics", stats.Panics).Msg("characters recovered from panics")
	}
	return nil
}
