package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/gltfrig"
	"github.com/normanking/cortexrig/internal/pose"
)

type bakeOptions struct {
	pose       string
	gesture    string
	expression string
	at         float64
	fps        float64
	lookAt     []float64
	id         string
}

func newBakeCmd(root *rootOptions) *cobra.Command {
	opts := &bakeOptions{}
	cmd := &cobra.Command{
		Use:   "bake <in.gltf|in.glb> <out.gltf|out.glb>",
		Short: "Animate a glTF model and write the pose at a given time",
		Long: `Load a glTF model, run the engine on it for --at seconds with the requested
pose, gesture and expression, then save the model with the resulting bone
rotations and morph weights.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()
			return runBake(a, opts, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&opts.pose, "pose", "", "base pose")
	cmd.Flags().StringVar(&opts.gesture, "gesture", "", "gesture clip started at t=0")
	cmd.Flags().StringVar(&opts.expression, "expression", "", "facial expression (admiration, concern, ...)")
	cmd.Flags().Float64Var(&opts.at, "at", 1, "seconds to animate before saving")
	cmd.Flags().Float64Var(&opts.fps, "fps", 60, "simulation rate")
	cmd.Flags().Float64SliceVar(&opts.lookAt, "look-at", nil, "gaze target x,y,z in model space")
	cmd.Flags().StringVar(&opts.id, "id", "baked", "instance id (seeds the procedural layers)")
	return cmd
}

// contextFor returns a social context that selects the given expression.
func contextFor(e expression.Expression) (expression.RelationshipContext, error) {
	ctx := expression.RelationshipContext{HasSelection: true}
	switch e {
	case expression.Neutral:
		ctx.HasSelection = false
	case expression.Confidence:
		ctx.IsSelf = true
	case expression.Respect:
		ctx.IsHoH = true
	case expression.Concern:
		ctx.IsNominee = true
	case expression.Admiration:
		ctx.Score = 100
	case expression.Jealousy:
		ctx.Score = -100
	case expression.Curiosity:
	default:
		return ctx, fmt.Errorf("unknown expression %q", e)
	}
	return ctx, nil
}

func runBake(a *app, opts *bakeOptions, in, out string) error {
	r, err := gltfrig.Load(in)
	if err != nil {
		return err
	}
	a.log.Info().Str("model", in).Int("bones", len(r.BoneNames())).Int("morphs", len(r.MorphNames())).Msg("model loaded")

	c := a.newController(opts.id)
	c.AttachSkeleton(r)

	fps := opts.fps
	if fps <= 0 {
		fps = 60
	}
	dt := 1 / fps
	now := dt
	frame, ok := c.Tick(now, dt)
	if !ok {
		return fmt.Errorf("%s: bones could not be resolved (status %s)", in, c.Status())
	}

	if opts.pose != "" && !c.SetPose(pose.Name(opts.pose)) && c.Pose() != pose.Name(opts.pose) {
		return fmt.Errorf("unknown pose %q", opts.pose)
	}
	if opts.gesture != "" && !c.PlayGesture(gesture.Name(opts.gesture), nil) {
		return fmt.Errorf("%w: %q", gesture.ErrUnknownClip, opts.gesture)
	}
	if opts.expression != "" {
		ctx, err := contextFor(expression.Expression(opts.expression))
		if err != nil {
			return err
		}
		c.SetContext(ctx)
	}
	if len(opts.lookAt) > 0 {
		if len(opts.lookAt) != 3 {
			return fmt.Errorf("--look-at needs three values, got %d", len(opts.lookAt))
		}
		target := mgl64.Vec3{opts.lookAt[0], opts.lookAt[1], opts.lookAt[2]}
		c.SetLookAt(&target)
	}

	for now+dt <= opts.at+1e-9 {
		now += dt
		var f animator.Frame
		if f, ok = c.Tick(now, dt); ok {
			frame = f
		}
	}

	if err := r.Save(out); err != nil {
		return err
	}
	a.log.Info().
		Str("out", out).
		Float64("t", frame.Time).
		Str("pose", string(frame.Pose)).
		Str("gesture", string(frame.Gesture)).
		Msg("model baked")
	return nil
}
