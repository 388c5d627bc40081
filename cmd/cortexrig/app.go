package main

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/config"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/logging"
	"github.com/normanking/cortexrig/internal/pose"
	"github.com/normanking/cortexrig/internal/rig"
	"github.com/normanking/cortexrig/internal/scene"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// app bundles what every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	log     zerolog.Logger
	poses   pose.Source
	clips   *gesture.Library
	watcher *pose.Watcher
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = logging.LogLevel(opts.logLevel)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		log:    logger.Component("cli"),
		poses:  pose.DefaultLibrary(),
		clips:  gesture.DefaultLibrary(),
	}
	if p := logger.LogPath(); p != "" {
		a.log.Debug().Str("path", p).Msg("logging to file")
	}

	if path := cfg.Poses.Overrides; path != "" {
		if cfg.Poses.Watch {
			w, err := pose.NewWatcher(path, pose.DefaultLibrary(), logger.Component("poses"))
			if err != nil {
				a.Close()
				return nil, err
			}
			a.watcher = w
			a.poses = w
		} else {
			o, err := pose.LoadOverrides(path)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.poses = pose.DefaultLibrary().WithOverrides(o)
		}
		a.log.Info().Str("path", path).Bool("watch", cfg.Poses.Watch).Msg("pose overrides loaded")
	}

	if path := cfg.Clips.Path; path != "" {
		extra, err := gesture.LoadLibrary(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.clips = a.clips.Merge(extra)
		a.log.Info().Str("path", path).Int("clips", len(extra.Names())).Msg("clip library merged")
	}
	return a, nil
}

func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.logger.Close()
}

// newController builds one character wired to the app's libraries.
func (a *app) newController(id string) *animator.Controller {
	return animator.New(a.cfg.Engine,
		animator.WithID(id),
		animator.WithPoses(a.poses),
		animator.WithClips(a.clips),
		animator.WithLogger(a.logger.Component("animator")),
	)
}

// populate adds n headless characters standing in a ring, each watching its
// neighbour.
func (a *app) populate(h *scene.Host, n int) ([]string, error) {
	const radius = 2.0
	ids := make([]string, n)
	positions := make([]mgl64.Vec3, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("character-%02d", i+1)
		theta := 2 * math.Pi * float64(i) / float64(max(n, 1))
		positions[i] = mgl64.Vec3{radius * math.Sin(theta), 0, radius * math.Cos(theta)}
	}
	for i, id := range ids {
		c := a.newController(id)
		c.AttachSkeleton(rig.NewFullSkeleton())
		p := positions[i]
		c.SetPlacement(p, math.Atan2(-p.X(), -p.Z()))
		if n > 1 {
			next := positions[(i+1)%n]
			target := mgl64.Vec3{next.X(), a.cfg.Engine.LookAt.EyeHeight, next.Z()}
			c.SetLookAt(&target)
		}
		if err := h.Add(c); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
