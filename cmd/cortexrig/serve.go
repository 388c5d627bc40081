package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/scene"
	"github.com/normanking/cortexrig/internal/stream"
)

// logHistoryLimit is the default number of entries served on the logs route.
const logHistoryLimit = 100

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr       string
		characters int
		direct     bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Animate characters in real time and stream frames over websockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Stream.Addr
			}
			if characters <= 0 {
				characters = a.cfg.Scene.Characters
			}

			srv := stream.NewServer(stream.Config{
				Every:   a.cfg.Stream.Every,
				Buffer:  a.cfg.Stream.Buffer,
				Origins: a.cfg.Stream.Origins,
			}, a.logger.Component("stream"))
			hostOpts := []scene.Option{
				scene.WithWorkers(a.cfg.Scene.Workers),
				scene.WithLogger(a.logger.Component("scene")),
				scene.WithSink(srv),
			}

			if path := a.cfg.Stream.Metrics; path != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				srv.RegisterMetrics(reg)
				hostOpts = append(hostOpts, scene.WithMetrics(scene.NewMetrics(reg)))
				srv.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			}

			if path := a.cfg.Stream.Logs; path != "" {
				srv.Handle(path, a.logger.HistoryHandler(logHistoryLimit))
			}

			var sink *stream.RedisSink
			if rc := a.cfg.Redis; rc.Addr != "" {
				sink, err = stream.NewRedisSink(stream.RedisConfig{
					Addr:     rc.Addr,
					Password: rc.Password,
					DB:       rc.DB,
					Stream:   rc.Stream,
					MaxLen:   rc.MaxLen,
					Every:    rc.Every,
					Buffer:   rc.Buffer,
				}, a.logger.Component("redis"))
				if err != nil {
					return err
				}
				defer sink.Close()
				hostOpts = append(hostOpts, scene.WithSink(sink))
			}

			host := scene.NewHost(hostOpts...)
			ids, err := a.populate(host, characters)
			if err != nil {
				return err
			}
			srv.SetRoster(host.IDs)
			srv.OnCommand(func(c stream.Command) error {
				var applyErr error
				if err := host.Do(c.ID, func(ctrl *animator.Controller) { applyErr = c.Apply(ctrl) }); err != nil {
					return err
				}
				return applyErr
			})

			if spec := a.cfg.Scene.Report; spec != "" {
				rep, err := newReporter(spec, a.logger.Component("report"), host, srv, sink)
				if err != nil {
					return err
				}
				rep.Start()
				defer rep.Stop()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var dir *director
			if direct {
				dir = newDirector(ids, 1)
			}
			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gCtx, addr, a.cfg.Stream.Path)
			})
			g.Go(func() error {
				return host.Run(gCtx, a.cfg.Scene.FPS, func([]animator.Frame) {
					if dir != nil {
						dir.step(host, host.Now())
					}
				})
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().IntVarP(&characters, "characters", "n", 0, "number of characters (default from config)")
	cmd.Flags().BoolVar(&direct, "direct", true, "let characters act on their own")
	return cmd
}
