package main

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexrig/internal/scene"
	"github.com/normanking/cortexrig/internal/stream"
)

// reporter logs scene and stream stats on a cron schedule.
type reporter struct {
	cron  *cron.Cron
	log   zerolog.Logger
	host  *scene.Host
	srv   *stream.Server
	redis *stream.RedisSink
}

func newReporter(spec string, log zerolog.Logger, host *scene.Host, srv *stream.Server, redis *stream.RedisSink) (*reporter, error) {
	r := &reporter{
		cron:  cron.New(),
		log:   log,
		host:  host,
		srv:   srv,
		redis: redis,
	}
	if _, err := r.cron.AddFunc(spec, r.report); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *reporter) Start() { r.cron.Start() }

// Stop waits for a running report to finish.
func (r *reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *reporter) report() {
	stats := r.host.Stats()
	ev := r.log.Info().
		Int("characters", stats.Characters).
		Uint64("steps", stats.Steps).
		Float64("clock", stats.Now)
	if len(stats.Panics) > 0 {
		ev = ev.Interface("panics", stats.Panics)
	}
	if r.srv != nil {
		s := r.srv.Stats()
		ev = ev.Int("viewers", s.Clients).Uint64("sent", s.Sent).Uint64("dropped_viewers", s.Dropped)
	}
	if r.redis != nil {
		s := r.redis.Stats()
		ev = ev.Uint64("redis_written", s.Written).Uint64("redis_dropped", s.Dropped).Uint64("redis_failed", s.Failed)
	}
	ev.Msg("scene report")
}
