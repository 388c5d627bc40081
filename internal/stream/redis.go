package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexrig/internal/animator"
)

// RedisConfig configures the Redis Streams frame sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string // stream key frames are appended to
	MaxLen   int64  // approximate stream cap, 0 keeps everything
	Every    int    // append one published frame set in Every
	Buffer   int    // pending frame sets before new ones are dropped
}

// RedisSink appends frame sets to a Redis Stream with XADD so other
// processes can consume them with XREAD or consumer groups. It implements
// scene.FrameSink; writes happen on a background goroutine so a slow Redis
// never stalls the scene step.
type RedisSink struct {
	rdb *redis.Client
	cfg RedisConfig
	log zerolog.Logger

	queue chan redisEntry
	done  chan struct{}
	once  sync.Once

	published atomic.Uint64
	written   atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

type redisEntry struct {
	seq  uint64
	data []byte
}

// NewRedisSink connects to Redis and starts the writer.
func NewRedisSink(cfg RedisConfig, log zerolog.Logger) (*RedisSink, error) {
	if cfg.Stream == "" {
		cfg.Stream = "cortexrig:frames"
	}
	if cfg.Every < 1 {
		cfg.Every = 1
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 64
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	s := &RedisSink{
		rdb:   rdb,
		cfg:   cfg,
		log:   log,
		queue: make(chan redisEntry, cfg.Buffer),
		done:  make(chan struct{}),
	}
	go s.writeLoop()
	log.Info().Str("addr", cfg.Addr).Str("stream", cfg.Stream).Msg("redis frame sink connected")
	return s, nil
}

// Publish implements scene.FrameSink.
func (s *RedisSink) Publish(frames []animator.Frame) {
	n := s.published.Add(1)
	if (n-1)%uint64(s.cfg.Every) != 0 {
		return
	}
	data, err := json.Marshal(frames)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode frames")
		return
	}
	select {
	case s.queue <- redisEntry{seq: n, data: data}:
	default:
		s.dropped.Add(1)
	}
}

func (s *RedisSink) writeLoop() {
	defer close(s.done)
	for e := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := s.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: s.cfg.Stream,
			MaxLen: s.cfg.MaxLen,
			Approx: s.cfg.MaxLen > 0,
			Values: map[string]interface{}{
				"seq":    e.seq,
				"frames": e.data,
			},
		}).Err()
		cancel()
		if err != nil {
			if s.failed.Add(1) == 1 {
				s.log.Warn().Err(err).Str("stream", s.cfg.Stream).Msg("xadd failed")
			}
			continue
		}
		s.written.Add(1)
	}
}

// RedisStats counts sink traffic.
type RedisStats struct {
	Published uint64 `json:"published"`
	Written   uint64 `json:"written"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

func (s *RedisSink) Stats() RedisStats {
	return RedisStats{
		Published: s.published.Load(),
		Written:   s.written.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
	}
}

// Close drains pending writes and closes the connection. Publish must not be
// called after Close.
func (s *RedisSink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.queue)
		<-s.done
		err = s.rdb.Close()
	})
	return err
}
