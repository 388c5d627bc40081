// Package stream broadcasts composed frames to remote viewers over
// websockets and accepts control commands back.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexrig/internal/animator"
)

// CommandFunc handles a viewer command.
type CommandFunc func(Command) error

// Config tunes the server.
type Config struct {
	Every   int      // broadcast one published frame set in Every
	Buffer  int      // per-client queue length
	Origins []string // allowed Origin headers; empty allows same-origin and originless clients
}

// Server is a websocket broadcast hub. It implements scene.FrameSink.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
	ids     func() []string
	onCmd   CommandFunc
	routes  map[string]http.Handler

	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

func NewServer(cfg Config, log zerolog.Logger) *Server {
	if cfg.Every < 1 {
		cfg.Every = 1
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 32
	}
	s := &Server{
		cfg:     cfg,
		log:     log,
		clients: make(map[*client]bool),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
	}
	if len(cfg.Origins) > 0 {
		allowed := make(map[string]bool, len(cfg.Origins))
		for _, o := range cfg.Origins {
			allowed[o] = true
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed[r.Header.Get("Origin")]
		}
	}
	return s
}

// Handle mounts an extra route next to the stream path, e.g. /metrics.
// Routes must be added before ListenAndServe.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routes == nil {
		s.routes = make(map[string]http.Handler)
	}
	s.routes[pattern] = h
}

// OnCommand sets the handler for viewer commands.
func (s *Server) OnCommand(fn CommandFunc) {
	s.mu.Lock()
	s.onCmd = fn
	s.mu.Unlock()
}

// SetRoster sets the function listing character ids sent in the hello message.
func (s *Server) SetRoster(fn func() []string) {
	s.mu.Lock()
	s.ids = fn
	s.mu.Unlock()
}

// ServeHTTP upgrades the request and serves one viewer until it leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	c := &client{server: s, conn: conn, send: make(chan []byte, s.cfg.Buffer)}

	s.mu.RLock()
	roster := s.ids
	s.mu.RUnlock()
	hello := Outbound{Type: TypeHello}
	if roster != nil {
		hello.IDs = roster()
	}
	if data, err := json.Marshal(hello); err == nil {
		c.send <- data
	}

	s.mu.Lock()
	s.clients[c] = true
	count := len(s.clients)
	s.mu.Unlock()
	s.log.Info().Str("remote", r.RemoteAddr).Int("clients", count).Msg("viewer connected")

	go c.writePump()
	c.readPump()
}

// Publish implements scene.FrameSink.
func (s *Server) Publish(frames []animator.Frame) {
	n := s.published.Add(1)
	if (n-1)%uint64(s.cfg.Every) != 0 {
		return
	}
	if s.ClientCount() == 0 {
		return
	}
	data, err := json.Marshal(Outbound{Type: TypeFrames, Seq: n, Frames: frames})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode frames")
		return
	}
	s.broadcast(data)
}

func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
			s.sent.Add(1)
		default:
			// Slow viewer.
			delete(s.clients, c)
			close(c.send)
			s.dropped.Add(1)
			s.log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("dropped slow viewer")
		}
	}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
	count := len(s.clients)
	s.mu.Unlock()
	s.log.Info().Int("clients", count).Msg("viewer disconnected")
}

func (s *Server) handle(c *client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.reply(err)
		return
	}
	s.mu.RLock()
	fn := s.onCmd
	s.mu.RUnlock()
	if fn == nil {
		return
	}
	if err := fn(cmd); err != nil {
		s.log.Debug().Err(err).Str("command", cmd.Type).Str("instance", cmd.ID).Msg("command rejected")
		c.reply(err)
	}
}

func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Stats counts broadcast traffic.
type Stats struct {
	Published uint64 `json:"published"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
	Clients   int    `json:"clients"`
}

func (s *Server) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Sent:      s.sent.Load(),
		Dropped:   s.dropped.Load(),
		Clients:   s.ClientCount(),
	}
}

// ListenAndServe serves the hub at path on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Stats())
	})
	s.mu.RLock()
	for pattern, h := range s.routes {
		mux.Handle(pattern, h)
	}
	s.mu.RUnlock()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	s.log.Info().Str("addr", addr).Str("path", path).Msg("stream server listening")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeAll()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}
