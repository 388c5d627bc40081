// Package logging provides structured logging with console, file and
// in-memory history output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Entry is one log line kept in memory for remote viewers.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message"`
}

// Config holds logger configuration
type Config struct {
	Dir        string   `mapstructure:"dir" yaml:"dir"`                 // log file directory; empty disables file output
	Level      LogLevel `mapstructure:"level" yaml:"level"`             // minimum level (default: info)
	MaxHistory int      `mapstructure:"max_history" yaml:"max_history"` // entries kept in memory (default: 500)
	Console    bool     `mapstructure:"console" yaml:"console"`         // pretty console output on stderr

	// Out replaces the console writer; used by tests.
	Out io.Writer `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		MaxHistory: 500,
		Console:    true,
	}
}

// Logger wraps zerolog with file output and a bounded history.
type Logger struct {
	zlog    zerolog.Logger
	file    *os.File
	logPath string

	mu      sync.RWMutex
	history []Entry
	maxHist int
}

// New creates a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultConfig().MaxHistory
	}
	l := &Logger{
		history: make([]Entry, 0, cfg.MaxHistory),
		maxHist: cfg.MaxHistory,
	}

	writers := []io.Writer{historyWriter{l}}
	switch {
	case cfg.Out != nil:
		writers = append(writers, cfg.Out)
	case cfg.Console:
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		l.logPath = filepath.Join(cfg.Dir, fmt.Sprintf("cortexrig_%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		writers = append(writers, f)
	}

	l.zlog = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", "cortexrig").
		Logger()
	return l, nil
}

// ParseLevel maps a level name to zerolog; unknown names mean info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a zerolog.Logger with the component field set.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// LogPath returns the current log file path, empty without file output.
func (l *Logger) LogPath() string {
	return l.logPath
}

// History returns up to limit of the most recent entries, oldest first.
func (l *Logger) History(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.history) {
		limit = len(l.history)
	}
	out := make([]Entry, limit)
	copy(out, l.history[len(l.history)-limit:])
	return out
}

func (l *Logger) record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, e)
	if len(l.history) > l.maxHist {
		l.history = l.history[len(l.history)-l.maxHist:]
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
