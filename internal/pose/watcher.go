package pose

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexrig/internal/rig"
)

// Watcher serves a library built from a base library plus an override file,
// and rebuilds it whenever the file changes on disk. Readers always see a
// complete immutable snapshot.
type Watcher struct {
	path    string
	base    *Library
	current atomic.Pointer[Library]
	watcher *fsnotify.Watcher
	log     zerolog.Logger
	done    chan struct{}
	reloads atomic.Int64
}

// NewWatcher loads path once and starts watching its directory.
func NewWatcher(path string, base *Library, log zerolog.Logger) (*Watcher, error) {
	if base == nil {
		base = DefaultLibrary()
	}
	w := &Watcher{
		path: filepath.Clean(path),
		base: base,
		log:  log,
		done: make(chan struct{}),
	}
	if err := w.reload(); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create pose watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = fw

	go w.watchLoop()
	return w, nil
}

func (w *Watcher) Pose(name Name) (rig.BoneMap, bool) {
	return w.Library().Pose(name)
}

// Library returns the current snapshot.
func (w *Watcher) Library() *Library {
	return w.current.Load()
}

// Reloads counts successful reloads, including the initial load.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

func (w *Watcher) reload() error {
	o, err := LoadOverrides(w.path)
	if err != nil {
		return err
	}
	w.current.Store(w.base.WithOverrides(o))
	w.reloads.Add(1)
	return nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Editors truncate before writing; wait for the content.
			if fi, err := os.Stat(w.path); err == nil && fi.Size() == 0 {
				continue
			}
			// A failed parse keeps the previous snapshot.
			if err := w.reload(); err != nil {
				w.log.Warn().Err(err).Str("path", w.path).Msg("pose override reload failed")
				continue
			}
			w.log.Info().Str("path", w.path).Msg("pose overrides reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("pose watcher error")
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
