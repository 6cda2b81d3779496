package rules

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/fsnotify.v1"
)

// Source provides the rule Set to use for the next conversion.
type Source interface {
	Current() *Set
}

// Static is a Source that always returns the same Set.
type Static struct{ set *Set }

// NewStatic wraps s as a Source.
func NewStatic(s *Set) Static { return Static{set: s} }

// Current returns the wrapped Set.
func (s Static) Current() *Set { return s.set }

// Watcher serves the Set loaded from a rule file and reloads it when the file
// changes. A reload that fails to compile is logged and the previous Set is
// kept; conversions already running keep the Set they started with.
type Watcher struct {
	path    string
	log     *slog.Logger
	current atomic.Pointer[Set]
	reloads atomic.Int64
}

// NewWatcher loads path once. An error here is fatal to the caller: there is
// no previous Set to fall back to.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	w := &Watcher{path: filepath.Clean(path), log: log}
	s, err := LoadFile(w.path)
	if err != nil {
		return nil, err
	}
	w.current.Store(s)
	return w, nil
}

// Current returns the most recently loaded Set.
func (w *Watcher) Current() *Set { return w.current.Load() }

// Reloads returns how many times the Set was successfully replaced.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Reload reads the rule file again and swaps it in if it compiles.
func (w *Watcher) Reload() error {
	s, err := LoadFile(w.path)
	if err != nil {
		return err
	}
	w.current.Store(s)
	w.reloads.Add(1)
	return nil
}

// Run watches the rule file's directory until ctx is cancelled. Editors often
// replace a file by renaming a temporary one over it, so the directory is
// watched rather than the file.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	w.log.Info("watching rule file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				w.log.Error("rule reload failed, keeping previous rules", "path", w.path, "error", err)
				continue
			}
			s := w.Current()
			w.log.Info("rules reloaded", "path", w.path, "markers", len(s.Markers()), "artifacts", len(s.ArtifactPhrases()))

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("rule watcher error", "error", err)
		}
	}
}
