package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of editor saves.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a single file. The parent directory is watched
// so atomic replace-by-rename saves are seen.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   *zap.Logger
}

// Run calls onChange once per burst of write, create, remove or rename
// events on Path. It blocks until ctx is done and closes the underlying
// watcher before returning.
func (w Watcher) Run(ctx context.Context, onChange func()) error {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	dir := filepath.Dir(abs)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Debug("watching source", zap.String("path", abs))

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&relevant == 0 {
				continue
			}
			log.Debug("source event", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// Watch runs w, dropping cached entries for its file before each onChange.
func (c *Cache[V]) Watch(ctx context.Context, w Watcher, onChange func()) error {
	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	return w.Run(ctx, func() {
		c.InvalidatePath(abs)
		onChange()
	})
}
