// Package watch re-runs a callback when any of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches the parent directories of a file set, so that editors that
// replace files by rename are still seen, and filters events by file name.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a Watcher for files. Directories that do not exist are skipped
// with a warning; it is an error if no directory could be watched.
func New(files []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool, len(files)),
		debounce: debounce,
		logger:   logger,
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	watched := 0
	for dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("not watching missing directory", "dir", dir, "error", err)
			continue
		}
		if err := fw.Add(dir); err != nil {
			logger.Warn("failed to watch directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fw.Close()
		return nil, fmt.Errorf("no watchable directories for %d file(s)", len(files))
	}
	return w, nil
}

// Run blocks until ctx is done, calling fn once per burst of changes to the
// watched files. Bursts closer together than the debounce interval coalesce.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("watched file changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil
			fn(ctx)

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}
