package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay batches the event bursts editors and unzippers produce into
// a single re-sync.
const debounceDelay = 500 * time.Millisecond

// watchAndSync runs the sync once, then re-runs it whenever the source
// changes, until ctx is cancelled. Runs stay strictly sequential; there is
// never more than one sync touching the store.
func (r *runEnv) watchAndSync(ctx context.Context, o *IO, source string, run func() error) error {
	if err := run(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	// Watch the containing directory for single-file sources so replacing
	// the file (the common export workflow) is still seen.
	watchPath := source

	if info, statErr := os.Stat(source); statErr == nil && !info.IsDir() {
		watchPath = filepath.Dir(source)
	}

	if err := watcher.Add(watchPath); err != nil {
		return fmt.Errorf("watching %s: %w", watchPath, err)
	}

	o.Println("Watching for changes. Press Ctrl-C to stop.")

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !relevantChange(event) {
				continue
			}

			r.logger.Debug("source changed", slog.String("path", event.Name))

			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerCh = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			r.logger.Warn("watcher error", slog.String("error", watchErr.Error()))

		case <-timerCh:
			timer = nil
			timerCh = nil

			if err := run(); err != nil {
				return err
			}
		}
	}
}

// relevantChange filters watcher noise down to writes of source material.
func relevantChange(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return false
	}

	ext := strings.ToLower(filepath.Ext(event.Name))

	return ext == ".json" || ext == ".zip"
}
