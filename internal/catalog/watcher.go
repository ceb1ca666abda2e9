package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 200 * time.Millisecond

// Watch re-imports the seed file whenever it changes on disk and calls
// onChange after each import that wrote data. The parent directory is
// watched so editors that save by rename are picked up. It blocks until
// ctx is cancelled.
func Watch(ctx context.Context, path string, w Writer, logger *slog.Logger, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("seed watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("seed watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			changed, syncErr := Sync(ctx, abs, w, logger)
			if syncErr != nil {
				logger.Warn("seed watcher: sync failed", slog.String("error", syncErr.Error()))
				continue
			}
			if changed && onChange != nil {
				onChange()
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&fsnotify.Remove != 0 {
				logger.Warn("seed watcher: seed file removed, keeping imported data", slog.String("path", abs))
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("seed watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
