package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"threegen/pkg/logger"
)

// WatchFile calls onChange whenever path is created or written. The parent
// directory is watched so editors and atomic renames are seen too. The
// watcher stops when ctx is done.
func WatchFile(ctx context.Context, path string, log logger.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				log.Debug("scheduler: watched file changed", "path", target, "op", event.Op.String())
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.InternalError("scheduler: file watcher failed", err, "path", target)
			}
		}
	}()

	return nil
}

// WatchConnectivity pings every interval and calls onRegained when a ping
// succeeds after one failed. It blocks until ctx is done.
func WatchConnectivity(ctx context.Context, pinger Pinger, interval time.Duration, log logger.Logger, onRegained func()) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := pinger.Ping(ctx)
			switch {
			case err != nil && online:
				online = false
				log.BusinessError("scheduler: remote unreachable", err)
			case err == nil && !online:
				online = true
				log.Info("scheduler: remote reachable again")
				onRegained()
			}
		}
	}
}
