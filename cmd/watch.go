package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"codebinder/errors"
	"codebinder/logger"
)

const defaultDebounce = 300 * time.Millisecond

// watchAndRun calls run once, then again after any of paths changes, until
// ctx is done. Events closer together than debounce collapse into one run.
// Parent directories are watched because editors often replace a file
// instead of writing it.
func watchAndRun(ctx context.Context, paths []string, debounce time.Duration, run func(context.Context)) error {
	log := logger.Named("watch")
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer watcher.Close()

	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.Wrapf(err, "watch %s", p)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
		dirs[dir] = true
	}

	run(ctx)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugw("input changed", "file", event.Name, "op", event.Op.String())
			pending = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", "error", err)

		case <-pending:
			pending = nil
			log.Infow("converting again")
			run(ctx)
		}
	}
}
