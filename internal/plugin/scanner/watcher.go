// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package scanner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultSettle is how long the plugins directory must be quiet before a
// change notification fires. Deploying a plugin writes many files in a burst;
// the settle window folds the burst into one notification.
const defaultSettle = 500 * time.Millisecond

// Watcher signals deployment changes in the plugins directory. It watches the
// top level only: plugins deploy and remove as whole subdirectories, so
// create, remove, and rename events there cover the deployment set.
type Watcher struct {
	fw     *fsnotify.Watcher
	notify func()
	settle time.Duration
	done   chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettle overrides the quiet window before notify fires.
func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.settle = d }
}

// NewWatcher watches dir and calls notify after each settled burst of
// changes. The directory must exist. Close releases the watch.
func NewWatcher(dir string, notify func(), opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create plugins watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch plugins directory %s: %w", dir, err)
	}

	w := &Watcher{
		fw:     fw,
		notify: notify,
		settle: defaultSettle,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
				timer.Reset(w.settle)
			}
		case <-timer.C:
			w.notify()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("plugins directory watch error", "error", err)
		}
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
