// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package filewatcher calls back when grammar files change on disk.
package filewatcher

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/open-policy-agent/fastpeg/logging"
)

// OnReload is called with the path of a file that was written, created or
// replaced.
type OnReload func(ctx context.Context, path string) error

// FileWatcher watches a set of files.
type FileWatcher struct {
	paths    []string
	onReload OnReload
	logger   logging.Logger
}

// New returns a watcher for paths.
func New(paths []string, onReload OnReload, logger logging.Logger) *FileWatcher {
	clean := make([]string, len(paths))
	for i, p := range paths {
		clean[i] = filepath.Clean(p)
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &FileWatcher{
		paths:    clean,
		onReload: onReload,
		logger:   logger,
	}
}

// Start begins watching in the background. Watching stops when ctx is
// done.
func (w *FileWatcher) Start(ctx context.Context) error {
	watcher, err := w.getWatcher()
	if err != nil {
		return err
	}
	go w.readWatcher(ctx, watcher)
	return nil
}

// Run watches until ctx is done.
func (w *FileWatcher) Run(ctx context.Context) error {
	watcher, err := w.getWatcher()
	if err != nil {
		return err
	}
	w.readWatcher(ctx, watcher)
	return ctx.Err()
}

// getWatcher watches the directories holding the files: editors commonly
// replace a file by renaming a new one over it, which drops a watch on the
// file itself.
func (w *FileWatcher) getWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, p := range w.paths {
		if dir := filepath.Dir(p); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		w.logger.WithFields(map[string]any{"path": dir}).Debug("watching path")
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return watcher, nil
}

func (w *FileWatcher) readWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	mask := fsnotify.Create | fsnotify.Write | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error: %v.", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(evt.Name)
			if evt.Op&mask == 0 || !slices.Contains(w.paths, name) {
				continue
			}
			w.logger.WithFields(map[string]any{
				"event": evt.String(),
			}).Debug("Registered file event.")
			w.processWatcherUpdate(ctx, name)
		}
	}
}

func (w *FileWatcher) processWatcherUpdate(ctx context.Context, path string) {
	t0 := time.Now()
	if err := w.onReload(ctx, path); err != nil {
		w.logger.WithFields(map[string]any{"path": path}).Error("Reload failed: %v.", err)
		return
	}
	w.logger.WithFields(map[string]any{"path": path}).Info("Reloaded in %v.", time.Since(t0))
}
