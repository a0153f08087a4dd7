// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package filewatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/logging/test"
)

func TestFileWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grammar.yaml")
	other := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte("rules: []"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan string, 1)
	logger := test.New()
	logger.SetLevel(logging.Debug)
	w := New([]string{path}, func(_ context.Context, p string) error {
		select {
		case reloaded <- p:
		default:
		}
		return nil
	}, logger)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("rules: [{name: a, expr: b}]"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-reloaded:
		if p != filepath.Clean(path) {
			t.Fatalf("expected reload of %v, got %v", path, p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if !logger.Contains("Registered file event.") {
		t.Error("expected file event to be logged")
	}
}

func TestFileWatcherRunStops(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	w := New([]string{filepath.Join(dir, "g.yaml")}, func(context.Context, string) error { return nil }, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
}

func TestFileWatcherMissingDirectory(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing", "g.yaml")}, nil, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
