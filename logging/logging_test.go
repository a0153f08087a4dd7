// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithFieldsMergesAndOverrides(t *testing.T) {
	base := New().WithFields(map[string]any{"grammar": "json.yaml", "stage": "check"})
	logger := base.WithFields(map[string]any{"stage": "emit"})

	fields := logger.(*StandardLogger).fields
	if fields["grammar"] != "json.yaml" {
		t.Fatalf("expected merged field, got %v", fields)
	}
	if fields["stage"] != "emit" {
		t.Fatalf("expected overridden field, got %v", fields)
	}
	if base.(*StandardLogger).fields["stage"] != "check" {
		t.Fatal("parent logger fields were modified")
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for _, lvl := range []Level{Error, Warn, Info, Debug} {
		l := New()
		l.SetLevel(lvl)
		if l.GetLevel() != lvl {
			t.Errorf("expected level %v, got %v", lvl, l.GetLevel())
		}
	}
}

func TestStandardLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(Info)

	l.Debug("hidden %d", 1)
	l.WithFields(map[string]any{"rule": "value"}).Info("emitted %d procedures", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "emitted 4 procedures") || !strings.Contains(out, "rule=value") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	if l.GetLevel() != Info {
		t.Fatalf("expected default info level, got %v", l.GetLevel())
	}
	l.SetLevel(Debug)
	if l.WithFields(map[string]any{"a": 1}).(*NoOpLogger).level != Debug {
		t.Fatal("expected level to be carried by WithFields")
	}
	l.Debug("nothing %v", "happens")
}
