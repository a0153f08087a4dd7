// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging builds loggers from command line settings.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/fastpeg/logging"
)

// Formats lists the accepted log formats.
var Formats = []string{"text", "json", "json-pretty"}

// GetLevel returns the level named level.
func GetLevel(level string) (logging.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logging.Debug, nil
	case "", "info":
		return logging.Info, nil
	case "warn":
		return logging.Warn, nil
	case "error":
		return logging.Error, nil
	default:
		return logging.Debug, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter returns the logrus formatter named format.
func GetFormatter(format, timestampFormat string) logrus.Formatter {
	switch format {
	case "text":
		return &prettyFormatter{}
	case "json-pretty":
		return &logrus.JSONFormatter{PrettyPrint: true, TimestampFormat: timestampFormat}
	default:
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}
}

// NewLogger returns a standard logger writing to w at the named level and
// format.
func NewLogger(w io.Writer, level, format string) (*logging.StandardLogger, error) {
	lvl, err := GetLevel(level)
	if err != nil {
		return nil, err
	}
	l := logging.New()
	l.SetOutput(w)
	l.SetFormatter(GetFormatter(format, ""))
	l.SetLevel(lvl)
	return l, nil
}

// prettyFormatter prints the level and message followed by the fields in
// key order. Short fields share the message line; values spanning lines are
// printed indented below it.
type prettyFormatter struct{}

func (*prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := new(bytes.Buffer)
	fmt.Fprintf(b, "[%s] %s", strings.ToUpper(e.Level.String()), e.Message)

	keys := slices.Sorted(maps.Keys(e.Data))
	var long []string
	for _, k := range keys {
		v, err := fieldString(e.Data[k])
		if err != nil {
			return nil, err
		}
		if strings.Contains(v, "\n") {
			long = append(long, k+" = |\n      "+strings.ReplaceAll(v, "\n", "\n      "))
			continue
		}
		fmt.Fprintf(b, " %s=%s", k, v)
	}
	b.WriteByte('\n')
	for _, l := range long {
		b.WriteString("  ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

func fieldString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
