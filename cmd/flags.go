// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/open-policy-agent/fastpeg/ast"
	internallogging "github.com/open-policy-agent/fastpeg/internal/logging"
	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/util"
)

type logParams struct {
	level  *util.EnumFlag
	format *util.EnumFlag
}

func newLogParams() logParams {
	return logParams{
		level:  util.NewEnumFlag("info", []string{"debug", "info", "warn", "error"}),
		format: util.NewEnumFlag(internallogging.Formats[0], internallogging.Formats),
	}
}

func addLogFlags(fs *pflag.FlagSet, p *logParams) {
	fs.VarP(p.level, "log-level", "l", "set log level")
	fs.Var(p.format, "log-format", "set log format")
}

// logger returns the logger selected by the log flags, writing to w.
func (p *logParams) logger(w io.Writer) (logging.Logger, error) {
	l, err := internallogging.NewLogger(w, p.level.String(), p.format.String())
	if err != nil {
		return nil, err
	}
	return l, nil
}

func addOutputFormat(fs *pflag.FlagSet, format *util.EnumFlag) {
	fs.VarP(format, "format", "f", "set output format")
}

func addMetricsFlag(fs *pflag.FlagSet, enabled *bool) {
	fs.BoolVar(enabled, "metrics", false, "report timers and counters")
}

// readGrammar reads and decodes the grammar document at path.
func readGrammar(path string, m metrics.Metrics) (*ast.Grammar, error) {
	timer := m.Timer(metrics.GrammarLoad)
	timer.Start()
	defer timer.Stop()

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ast.ParseGrammar(path, bs)
}

// readInput reads path, or r when path is "-".
func readInput(path string, r io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(r)
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return bs, nil
}
