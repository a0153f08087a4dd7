// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-policy-agent/fastpeg/cmd/formats"
	"github.com/open-policy-agent/fastpeg/cmd/internal/env"
	"github.com/open-policy-agent/fastpeg/compile"
	pr "github.com/open-policy-agent/fastpeg/internal/presentation"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/util"
)

type parseParams struct {
	format  *util.EnumFlag
	metrics bool
	logs    logParams
}

func newParseParams() parseParams {
	return parseParams{
		format: formats.Flag(formats.Pretty, formats.JSON, formats.YAML),
		logs:   newLogParams(),
	}
}

func init() {
	params := newParseParams()

	parseCommand := &cobra.Command{
		Use:   "parse <grammar> <rule> [input]",
		Short: "Parse input with a grammar rule",
		Long: `Parse input with a grammar rule and print the parse tree.

The input is read from the named file, or from stdin if the file is omitted
or "-". If the input does not match, the error is printed with the failing
position and the command exits with status 1.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 || len(args) > 3 {
				return errors.New("specify a grammar file, a rule and optionally an input file")
			}
			return env.CheckEnvironmentVariables(cmd)
		},
		Run: func(_ *cobra.Command, args []string) {
			os.Exit(parse(args, &params, os.Stdin, os.Stdout, os.Stderr))
		},
	}

	addOutputFormat(parseCommand.Flags(), params.format)
	addMetricsFlag(parseCommand.Flags(), &params.metrics)
	addLogFlags(parseCommand.Flags(), &params.logs)

	RootCommand.AddCommand(parseCommand)
}

func parse(args []string, params *parseParams, stdin io.Reader, stdout, stderr io.Writer) int {
	grammarPath, rule, inputPath := args[0], args[1], "-"
	if len(args) > 2 {
		inputPath = args[2]
	}

	logger, err := params.logs.logger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	m := metrics.NoOp()
	if params.metrics {
		m = metrics.New()
	}

	g, err := readGrammar(grammarPath, m)
	if err != nil {
		_ = pr.Error(stderr, grammarPath, nil, err)
		return 1
	}
	p, err := compile.New().
		WithGrammar(g).
		WithLogger(logger).
		WithMetrics(m).
		Prepare(context.Background())
	if err != nil {
		_ = pr.Error(stderr, grammarPath, nil, err)
		return 1
	}

	input, err := readInput(inputPath, stdin)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	timer := m.Timer(metrics.ParseInput)
	timer.Start()
	tree, err := p.Parse(rule, input)
	timer.Stop()
	if err != nil {
		file := inputPath
		if file == "-" {
			file = ""
		}
		_ = pr.Error(stderr, file, input, err)
		return 1
	}

	switch params.format.String() {
	case formats.JSON:
		err = pr.JSON(stdout, pr.NewNodes(tree))
	case formats.YAML:
		err = pr.YAML(stdout, pr.NewNodes(tree))
	default:
		err = pr.Tree(stdout, tree)
	}
	if err == nil && params.metrics {
		err = pr.Metrics(stdout, m)
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
