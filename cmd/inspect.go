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

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/open-policy-agent/fastpeg/cmd/formats"
	"github.com/open-policy-agent/fastpeg/cmd/internal/env"
	"github.com/open-policy-agent/fastpeg/compile"
	pr "github.com/open-policy-agent/fastpeg/internal/presentation"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/util"
)

type inspectCommandParams struct {
	outputFormat *util.EnumFlag
	rules        string
	metrics      bool
	logs         logParams
}

func newInspectCommandParams() inspectCommandParams {
	return inspectCommandParams{
		outputFormat: formats.Flag(formats.Pretty, formats.JSON, formats.YAML),
		logs:         newLogParams(),
	}
}

func init() {
	params := newInspectCommandParams()

	inspectCommand := &cobra.Command{
		Use:   "inspect <grammar>",
		Short: "Inspect the reduced form of a grammar",
		Long: `Inspect the reduced form of a grammar.

The inspect command prints every rule after optimization, the rules that were
inlined away, and the procedure identifiers the code generator assigns to
distinct sub-expressions.

Rules can be filtered by a glob pattern:

    $ fastpeg inspect json.yaml --rules 'json_*'
`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("specify exactly one grammar file")
			}
			return env.CheckEnvironmentVariables(cmd)
		},
		Run: func(_ *cobra.Command, args []string) {
			if err := doInspect(params, args[0], os.Stdout, os.Stderr); err != nil {
				_ = pr.Error(os.Stderr, args[0], nil, err)
				os.Exit(1)
			}
		},
	}

	addOutputFormat(inspectCommand.Flags(), params.outputFormat)
	inspectCommand.Flags().StringVar(&params.rules, "rules", "", "only list rules matching the glob pattern")
	addMetricsFlag(inspectCommand.Flags(), &params.metrics)
	addLogFlags(inspectCommand.Flags(), &params.logs)

	RootCommand.AddCommand(inspectCommand)
}

func doInspect(params inspectCommandParams, path string, out, stderr io.Writer) error {
	var match func(string) bool
	if params.rules != "" {
		g, err := glob.Compile(params.rules)
		if err != nil {
			return fmt.Errorf("invalid rule pattern: %w", err)
		}
		match = g.Match
	}

	logger, err := params.logs.logger(stderr)
	if err != nil {
		return err
	}

	m := metrics.New()
	g, err := readGrammar(path, m)
	if err != nil {
		return err
	}
	p, err := compile.New().
		WithGrammar(g).
		WithLogger(logger).
		WithMetrics(m).
		Prepare(context.Background())
	if err != nil {
		return err
	}

	info := pr.NewInspection(p.IR(), p.Registry(), match)
	if params.metrics {
		info.Metrics = m.All()
	}

	switch params.outputFormat.String() {
	case formats.JSON:
		return pr.JSON(out, info)
	case formats.YAML:
		return pr.YAML(out, info)
	default:
		return info.Pretty(out)
	}
}
