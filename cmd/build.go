// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/open-policy-agent/fastpeg/cmd/internal/env"
	"github.com/open-policy-agent/fastpeg/compile"
	"github.com/open-policy-agent/fastpeg/filewatcher"
	"github.com/open-policy-agent/fastpeg/internal/compiler/golang"
	pr "github.com/open-policy-agent/fastpeg/internal/presentation"
	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/metrics"
)

type buildParams struct {
	outputFile string
	pkg        string
	check      bool
	watch      bool
	metrics    bool
	logs       logParams
}

func newBuildParams() buildParams {
	return buildParams{
		pkg:  golang.DefaultPackage,
		logs: newLogParams(),
	}
}

func (p *buildParams) validate() error {
	if p.check && p.outputFile == "" {
		return errors.New("--check requires an output file")
	}
	if p.check && p.watch {
		return errors.New("--check cannot be combined with --watch")
	}
	return nil
}

var errOutOfDate = errors.New("generated source is out of date")

func init() {
	params := newBuildParams()

	buildCommand := &cobra.Command{
		Use:   "build <grammar>",
		Short: "Generate a Go parser from a grammar",
		Long: `Generate a Go parser from a grammar.

The build command compiles the grammar document and writes a Go source file
containing one Parse function per rule. The generated file only depends on
the parse package.

With --check, the generated source is compared against the output file and a
line diff is printed when they differ. With --watch, the parser is rebuilt
whenever the grammar file changes.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("specify exactly one grammar file")
			}
			if err := env.CheckEnvironmentVariables(cmd); err != nil {
				return err
			}
			return params.validate()
		},
		Run: func(_ *cobra.Command, args []string) {
			os.Exit(build(args, &params, os.Stdout, os.Stderr))
		},
	}

	buildCommand.Flags().StringVarP(&params.outputFile, "output", "o", "", "set the output file (default stdout)")
	buildCommand.Flags().StringVarP(&params.pkg, "package", "p", params.pkg, "set the package name of the generated file")
	buildCommand.Flags().BoolVar(&params.check, "check", false, "fail with a diff if the output file is not up to date")
	buildCommand.Flags().BoolVarP(&params.watch, "watch", "w", false, "rebuild when the grammar file changes")
	addMetricsFlag(buildCommand.Flags(), &params.metrics)
	addLogFlags(buildCommand.Flags(), &params.logs)

	RootCommand.AddCommand(buildCommand)
}

func build(args []string, params *buildParams, stdout, stderr io.Writer) int {
	logger, err := params.logs.logger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	path := args[0]
	if err := buildOnce(ctx, path, params, logger, stdout); err != nil {
		if !errors.Is(err, errOutOfDate) {
			_ = pr.Error(stderr, path, nil, err)
		}
		if !params.watch {
			return 1
		}
	}
	if !params.watch {
		return 0
	}

	onReload := func(ctx context.Context, path string) error {
		return buildOnce(ctx, path, params, logger, stdout)
	}
	if err := filewatcher.New([]string{path}, onReload, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func buildOnce(ctx context.Context, path string, params *buildParams, logger logging.Logger, stdout io.Writer) error {
	m := metrics.NoOp()
	if params.metrics {
		m = metrics.New()
	}

	g, err := readGrammar(path, m)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = compile.New().
		WithGrammar(g).
		WithPackage(params.pkg).
		WithOutput(&buf).
		WithLogger(logger).
		WithMetrics(m).
		Build(ctx)
	if err != nil {
		return err
	}

	switch {
	case params.check:
		existing, err := os.ReadFile(params.outputFile)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if !bytes.Equal(existing, buf.Bytes()) {
			fmt.Fprintf(stdout, "%s is out of date:\n", params.outputFile)
			fmt.Fprint(stdout, lineDiff(string(existing), buf.String()))
			return errOutOfDate
		}
	case params.outputFile == "":
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	default:
		if err := os.WriteFile(params.outputFile, buf.Bytes(), 0o644); err != nil {
			return err
		}
		logger.WithFields(map[string]any{"file": params.outputFile}).Info("Wrote parser.")
	}

	if params.metrics {
		return pr.Metrics(stdout, m)
	}
	return nil
}

// lineDiff returns the changed lines between old and new. Removed lines are
// prefixed with "-", added lines with "+", and every run of changes is
// preceded by the line number it starts at in old.
func lineDiff(old, new string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	line, inRun := 1, false
	for _, d := range diffs {
		text := strings.SplitAfter(d.Text, "\n")
		if text[len(text)-1] == "" {
			text = text[:len(text)-1]
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			line += len(text)
			inRun = false
			continue
		case diffmatchpatch.DiffDelete:
			if !inRun {
				fmt.Fprintf(&sb, "@@ line %d @@\n", line)
			}
			writeLines(&sb, "-", text)
			line += len(text)
		case diffmatchpatch.DiffInsert:
			if !inRun {
				fmt.Fprintf(&sb, "@@ line %d @@\n", line)
			}
			writeLines(&sb, "+", text)
		}
		inRun = true
	}
	return sb.String()
}

func writeLines(sb *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		sb.WriteString(prefix)
		sb.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			sb.WriteString("\n")
		}
	}
}
