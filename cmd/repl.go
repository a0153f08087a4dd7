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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/open-policy-agent/fastpeg/cmd/formats"
	"github.com/open-policy-agent/fastpeg/cmd/internal/env"
	"github.com/open-policy-agent/fastpeg/compile"
	"github.com/open-policy-agent/fastpeg/filewatcher"
	"github.com/open-policy-agent/fastpeg/repl"
	"github.com/open-policy-agent/fastpeg/util"
)

type replParams struct {
	format      *util.EnumFlag
	historyPath string
	cacheSize   int
	watch       bool
	logs        logParams
}

func newReplParams() replParams {
	return replParams{
		format:      formats.Flag(formats.Pretty, formats.JSON),
		historyPath: defaultHistoryFile(),
		cacheSize:   compile.DefaultCacheSize,
		logs:        newLogParams(),
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fastpeg_history"
	}
	return filepath.Join(home, ".fastpeg_history")
}

func init() {
	params := newReplParams()

	replCommand := &cobra.Command{
		Use:   "repl <grammar> [rule]",
		Short: "Start an interactive parsing session",
		Long: `Start an interactive parsing session.

Every line entered is parsed with the current start rule and the parse tree,
or the error, is printed. Lines starting with a colon are commands; enter
":help" to list them. With --watch, the grammar is recompiled whenever the file
changes.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return errors.New("specify a grammar file and optionally a start rule")
			}
			return env.CheckEnvironmentVariables(cmd)
		},
		Run: func(_ *cobra.Command, args []string) {
			os.Exit(startRepl(args, &params, os.Stdout, os.Stderr))
		},
	}

	addOutputFormat(replCommand.Flags(), params.format)
	replCommand.Flags().StringVar(&params.historyPath, "history", params.historyPath, "set path of history file")
	replCommand.Flags().IntVar(&params.cacheSize, "cache-size", params.cacheSize, "set the number of compiled grammars to keep")
	replCommand.Flags().BoolVarP(&params.watch, "watch", "w", false, "recompile when the grammar file changes")
	addLogFlags(replCommand.Flags(), &params.logs)

	RootCommand.AddCommand(replCommand)
}

// newRepl returns a REPL with the grammar loaded.
func newRepl(ctx context.Context, args []string, params *replParams, stdout, stderr io.Writer) (*repl.REPL, error) {
	logger, err := params.logs.logger(stderr)
	if err != nil {
		return nil, err
	}
	cache, err := compile.NewCache(params.cacheSize)
	if err != nil {
		return nil, err
	}

	r := repl.New(args[0], cache.WithLogger(logger), stdout).
		WithFormat(params.format.String()).
		WithHistoryPath(params.historyPath).
		WithLogger(logger)
	if len(args) > 1 {
		r = r.WithRule(args[1])
	}
	if err := r.Load(ctx); err != nil {
		return nil, err
	}

	if params.watch {
		if err := filewatcher.New([]string{args[0]}, r.Reload, logger).Start(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func startRepl(args []string, params *replParams, stdout, stderr io.Writer) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := newRepl(ctx, args, params, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	r.Loop(ctx)
	return 0
}
