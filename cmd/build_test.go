// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildStdout(t *testing.T) {
	path := writeFile(t, "pair.yaml", pairGrammar)
	params := newBuildParams()
	params.pkg = "pairs"

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, build([]string{path}, &params, &stdout, &stderr), stderr.String())
	require.Contains(t, stdout.String(), "package pairs")
	require.Contains(t, stdout.String(), "func ParsePair(input []byte) (*parse.Tree, error)")
}

func TestBuildOutputFileAndCheck(t *testing.T) {
	path := writeFile(t, "pair.yaml", pairGrammar)
	out := filepath.Join(t.TempDir(), "parser.go")

	params := newBuildParams()
	params.outputFile = out
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, build([]string{path}, &params, &stdout, &stderr), stderr.String())
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "Wrote parser.")

	params.check = true
	stdout.Reset()
	require.Equal(t, 0, build([]string{path}, &params, &stdout, &stderr), stdout.String())

	bs, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(out, bytes.Replace(bs, []byte("package parser"), []byte("package old"), 1), 0o644))

	stdout.Reset()
	require.Equal(t, 1, build([]string{path}, &params, &stdout, &stderr))
	require.Contains(t, stdout.String(), "is out of date")
	require.Contains(t, stdout.String(), "-package old\n+package parser\n")
}

func TestBuildMetrics(t *testing.T) {
	path := writeFile(t, "pair.yaml", pairGrammar)
	params := newBuildParams()
	params.metrics = true

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, build([]string{path}, &params, &stdout, &stderr), stderr.String())
	require.Contains(t, stdout.String(), "counter_codegen_procedures")
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		note    string
		grammar string
		exp     string
	}{
		{
			note:    "undefined rule",
			grammar: "rules: [{name: a, expr: b}]",
			exp:     "undefined",
		},
		{
			note:    "unsupported construct",
			grammar: "rules: [{name: a, expr: {and: {str: x}}}]",
			exp:     "unsupported",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			path := writeFile(t, "g.yaml", tc.grammar)
			params := newBuildParams()
			var stdout, stderr bytes.Buffer
			require.Equal(t, 1, build([]string{path}, &params, &stdout, &stderr))
			require.Contains(t, stderr.String(), tc.exp)
			require.Empty(t, stdout.String())
		})
	}
}

func TestBuildParamsValidate(t *testing.T) {
	params := newBuildParams()
	params.check = true
	require.ErrorContains(t, params.validate(), "requires an output file")

	params.outputFile = "parser.go"
	params.watch = true
	require.ErrorContains(t, params.validate(), "cannot be combined")

	params.watch = false
	require.NoError(t, params.validate())
}

func TestLineDiff(t *testing.T) {
	tests := []struct {
		note string
		old  string
		new  string
		exp  string
	}{
		{
			note: "equal",
			old:  "a\nb\n",
			new:  "a\nb\n",
			exp:  "",
		},
		{
			note: "changed line",
			old:  "a\nb\nc\n",
			new:  "a\nx\nc\n",
			exp:  "@@ line 2 @@\n-b\n+x\n",
		},
		{
			note: "added file",
			old:  "",
			new:  "a\n",
			exp:  "@@ line 1 @@\n+a\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			require.Equal(t, tc.exp, lineDiff(tc.old, tc.new))
		})
	}
}
