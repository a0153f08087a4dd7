// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	grammar := writeFile(t, "pair.yaml", pairGrammar)
	input := writeFile(t, "input.txt", "k=v")

	tests := []struct {
		note   string
		args   []string
		stdin  string
		format string
		exp    string
	}{
		{
			note:  "stdin",
			args:  []string{grammar, "pair"},
			stdin: "k = v",
			exp:   "pair(0..5) \"k = v\"\n  key(0..1) \"k\"\n  value(4..5) \"v\"\n",
		},
		{
			note:  "explicit stdin",
			args:  []string{grammar, "key", "-"},
			stdin: "abc",
			exp:   "key(0..3) \"abc\"\n",
		},
		{
			note: "file",
			args: []string{grammar, "pair", input},
			exp:  "pair(0..3) \"k=v\"\n  key(0..1) \"k\"\n  value(2..3) \"v\"\n",
		},
		{
			note:   "yaml",
			args:   []string{grammar, "key", "-"},
			stdin:  "ab",
			format: "yaml",
			exp:    "- end: 2\n  rule: key\n  start: 0\n  text: ab\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			params := newParseParams()
			if tc.format != "" {
				require.NoError(t, params.format.Set(tc.format))
			}
			var stdout, stderr bytes.Buffer
			require.Equal(t, 0, parse(tc.args, &params, strings.NewReader(tc.stdin), &stdout, &stderr), stderr.String())
			require.Equal(t, tc.exp, stdout.String())
		})
	}
}

func TestParseJSON(t *testing.T) {
	grammar := writeFile(t, "pair.yaml", pairGrammar)
	params := newParseParams()
	require.NoError(t, params.format.Set("json"))

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, parse([]string{grammar, "pair"}, &params, strings.NewReader("k=v"), &stdout, &stderr))
	require.Contains(t, stdout.String(), `"rule": "pair"`)
	require.Contains(t, stdout.String(), `"children": [`)
}

func TestParseFailures(t *testing.T) {
	grammar := writeFile(t, "pair.yaml", pairGrammar)
	input := writeFile(t, "input.txt", "k=1")

	tests := []struct {
		note  string
		args  []string
		stdin string
		exp   []string
	}{
		{
			note:  "no match on stdin",
			args:  []string{grammar, "pair"},
			stdin: "k = 1",
			exp:   []string{"--> input:1:5", "^"},
		},
		{
			note: "no match in file",
			args: []string{grammar, "pair", input},
			exp:  []string{"--> " + input + ":1:3"},
		},
		{
			note: "missing grammar",
			args: []string{grammar + ".missing", "pair"},
			exp:  []string{"error:"},
		},
		{
			note: "missing input",
			args: []string{grammar, "pair", input + ".missing"},
			exp:  []string{"read input"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			params := newParseParams()
			var stdout, stderr bytes.Buffer
			require.Equal(t, 1, parse(tc.args, &params, strings.NewReader(tc.stdin), &stdout, &stderr))
			for _, s := range tc.exp {
				require.Contains(t, stderr.String(), s)
			}
			require.Empty(t, stdout.String())
		})
	}
}
