// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package env

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

type flagValues struct {
	Int  int
	Str  string
	Bool bool
}

func mockCommand(use string, w io.Writer) *cobra.Command {
	var vals flagValues
	cmd := &cobra.Command{
		Use: use,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return CheckEnvironmentVariables(cmd)
		},
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(w, "%v; %v; %v", vals.Int, vals.Str, vals.Bool)
		},
	}
	cmd.Flags().IntVarP(&vals.Int, "max-depth", "i", 0, "set int")
	cmd.Flags().StringVarP(&vals.Str, "package", "p", "", "set string")
	cmd.Flags().BoolVarP(&vals.Bool, "check", "c", false, "set bool")
	return cmd
}

func TestCheckEnvironmentVariables(t *testing.T) {
	tests := []struct {
		note  string
		child bool
		env   map[string]string
		exp   string
		err   string
	}{
		{
			note: "defaults",
			exp:  "0; ; false",
		},
		{
			note: "root command",
			env:  map[string]string{"FASTPEG_MAX_DEPTH": "3", "FASTPEG_PACKAGE": "parser", "FASTPEG_CHECK": "true"},
			exp:  "3; parser; true",
		},
		{
			note:  "child command",
			child: true,
			env:   map[string]string{"FASTPEG_BUILD_MAX_DEPTH": "7", "FASTPEG_BUILD_PACKAGE": "json"},
			exp:   "7; json; false",
		},
		{
			note:  "root variables do not apply to children",
			child: true,
			env:   map[string]string{"FASTPEG_PACKAGE": "json"},
			exp:   "0; ; false",
		},
		{
			note:  "invalid values are reported together",
			child: true,
			env:   map[string]string{"FASTPEG_BUILD_MAX_DEPTH": "true", "FASTPEG_BUILD_CHECK": "7"},
			err:   errorMessagePrefix,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			var buf bytes.Buffer
			cmd := mockCommand("fastpeg", &buf)
			if tc.child {
				child := mockCommand("build", &buf)
				cmd.AddCommand(child)
				cmd = child
			}

			err := cmd.PreRunE(cmd, nil)
			if tc.err != "" {
				if err == nil || !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error containing %q, got %v", tc.err, err)
				}
				if !strings.Contains(err.Error(), `"7"`) || !strings.Contains(err.Error(), `"true"`) {
					t.Fatalf("expected both invalid values in %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			cmd.Run(cmd, nil)
			if buf.String() != tc.exp {
				t.Fatalf("expected %q, got %q", tc.exp, buf.String())
			}
		})
	}
}

func TestCommandLinePrecedence(t *testing.T) {
	var buf bytes.Buffer
	cmd := mockCommand("fastpeg", &buf)
	t.Setenv("FASTPEG_MAX_DEPTH", "3")
	t.Setenv("FASTPEG_CHECK", "true")
	cmd.SetArgs([]string{"-i", "42"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if exp := "42; ; true"; buf.String() != exp {
		t.Fatalf("expected %q, got %q", exp, buf.String())
	}
}

func TestVariable(t *testing.T) {
	root := mockCommand("fastpeg", io.Discard)
	child := mockCommand("build", io.Discard)
	root.AddCommand(child)
	if got := Variable(child, "log-level"); got != "FASTPEG_BUILD_LOG_LEVEL" {
		t.Fatalf("unexpected variable %v", got)
	}
	if got := Variable(root, "check"); got != "FASTPEG_CHECK" {
		t.Fatalf("unexpected variable %v", got)
	}
}
