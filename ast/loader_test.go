// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseGrammar(t *testing.T) {
	tests := []struct {
		note string
		doc  string
		exp  []string
	}{
		{
			note: "character class repetition",
			doc: `
rules:
  - name: field
    expr: {rep1: {choice: [ASCII_DIGIT, {str: "."}, {str: "-"}]}}
`,
			exp: []string{`field = { ((ASCII_DIGIT | ("." | "-")) ~ (ASCII_DIGIT | ("." | "-"))*) }`},
		},
		{
			note: "silent rule and sequence",
			doc: `
rules:
  - name: WHITESPACE
    type: silent
    expr: {str: " "}
  - name: pair
    expr: {seq: [key, {str: "="}, {ident: value}]}
  - name: key
    expr: {range: [a, z]}
  - name: value
    expr: {insens: "v"}
`,
			exp: []string{
				`WHITESPACE = _{ " " }`,
				`pair = { (key ~ ("=" ~ value)) }`,
				`key = { 'a'..'z' }`,
				`value = { ^"v" }`,
			},
		},
		{
			note: "lookahead and optional",
			doc:  `{"rules": [{"name": "s", "expr": {"seq": [{"not": {"str": "\""}}, {"opt": "ANY"}]}}]}`,
			exp:  []string{`s = { (!"\"" ~ ANY?) }`},
		},
		{
			note: "unsupported constructs still load",
			doc: `
rules:
  - name: s
    expr: {choice: [{and: {str: a}}, {push: {str: b}}, {peek: [0, 1]}, {skip: ["*/"]}]}
`,
			exp: []string{`s = { (&"a" | (PUSH("b") | (PEEK[0..1] | (!("*/") ~ ANY)*))) }`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			g, err := ParseGrammar("test.yaml", []byte(tc.doc))
			if err != nil {
				t.Fatal(err)
			}
			var result []string
			for _, r := range g.Rules {
				result = append(result, r.String())
			}
			if diff := cmp.Diff(tc.exp, result); diff != "" {
				t.Errorf("unexpected rules (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestParseGrammarLocations(t *testing.T) {
	doc := `rules:
  - name: a
    expr: b
  - name: b
    expr: {str: x}
`
	g, err := ParseGrammar("g.yaml", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if exp, got := "g.yaml:2:5", g.Rules[0].Location.String(); exp != got {
		t.Errorf("expected %v, got %v", exp, got)
	}
	if exp, got := "g.yaml:4:5", g.Rules[1].Location.String(); exp != got {
		t.Errorf("expected %v, got %v", exp, got)
	}
}

func TestParseGrammarErrors(t *testing.T) {
	tests := []struct {
		note string
		doc  string
		exp  string
	}{
		{note: "empty", doc: ``, exp: "empty grammar document"},
		{note: "not a mapping", doc: `[1, 2]`, exp: "grammar document must be a mapping"},
		{note: "unknown key", doc: `{rulez: []}`, exp: `unknown grammar key "rulez"`},
		{note: "unknown operator", doc: "rules:\n  - name: a\n    expr: {star: b}\n", exp: `3:12: parse_error: unknown operator "star"`},
		{note: "two operators", doc: "rules:\n  - name: a\n    expr: {str: x, rep: b}\n", exp: "exactly one operator, found 2"},
		{note: "bad name", doc: "rules:\n  - name: 1a\n    expr: b\n", exp: `invalid rule name "1a"`},
		{note: "bad reference", doc: "rules:\n  - name: a\n    expr: {seq: [b, \"c-d\"]}\n", exp: `invalid rule reference "c-d"`},
		{note: "missing expression", doc: "rules:\n  - name: a\n", exp: "rule a has no expression"},
		{note: "bad range", doc: "rules:\n  - name: a\n    expr: {range: [a]}\n", exp: "expected a list of 2 strings"},
		{note: "bad type", doc: "rules:\n  - name: a\n    type: atomic\n    expr: b\n", exp: `unknown rule type "atomic"`},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			_, err := ParseGrammar("", []byte(tc.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsError(ParseErr, err) {
				t.Errorf("expected parse error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.exp) {
				t.Errorf("expected error containing %q, got %q", tc.exp, err.Error())
			}
		})
	}
}
