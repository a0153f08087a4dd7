// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"strings"
	"testing"
)

func rule(name string, x Expr) *Rule {
	return &Rule{Name: name, Expr: x}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		note    string
		grammar *Grammar
		code    ErrCode
		exp     []string
	}{
		{
			note:    "ok",
			grammar: NewGrammar(rule("a", SeqOf(&Ident{Name: "b"}, &Ident{Name: "EOI"})), rule("b", &Ident{Name: "ASCII_DIGIT"})),
		},
		{
			note:    "undefined with suggestion",
			grammar: NewGrammar(rule("a", &Ident{Name: "valeu"}), rule("value", &Str{Value: "v"})),
			code:    UndefinedRuleErr,
			exp:     []string{"rule a references undefined rule valeu", "did you mean value?"},
		},
		{
			note:    "misspelled builtin",
			grammar: NewGrammar(rule("a", &Ident{Name: "ASCII_DIGT"})),
			code:    UndefinedRuleErr,
			exp:     []string{"did you mean ASCII_DIGIT?"},
		},
		{
			note:    "undefined without suggestion",
			grammar: NewGrammar(rule("a", &Rep{Expr: &Ident{Name: "zzzzzz"}})),
			code:    UndefinedRuleErr,
			exp:     []string{"undefined rule zzzzzz"},
		},
		{
			note:    "stack builtin",
			grammar: NewGrammar(rule("a", SeqOf(&Ident{Name: "POP"}, &Ident{Name: "PEEK_ALL"}, &Ident{Name: "POP"}))),
			code:    UnsupportedErr,
			exp:     []string{"rule a uses unsupported stack builtin POP", "rule a uses unsupported stack builtin PEEK_ALL"},
		},
		{
			note:    "duplicate",
			grammar: NewGrammar(rule("a", &Str{Value: "x"}), rule("a", &Str{Value: "y"})),
			code:    DuplicateRuleErr,
			exp:     []string{"rule a redeclared"},
		},
		{
			note:    "builtin redefined",
			grammar: NewGrammar(rule("EOI", &Str{Value: "x"})),
			code:    BuiltinRedefinedErr,
			exp:     []string{"rule EOI redefines a builtin"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			err := Check(tc.grammar)
			if len(tc.exp) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsError(tc.code, err) {
				t.Fatalf("expected %v, got %v", tc.code, err)
			}
			for _, exp := range tc.exp {
				if !strings.Contains(err.Error(), exp) {
					t.Errorf("expected error containing %q, got %q", exp, err.Error())
				}
			}
		})
	}
}

func TestCheckReportsEachReferenceOnce(t *testing.T) {
	g := NewGrammar(rule("a", SeqOf(&Ident{Name: "x"}, &Ident{Name: "x"}, &Ident{Name: "y"})))
	errs, ok := Check(g).(Errors)
	if !ok {
		t.Fatal("expected Errors")
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestExprHelpers(t *testing.T) {
	x := ChoiceOf(&Str{Value: "a"}, &Str{Value: "b"}, &Str{Value: "c"})
	if exp, got := `("a" | ("b" | "c"))`, x.String(); exp != got {
		t.Fatalf("expected %v, got %v", exp, got)
	}
	if !Equal(RepOnce(&Ident{Name: "a"}), &Seq{Left: &Ident{Name: "a"}, Right: &Rep{Expr: &Ident{Name: "a"}}}) {
		t.Fatal("expected one-or-more desugaring")
	}
	if Equal(&Str{Value: "a"}, &Insens{Value: "a"}) {
		t.Fatal("expected literal and case-insensitive literal to differ")
	}
	if exp, got := `'\n'..'\r'`, (&Range{Start: "\n", End: "\r"}).String(); exp != got {
		t.Fatalf("expected %v, got %v", exp, got)
	}
}
