// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ir defines the reduced intermediate representation (IR) of a
// grammar.
//
// The IR is what code generation consumes: binary operators are flattened
// into ordered lists, literals, ranges and character classes that test a
// single byte are folded into character predicates, and the constructs that
// cannot be compiled have been rejected.
package ir

import (
	"strconv"
	"strings"

	"github.com/open-policy-agent/fastpeg/ast"
)

// Expr is a reduced expression. The set of implementations is closed.
type Expr interface {
	expr()

	// String returns the expression in grammar notation.
	String() string
}

type (
	// Literal matches an exact byte sequence.
	Literal struct {
		Value string
	}

	// Insens matches a byte sequence ignoring ASCII case.
	Insens struct {
		Value string
	}

	// Char matches one byte satisfying Pred.
	Char struct {
		Pred Pred
	}

	// Ident references a rule, or one of the builtins SOI, EOI and NEWLINE.
	Ident struct {
		Name string
	}

	// NegPred succeeds without consuming input iff Expr fails.
	NegPred struct {
		Expr Expr
	}

	// Seq matches every item in order.
	Seq struct {
		Items []Expr
	}

	// Choice matches the first item that matches.
	Choice struct {
		Items []Expr
	}

	// Rep matches Expr repeatedly. If AllowEmpty is false at least one
	// match is required.
	Rep struct {
		Expr       Expr
		AllowEmpty bool
	}

	// Opt matches Expr zero or one time.
	Opt struct {
		Expr Expr
	}
)

func (*Literal) expr() {}
func (*Insens) expr()  {}
func (*Char) expr()    {}
func (*Ident) expr()   {}
func (*NegPred) expr() {}
func (*Seq) expr()     {}
func (*Choice) expr()  {}
func (*Rep) expr()     {}
func (*Opt) expr()     {}

func (x *Literal) String() string { return strconv.Quote(x.Value) }
func (x *Insens) String() string  { return "^" + strconv.Quote(x.Value) }
func (x *Char) String() string    { return "(" + x.Pred.String() + ")" }
func (x *Ident) String() string   { return x.Name }
func (x *NegPred) String() string { return "!" + x.Expr.String() }
func (x *Seq) String() string     { return join(x.Items, " ~ ") }
func (x *Choice) String() string  { return join(x.Items, " | ") }
func (x *Opt) String() string     { return x.Expr.String() + "?" }

func (x *Rep) String() string {
	if x.AllowEmpty {
		return x.Expr.String() + "*"
	}
	return x.Expr.String() + "+"
}

func join(items []Expr, sep string) string {
	s := make([]string, len(items))
	for i, x := range items {
		s[i] = x.String()
	}
	return "(" + strings.Join(s, sep) + ")"
}

// IsBuiltin returns true if x references SOI, EOI or NEWLINE.
func IsBuiltin(x *Ident) bool {
	switch x.Name {
	case ast.SOI, ast.EOI, ast.NEWLINE:
		return true
	}
	return false
}

// Rule is a grammar rule with a reduced body.
type Rule struct {
	Name string
	Type ast.RuleType
	Expr Expr
}

func (r *Rule) String() string {
	eq := "= {"
	if r.Type == ast.SilentRule {
		eq = "= _{"
	}
	return r.Name + " " + eq + " " + r.Expr.String() + " }"
}

// Grammar is a reduced rule table.
type Grammar struct {
	// Rules sorted by name.
	Rules []*Rule

	// Whitespace and Comment report whether implicit WHITESPACE and
	// COMMENT rules exist. Either one enables implicit skipping between
	// the items of sequences and repetitions.
	Whitespace bool
	Comment    bool

	// Inlined lists the silent rules that were resolved to bare character
	// predicates and substituted at their use sites.
	Inlined []string
}

// Skips returns true if sequences and repetitions skip implicit
// whitespace or comments between items.
func (g *Grammar) Skips() bool {
	return g.Whitespace || g.Comment
}

// Lookup returns the rule named name, or nil.
func (g *Grammar) Lookup(name string) *Rule {
	for _, r := range g.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}
