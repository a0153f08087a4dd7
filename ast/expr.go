// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Expr is a raw grammar expression as produced by a PEG front end. Binary
// operators are represented as nested pairs.
type Expr interface {
	expr()
	String() string
}

type (
	// Str matches an exact string.
	Str struct {
		Value string
	}

	// Insens matches a string ignoring ASCII case.
	Insens struct {
		Value string
	}

	// Range matches one character between Start and End inclusive.
	Range struct {
		Start string
		End   string
	}

	// Ident references another rule or a builtin.
	Ident struct {
		Name string
	}

	// PosPred is a positive lookahead.
	PosPred struct {
		Expr Expr
	}

	// NegPred is a negative lookahead.
	NegPred struct {
		Expr Expr
	}

	// Seq matches Left followed by Right.
	Seq struct {
		Left  Expr
		Right Expr
	}

	// Choice matches Left, or Right if Left fails.
	Choice struct {
		Left  Expr
		Right Expr
	}

	// Opt matches Expr zero or one time.
	Opt struct {
		Expr Expr
	}

	// Rep matches Expr zero or more times.
	Rep struct {
		Expr Expr
	}

	// Skip consumes input until one of Strings matches.
	Skip struct {
		Strings []string
	}

	// Push matches Expr and pushes the match onto the stack.
	Push struct {
		Expr Expr
	}

	// PeekSlice matches a slice of the stack.
	PeekSlice struct {
		Start int
		End   *int
	}

	// RestoreOnErr restores the stack if Expr fails.
	RestoreOnErr struct {
		Expr Expr
	}
)

func (*Str) expr()          {}
func (*Insens) expr()       {}
func (*Range) expr()        {}
func (*Ident) expr()        {}
func (*PosPred) expr()      {}
func (*NegPred) expr()      {}
func (*Seq) expr()          {}
func (*Choice) expr()       {}
func (*Opt) expr()          {}
func (*Rep) expr()          {}
func (*Skip) expr()         {}
func (*Push) expr()         {}
func (*PeekSlice) expr()    {}
func (*RestoreOnErr) expr() {}

func (x *Str) String() string    { return strconv.Quote(x.Value) }
func (x *Insens) String() string { return "^" + strconv.Quote(x.Value) }
func (x *Range) String() string {
	return quoteChar(x.Start) + ".." + quoteChar(x.End)
}
func (x *Ident) String() string   { return x.Name }
func (x *PosPred) String() string { return "&" + x.Expr.String() }
func (x *NegPred) String() string { return "!" + x.Expr.String() }
func (x *Seq) String() string     { return "(" + x.Left.String() + " ~ " + x.Right.String() + ")" }
func (x *Choice) String() string  { return "(" + x.Left.String() + " | " + x.Right.String() + ")" }
func (x *Opt) String() string     { return x.Expr.String() + "?" }
func (x *Rep) String() string     { return x.Expr.String() + "*" }
func (x *Skip) String() string {
	quoted := make([]string, len(x.Strings))
	for i, s := range x.Strings {
		quoted[i] = strconv.Quote(s)
	}
	return "(!(" + strings.Join(quoted, " | ") + ") ~ ANY)*"
}
func (x *Push) String() string { return "PUSH(" + x.Expr.String() + ")" }
func (x *PeekSlice) String() string {
	if x.End == nil {
		return fmt.Sprintf("PEEK[%d..]", x.Start)
	}
	return fmt.Sprintf("PEEK[%d..%d]", x.Start, *x.End)
}
func (x *RestoreOnErr) String() string { return x.Expr.String() }

func quoteChar(s string) string {
	q := strconv.Quote(s)
	return "'" + q[1:len(q)-1] + "'"
}

// SeqOf folds items into right-nested sequences. It panics if items is
// empty.
func SeqOf(items ...Expr) Expr {
	return fold(items, func(l, r Expr) Expr { return &Seq{Left: l, Right: r} })
}

// ChoiceOf folds items into right-nested choices. It panics if items is
// empty.
func ChoiceOf(items ...Expr) Expr {
	return fold(items, func(l, r Expr) Expr { return &Choice{Left: l, Right: r} })
}

func fold(items []Expr, f func(l, r Expr) Expr) Expr {
	if len(items) == 0 {
		panic("ast: empty expression list")
	}
	x := items[len(items)-1]
	for i := len(items) - 2; i >= 0; i-- {
		x = f(items[i], x)
	}
	return x
}

// RepOnce returns the one-or-more repetition of x, written e+ in a grammar.
func RepOnce(x Expr) Expr {
	return &Seq{Left: x, Right: &Rep{Expr: x}}
}

// Equal returns true if a and b are structurally equal.
func Equal(a, b Expr) bool {
	switch a := a.(type) {
	case *Str:
		b, ok := b.(*Str)
		return ok && a.Value == b.Value
	case *Insens:
		b, ok := b.(*Insens)
		return ok && a.Value == b.Value
	case *Range:
		b, ok := b.(*Range)
		return ok && a.Start == b.Start && a.End == b.End
	case *Ident:
		b, ok := b.(*Ident)
		return ok && a.Name == b.Name
	case *PosPred:
		b, ok := b.(*PosPred)
		return ok && Equal(a.Expr, b.Expr)
	case *NegPred:
		b, ok := b.(*NegPred)
		return ok && Equal(a.Expr, b.Expr)
	case *Seq:
		b, ok := b.(*Seq)
		return ok && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	case *Choice:
		b, ok := b.(*Choice)
		return ok && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	case *Opt:
		b, ok := b.(*Opt)
		return ok && Equal(a.Expr, b.Expr)
	case *Rep:
		b, ok := b.(*Rep)
		return ok && Equal(a.Expr, b.Expr)
	case *Skip:
		b, ok := b.(*Skip)
		return ok && slices.Equal(a.Strings, b.Strings)
	case *Push:
		b, ok := b.(*Push)
		return ok && Equal(a.Expr, b.Expr)
	case *PeekSlice:
		b, ok := b.(*PeekSlice)
		return ok && a.Start == b.Start && ((a.End == nil && b.End == nil) || (a.End != nil && b.End != nil && *a.End == *b.End))
	case *RestoreOnErr:
		b, ok := b.(*RestoreOnErr)
		return ok && Equal(a.Expr, b.Expr)
	}
	return false
}

// Walk calls f for x and every sub-expression of x in pre-order.
func Walk(x Expr, f func(Expr)) {
	f(x)
	switch x := x.(type) {
	case *PosPred:
		Walk(x.Expr, f)
	case *NegPred:
		Walk(x.Expr, f)
	case *Seq:
		Walk(x.Left, f)
		Walk(x.Right, f)
	case *Choice:
		Walk(x.Left, f)
		Walk(x.Right, f)
	case *Opt:
		Walk(x.Expr, f)
	case *Rep:
		Walk(x.Expr, f)
	case *Push:
		Walk(x.Expr, f)
	case *RestoreOnErr:
		Walk(x.Expr, f)
	}
}
