// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

import (
	"strconv"
	"strings"
)

// Key returns a canonical encoding of x. Two expressions have the same key
// iff they are structurally equal.
func Key(x Expr) string {
	var sb strings.Builder
	writeKey(&sb, x)
	return sb.String()
}

// Equal returns true if a and b are structurally equal.
func Equal(a, b Expr) bool {
	return Key(a) == Key(b)
}

// PredKey returns a canonical encoding of p.
func PredKey(p Pred) string {
	var sb strings.Builder
	writePredKey(&sb, p)
	return sb.String()
}

func writeKey(sb *strings.Builder, x Expr) {
	switch x := x.(type) {
	case *Literal:
		sb.WriteString("lit")
		sb.WriteString(strconv.Quote(x.Value))
	case *Insens:
		sb.WriteString("insens")
		sb.WriteString(strconv.Quote(x.Value))
	case *Char:
		sb.WriteString("char(")
		writePredKey(sb, x.Pred)
		sb.WriteByte(')')
	case *Ident:
		sb.WriteString("ident(")
		sb.WriteString(x.Name)
		sb.WriteByte(')')
	case *NegPred:
		sb.WriteString("neg(")
		writeKey(sb, x.Expr)
		sb.WriteByte(')')
	case *Seq:
		sb.WriteString("seq")
		writeKeys(sb, x.Items)
	case *Choice:
		sb.WriteString("choice")
		writeKeys(sb, x.Items)
	case *Rep:
		if x.AllowEmpty {
			sb.WriteString("rep0(")
		} else {
			sb.WriteString("rep1(")
		}
		writeKey(sb, x.Expr)
		sb.WriteByte(')')
	case *Opt:
		sb.WriteString("opt(")
		writeKey(sb, x.Expr)
		sb.WriteByte(')')
	}
}

func writeKeys(sb *strings.Builder, items []Expr) {
	sb.WriteByte('(')
	for i, x := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeKey(sb, x)
	}
	sb.WriteByte(')')
}

func writePredKey(sb *strings.Builder, p Pred) {
	switch p := p.(type) {
	case *Byte:
		sb.WriteString("b")
		sb.WriteString(strconv.Itoa(int(p.B)))
	case *Range:
		sb.WriteString("r")
		sb.WriteString(strconv.Itoa(int(p.Lo)))
		sb.WriteByte('-')
		sb.WriteString(strconv.Itoa(int(p.Hi)))
	case *Class:
		sb.WriteString(p.Name)
	case *Not:
		sb.WriteString("not(")
		writePredKey(sb, p.P)
		sb.WriteByte(')')
	case *And:
		sb.WriteString("and(")
		writePredKey(sb, p.L)
		sb.WriteByte(',')
		writePredKey(sb, p.R)
		sb.WriteByte(')')
	case *Or:
		sb.WriteString("or(")
		for i, q := range p.Items {
			if i > 0 {
				sb.WriteByte(',')
			}
			writePredKey(sb, q)
		}
		sb.WriteByte(')')
	}
}
