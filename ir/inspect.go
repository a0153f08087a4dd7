// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

// ListExprs returns x and every sub-expression of x in post-order, so that
// children precede their parents.
func ListExprs(x Expr) []Expr {
	var out []Expr
	var visit func(Expr)
	visit = func(x Expr) {
		switch x := x.(type) {
		case *NegPred:
			visit(x.Expr)
		case *Seq:
			for _, item := range x.Items {
				visit(item)
			}
		case *Choice:
			for _, item := range x.Items {
				visit(item)
			}
		case *Rep:
			visit(x.Expr)
		case *Opt:
			visit(x.Expr)
		}
		out = append(out, x)
	}
	visit(x)
	return out
}

// IsScan returns true if x is a repetition of a bare character predicate,
// which is matched by a single loop over the input.
func IsScan(x *Rep) bool {
	_, ok := x.Expr.(*Char)
	return ok
}

// ContainsIdents returns true if matching x may append entries to the label
// list: x references a rule, or skips implicit whitespace between items. A
// scan never skips.
func ContainsIdents(x Expr, skips bool) bool {
	switch x := x.(type) {
	case *Ident:
		return !IsBuiltin(x)
	case *NegPred:
		return ContainsIdents(x.Expr, skips)
	case *Seq:
		if skips && len(x.Items) > 1 {
			return true
		}
		return anyContainsIdents(x.Items, skips)
	case *Choice:
		return anyContainsIdents(x.Items, skips)
	case *Rep:
		if IsScan(x) {
			return false
		}
		return skips || ContainsIdents(x.Expr, skips)
	case *Opt:
		return ContainsIdents(x.Expr, skips)
	}
	return false
}

func anyContainsIdents(items []Expr, skips bool) bool {
	for _, x := range items {
		if ContainsIdents(x, skips) {
			return true
		}
	}
	return false
}
