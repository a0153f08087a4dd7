// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package optimizer

import (
	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/ir"
)

// Simplify applies the fusion passes to a reduced expression, bottom-up:
//
//   - nested sequences and choices are flattened;
//   - in a sequence, !P followed by predicate Q becomes the predicate !P && Q,
//     and !P followed by !Q becomes !(P || Q);
//   - in a sequence, x followed by x* becomes x+;
//   - in a choice, each run of predicate alternatives becomes one predicate;
//   - single item sequences and choices are replaced by their item.
//
// Simplify is idempotent.
func Simplify(x ir.Expr) ir.Expr {
	var st stats
	return simplify(x, &st)
}

func simplify(x ir.Expr, st *stats) ir.Expr {
	switch x := x.(type) {
	case *ir.NegPred:
		return &ir.NegPred{Expr: simplify(x.Expr, st)}
	case *ir.Rep:
		return &ir.Rep{Expr: simplify(x.Expr, st), AllowEmpty: x.AllowEmpty}
	case *ir.Opt:
		return &ir.Opt{Expr: simplify(x.Expr, st)}
	case *ir.Seq:
		return simplifySeq(x.Items, st)
	case *ir.Choice:
		return simplifyChoice(x.Items, st)
	}
	return x
}

func simplifySeq(items []ir.Expr, st *stats) ir.Expr {
	out := make([]ir.Expr, 0, len(items))
	for _, item := range items {
		item = simplify(item, st)
		if seq, ok := item.(*ir.Seq); ok {
			out = append(out, seq.Items...)
		} else {
			out = append(out, item)
		}
	}

	for i := 0; i+1 < len(out); {
		if fused := fuseLookahead(out[i], out[i+1]); fused != nil {
			st.lookaheads++
			out[i] = fused
			out = append(out[:i+1], out[i+2:]...)
			continue
		}
		i++
	}

	for i := 0; i+1 < len(out); i++ {
		if rep, ok := out[i+1].(*ir.Rep); ok && rep.AllowEmpty && ir.Equal(out[i], rep.Expr) {
			st.idioms++
			out[i] = &ir.Rep{Expr: rep.Expr}
			out = append(out[:i+1], out[i+2:]...)
		}
	}

	if len(out) == 1 {
		return out[0]
	}
	return &ir.Seq{Items: out}
}

// fuseLookahead returns the fusion of a and b, or nil if the pair does not
// start with a negated predicate followed by a predicate or negated
// predicate.
func fuseLookahead(a, b ir.Expr) ir.Expr {
	p, ok := negatedChar(a)
	if !ok {
		return nil
	}
	switch b := b.(type) {
	case *ir.Char:
		return &ir.Char{Pred: &ir.And{L: &ir.Not{P: p}, R: b.Pred}}
	case *ir.NegPred:
		if q, ok := negatedChar(b); ok {
			return &ir.NegPred{Expr: &ir.Char{Pred: ir.NewOr(p, q)}}
		}
	}
	return nil
}

func negatedChar(x ir.Expr) (ir.Pred, bool) {
	neg, ok := x.(*ir.NegPred)
	if !ok {
		return nil, false
	}
	c, ok := neg.Expr.(*ir.Char)
	if !ok {
		return nil, false
	}
	return c.Pred, true
}

func simplifyChoice(items []ir.Expr, st *stats) ir.Expr {
	flat := make([]ir.Expr, 0, len(items))
	for _, item := range items {
		item = simplify(item, st)
		if choice, ok := item.(*ir.Choice); ok {
			flat = append(flat, choice.Items...)
		} else {
			flat = append(flat, item)
		}
	}

	out := make([]ir.Expr, 0, len(flat))
	var run []ir.Pred
	var first ir.Expr
	flush := func() {
		switch len(run) {
		case 0:
		case 1:
			out = append(out, first)
		default:
			st.choices++
			out = append(out, &ir.Char{Pred: ir.NewOr(run...)})
		}
		run = nil
	}
	for _, item := range flat {
		if c, ok := item.(*ir.Char); ok {
			if len(run) == 0 {
				first = c
			}
			run = append(run, c.Pred)
			continue
		}
		flush()
		out = append(out, item)
	}
	flush()

	if len(out) == 1 {
		return out[0]
	}
	return &ir.Choice{Items: out}
}

// SilentCharacterRules returns the predicates of the silent rules whose
// reduced body is a bare character predicate, keyed by rule name.
func SilentCharacterRules(rules []*ir.Rule) map[string]ir.Pred {
	table := map[string]ir.Pred{}
	for _, r := range rules {
		if r.Type != ast.SilentRule {
			continue
		}
		if c, ok := r.Expr.(*ir.Char); ok {
			table[r.Name] = c.Pred
		}
	}
	return table
}

// PropagateSilentCharacterRules replaces, in place, every reference to a
// rule of table with the rule's predicate and re-runs the fusion passes on
// the rules that changed. It returns the number of references replaced.
func PropagateSilentCharacterRules(rules []*ir.Rule, table map[string]ir.Pred) int {
	var st stats
	return int(propagate(rules, table, &st))
}

func propagate(rules []*ir.Rule, table map[string]ir.Pred, st *stats) uint64 {
	var total uint64
	for _, r := range rules {
		var n uint64
		x := substitute(r.Expr, table, &n)
		if n > 0 {
			r.Expr = simplify(x, st)
			total += n
		}
	}
	return total
}

func substitute(x ir.Expr, table map[string]ir.Pred, n *uint64) ir.Expr {
	switch x := x.(type) {
	case *ir.Ident:
		if p, ok := table[x.Name]; ok {
			*n++
			return &ir.Char{Pred: p}
		}
	case *ir.NegPred:
		return &ir.NegPred{Expr: substitute(x.Expr, table, n)}
	case *ir.Rep:
		return &ir.Rep{Expr: substitute(x.Expr, table, n), AllowEmpty: x.AllowEmpty}
	case *ir.Opt:
		return &ir.Opt{Expr: substitute(x.Expr, table, n)}
	case *ir.Seq:
		return &ir.Seq{Items: substituteAll(x.Items, table, n)}
	case *ir.Choice:
		return &ir.Choice{Items: substituteAll(x.Items, table, n)}
	}
	return x
}

func substituteAll(items []ir.Expr, table map[string]ir.Pred, n *uint64) []ir.Expr {
	out := make([]ir.Expr, len(items))
	for i, x := range items {
		out[i] = substitute(x, table, n)
	}
	return out
}
