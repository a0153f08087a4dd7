// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package optimizer lowers raw grammar expressions into the reduced IR
// consumed by the code generators.
package optimizer

import (
	"slices"
	"strings"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/metrics"
)

// Metric names recorded by the optimizer.
const (
	LiteralsFolded   = "optimizer_literals_folded"
	Idioms           = "optimizer_idioms"
	LookaheadFusions = "optimizer_lookahead_fusions"
	ChoiceFusions    = "optimizer_choice_fusions"
	InlinedRules     = "optimizer_inlined_rules"
)

// Optimizer reduces every rule of a grammar.
type Optimizer struct {
	grammar *ast.Grammar
	logger  logging.Logger
	metrics metrics.Metrics
}

// New returns a new Optimizer.
func New() *Optimizer {
	return &Optimizer{
		logger:  logging.NewNoOpLogger(),
		metrics: metrics.NoOp(),
	}
}

// WithGrammar sets the grammar to optimize.
func (o *Optimizer) WithGrammar(g *ast.Grammar) *Optimizer {
	o.grammar = g
	return o
}

// WithLogger sets the logger for the optimizer.
func (o *Optimizer) WithLogger(l logging.Logger) *Optimizer {
	o.logger = l
	return o
}

// WithMetrics sets the metrics the optimizer records fusion counts into.
func (o *Optimizer) WithMetrics(m metrics.Metrics) *Optimizer {
	o.metrics = m
	return o
}

// Optimize reduces every rule body and then inlines the silent rules that
// reduce to bare character predicates. Rules are returned sorted by name.
// Unsupported constructs in any rule are reported together.
func (o *Optimizer) Optimize() (*ir.Grammar, error) {
	rules := slices.Clone(o.grammar.Rules)
	slices.SortStableFunc(rules, func(a, b *ast.Rule) int {
		return strings.Compare(a.Name, b.Name)
	})

	var st stats
	var errs ast.Errors
	result := &ir.Grammar{
		Whitespace: o.grammar.HasWhitespace(),
		Comment:    o.grammar.HasComment(),
	}

	for _, r := range rules {
		x, err := optimize(r.Expr, &st)
		if err != nil {
			err.Location = r.Location
			errs = append(errs, err)
			continue
		}
		o.logger.WithFields(map[string]any{"rule": r.Name}).Debug("Reduced rule to %v.", x)
		result.Rules = append(result.Rules, &ir.Rule{Name: r.Name, Type: r.Type, Expr: x})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	var table map[string]ir.Pred
	for {
		table = SilentCharacterRules(result.Rules)
		n := propagate(result.Rules, table, &st)
		if n == 0 {
			break
		}
		st.inlined += n
	}

	for name := range table {
		result.Inlined = append(result.Inlined, name)
	}
	slices.Sort(result.Inlined)
	if len(result.Inlined) > 0 {
		o.logger.Debug("Inlined silent character rules %v at %d sites.", result.Inlined, st.inlined)
	}

	o.metrics.Counter(LiteralsFolded).Add(st.literals)
	o.metrics.Counter(Idioms).Add(st.idioms)
	o.metrics.Counter(LookaheadFusions).Add(st.lookaheads)
	o.metrics.Counter(ChoiceFusions).Add(st.choices)
	o.metrics.Counter(InlinedRules).Add(st.inlined)

	return result, nil
}

type stats struct {
	literals   uint64
	idioms     uint64
	lookaheads uint64
	choices    uint64
	inlined    uint64
}

// Optimize lowers x into the reduced IR: one-byte literals, one-byte ranges
// and builtin character classes become character predicates, binary
// sequences and choices are flattened, and the fusions applied by Simplify
// are run over the result.
func Optimize(x ast.Expr) (ir.Expr, error) {
	var st stats
	r, err := optimize(x, &st)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func optimize(x ast.Expr, st *stats) (ir.Expr, *ast.Error) {
	l, err := lower(x, st)
	if err != nil {
		return nil, err
	}
	return simplify(l, st), nil
}

func lower(x ast.Expr, st *stats) (ir.Expr, *ast.Error) {
	switch x := x.(type) {
	case *ast.Str:
		if len(x.Value) == 1 {
			st.literals++
			return &ir.Char{Pred: &ir.Byte{B: x.Value[0]}}, nil
		}
		return &ir.Literal{Value: x.Value}, nil

	case *ast.Insens:
		switch len(x.Value) {
		case 0:
			return &ir.Literal{}, nil
		case 1:
			st.literals++
			return &ir.Char{Pred: insensitiveByte(x.Value[0])}, nil
		}
		return &ir.Insens{Value: x.Value}, nil

	case *ast.Range:
		if len(x.Start) != 1 || len(x.End) != 1 {
			return nil, unsupported(x, "ranges must be bounded by single bytes")
		}
		if x.Start[0] > x.End[0] {
			return nil, unsupported(x, "range start is greater than range end")
		}
		return &ir.Char{Pred: &ir.Range{Lo: x.Start[0], Hi: x.End[0]}}, nil

	case *ast.Ident:
		if ast.IsCharClass(x.Name) {
			return &ir.Char{Pred: &ir.Class{Name: x.Name}}, nil
		}
		return &ir.Ident{Name: x.Name}, nil

	case *ast.NegPred:
		inner, err := lower(x.Expr, st)
		if err != nil {
			return nil, err
		}
		return &ir.NegPred{Expr: inner}, nil

	case *ast.Seq:
		if rep, ok := x.Right.(*ast.Rep); ok && ast.Equal(x.Left, rep.Expr) {
			inner, err := lower(x.Left, st)
			if err != nil {
				return nil, err
			}
			st.idioms++
			return &ir.Rep{Expr: inner}, nil
		}
		items, err := lowerAll(flatten(x, isSeq), st)
		if err != nil {
			return nil, err
		}
		return &ir.Seq{Items: items}, nil

	case *ast.Choice:
		items, err := lowerAll(flatten(x, isChoice), st)
		if err != nil {
			return nil, err
		}
		return &ir.Choice{Items: items}, nil

	case *ast.Opt:
		inner, err := lower(x.Expr, st)
		if err != nil {
			return nil, err
		}
		return &ir.Opt{Expr: inner}, nil

	case *ast.Rep:
		inner, err := lower(x.Expr, st)
		if err != nil {
			return nil, err
		}
		return &ir.Rep{Expr: inner, AllowEmpty: true}, nil

	case *ast.PosPred:
		return nil, unsupported(x, "positive lookahead is not supported")
	case *ast.Push:
		return nil, unsupported(x, "stack operations are not supported")
	case *ast.PeekSlice:
		return nil, unsupported(x, "stack operations are not supported")
	case *ast.Skip:
		return nil, unsupported(x, "skip expressions are not supported")
	case *ast.RestoreOnErr:
		return nil, unsupported(x, "stack operations are not supported")
	}

	return nil, ast.NewError(ast.UnsupportedErr, nil, "unknown expression %T", x)
}

func lowerAll(xs []ast.Expr, st *stats) ([]ir.Expr, *ast.Error) {
	out := make([]ir.Expr, 0, len(xs))
	for _, x := range xs {
		r, err := lower(x, st)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func unsupported(x ast.Expr, reason string) *ast.Error {
	return ast.NewError(ast.UnsupportedErr, nil, "%v: %v", reason, x)
}

func insensitiveByte(c byte) ir.Pred {
	switch {
	case 'a' <= c && c <= 'z':
		return ir.NewOr(&ir.Byte{B: c}, &ir.Byte{B: c - 'a' + 'A'})
	case 'A' <= c && c <= 'Z':
		return ir.NewOr(&ir.Byte{B: c - 'A' + 'a'}, &ir.Byte{B: c})
	}
	return &ir.Byte{B: c}
}

func isSeq(x ast.Expr) (l, r ast.Expr, ok bool) {
	s, ok := x.(*ast.Seq)
	if !ok {
		return nil, nil, false
	}
	// Keep the one-or-more idiom intact so that lower recognizes it.
	if rep, isRep := s.Right.(*ast.Rep); isRep && ast.Equal(s.Left, rep.Expr) {
		return nil, nil, false
	}
	return s.Left, s.Right, true
}

func isChoice(x ast.Expr) (l, r ast.Expr, ok bool) {
	c, ok := x.(*ast.Choice)
	if !ok {
		return nil, nil, false
	}
	return c.Left, c.Right, true
}

// flatten expands nested binary nodes accepted by split into an ordered
// list of operands.
func flatten(x ast.Expr, split func(ast.Expr) (ast.Expr, ast.Expr, bool)) []ast.Expr {
	l, r, ok := split(x)
	if !ok {
		return []ast.Expr{x}
	}
	return append(flatten(l, split), flatten(r, split)...)
}
