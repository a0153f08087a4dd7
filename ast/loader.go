// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParseGrammar decodes a grammar document. The document is YAML (or JSON)
// holding a list of rules:
//
//	rules:
//	  - name: number
//	    expr: {rep1: ASCII_DIGIT}
//	  - name: WHITESPACE
//	    type: silent
//	    expr: {str: " "}
//
// Expressions are mappings with a single key naming the operator, or bare
// scalars naming a rule.
func ParseGrammar(filename string, bs []byte) (*Grammar, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return nil, Errors{NewError(ParseErr, NewLocation(filename, 1, 1), "%v", err)}
	}

	l := &loader{file: filename}
	g := l.document(&doc)
	if len(l.errs) > 0 {
		l.errs.Sort()
		return nil, l.errs
	}
	return g, nil
}

type loader struct {
	file string
	errs Errors
}

func (l *loader) loc(n *yaml.Node) *Location {
	return NewLocation(l.file, n.Line, n.Column)
}

func (l *loader) errorf(n *yaml.Node, f string, a ...any) {
	l.errs = append(l.errs, NewError(ParseErr, l.loc(n), f, a...))
}

func (l *loader) document(doc *yaml.Node) *Grammar {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		l.errorf(doc, "empty grammar document")
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		l.errorf(root, "grammar document must be a mapping")
		return nil
	}

	g := NewGrammar()
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "rules":
			if val.Kind != yaml.SequenceNode {
				l.errorf(val, "rules must be a list")
				continue
			}
			for _, n := range val.Content {
				if r := l.rule(n); r != nil {
					g.Rules = append(g.Rules, r)
				}
			}
		default:
			l.errorf(key, "unknown grammar key %q", key.Value)
		}
	}
	return g
}

func (l *loader) rule(n *yaml.Node) *Rule {
	if n.Kind != yaml.MappingNode {
		l.errorf(n, "rule must be a mapping")
		return nil
	}

	r := &Rule{Location: l.loc(n)}
	var body *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "name":
			r.Name = val.Value
		case "type":
			t, err := ParseRuleType(val.Value)
			if err != nil {
				l.errorf(val, "%v", err)
				return nil
			}
			r.Type = t
		case "expr":
			body = val
		default:
			l.errorf(key, "unknown rule key %q", key.Value)
			return nil
		}
	}

	if !validName(r.Name) {
		l.errorf(n, "invalid rule name %q", r.Name)
		return nil
	}
	if body == nil {
		l.errorf(n, "rule %v has no expression", r.Name)
		return nil
	}
	if r.Expr = l.expr(body); r.Expr == nil {
		return nil
	}
	return r
}

func (l *loader) expr(n *yaml.Node) Expr {
	switch n.Kind {
	case yaml.AliasNode:
		return l.expr(n.Alias)
	case yaml.ScalarNode:
		return l.ident(n)
	case yaml.MappingNode:
	default:
		l.errorf(n, "expression must be a rule name or a single-key mapping")
		return nil
	}

	if len(n.Content) != 2 {
		l.errorf(n, "expression must have exactly one operator, found %d", len(n.Content)/2)
		return nil
	}

	op, arg := n.Content[0], n.Content[1]
	switch op.Value {
	case "str":
		if s, ok := l.scalar(arg); ok {
			return &Str{Value: s}
		}
	case "insens":
		if s, ok := l.scalar(arg); ok {
			return &Insens{Value: s}
		}
	case "ident":
		return l.ident(arg)
	case "range":
		if bounds := l.scalars(arg, 2); bounds != nil {
			return &Range{Start: bounds[0], End: bounds[1]}
		}
	case "seq":
		if items := l.list(arg); items != nil {
			return SeqOf(items...)
		}
	case "choice":
		if items := l.list(arg); items != nil {
			return ChoiceOf(items...)
		}
	case "opt":
		return l.unary(arg, func(x Expr) Expr { return &Opt{Expr: x} })
	case "rep":
		return l.unary(arg, func(x Expr) Expr { return &Rep{Expr: x} })
	case "rep1":
		return l.unary(arg, RepOnce)
	case "not":
		return l.unary(arg, func(x Expr) Expr { return &NegPred{Expr: x} })
	case "and":
		return l.unary(arg, func(x Expr) Expr { return &PosPred{Expr: x} })
	case "push":
		return l.unary(arg, func(x Expr) Expr { return &Push{Expr: x} })
	case "restore":
		return l.unary(arg, func(x Expr) Expr { return &RestoreOnErr{Expr: x} })
	case "peek":
		return l.peek(arg)
	case "skip":
		if arg.Kind != yaml.SequenceNode {
			l.errorf(arg, "skip expects a list of strings")
			return nil
		}
		if ss := l.scalars(arg, len(arg.Content)); ss != nil {
			return &Skip{Strings: ss}
		}
	default:
		l.errorf(op, "unknown operator %q", op.Value)
	}
	return nil
}

func (l *loader) unary(n *yaml.Node, f func(Expr) Expr) Expr {
	x := l.expr(n)
	if x == nil {
		return nil
	}
	return f(x)
}

func (l *loader) ident(n *yaml.Node) Expr {
	if n.Kind != yaml.ScalarNode || !validName(n.Value) {
		l.errorf(n, "invalid rule reference %q", n.Value)
		return nil
	}
	return &Ident{Name: n.Value}
}

func (l *loader) scalar(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		l.errorf(n, "expected a string")
		return "", false
	}
	if n.Tag == "!!null" {
		return "", true
	}
	return n.Value, true
}

func (l *loader) scalars(n *yaml.Node, count int) []string {
	if n.Kind != yaml.SequenceNode || len(n.Content) != count {
		l.errorf(n, "expected a list of %d strings", count)
		return nil
	}
	out := make([]string, 0, count)
	for _, c := range n.Content {
		s, ok := l.scalar(c)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (l *loader) list(n *yaml.Node) []Expr {
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		l.errorf(n, "expected a non-empty list of expressions")
		return nil
	}
	out := make([]Expr, 0, len(n.Content))
	for _, c := range n.Content {
		x := l.expr(c)
		if x == nil {
			return nil
		}
		out = append(out, x)
	}
	return out
}

func (l *loader) peek(n *yaml.Node) Expr {
	if n.Kind != yaml.SequenceNode || len(n.Content) < 1 || len(n.Content) > 2 {
		l.errorf(n, "peek expects [start] or [start, end]")
		return nil
	}
	start, err := strconv.Atoi(n.Content[0].Value)
	if err != nil {
		l.errorf(n.Content[0], "invalid peek start: %v", err)
		return nil
	}
	x := &PeekSlice{Start: start}
	if len(n.Content) == 2 && n.Content[1].Tag != "!!null" {
		end, err := strconv.Atoi(n.Content[1].Value)
		if err != nil {
			l.errorf(n.Content[1], "invalid peek end: %v", err)
			return nil
		}
		x.End = &end
	}
	return x
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
