// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ast declares the raw grammar representation consumed by the
// optimizer: a table of named rules whose bodies are PEG expressions.
package ast

import (
	"fmt"
	"slices"
)

// RuleType controls whether matches of a rule appear in the parse tree.
type RuleType int

const (
	// NormalRule matches produce a labeled node.
	NormalRule RuleType = iota

	// SilentRule matches are transparent: no node is produced, only the
	// nodes of the rules it references.
	SilentRule
)

func (t RuleType) String() string {
	switch t {
	case NormalRule:
		return "normal"
	case SilentRule:
		return "silent"
	}
	return fmt.Sprintf("RuleType(%d)", int(t))
}

// ParseRuleType returns the RuleType named s. The empty string names a
// normal rule.
func ParseRuleType(s string) (RuleType, error) {
	switch s {
	case "", "normal":
		return NormalRule, nil
	case "silent":
		return SilentRule, nil
	}
	return NormalRule, fmt.Errorf("unknown rule type %q", s)
}

// Rule is a named grammar rule.
type Rule struct {
	Name     string
	Type     RuleType
	Expr     Expr
	Location *Location
}

func (r *Rule) String() string {
	eq := "= {"
	if r.Type == SilentRule {
		eq = "= _{"
	}
	return fmt.Sprintf("%s %s %v }", r.Name, eq, r.Expr)
}

// Grammar is an ordered rule table.
type Grammar struct {
	Rules []*Rule
}

// NewGrammar returns a grammar made of rules.
func NewGrammar(rules ...*Rule) *Grammar {
	return &Grammar{Rules: rules}
}

// Lookup returns the first rule named name, or nil.
func (g *Grammar) Lookup(name string) *Rule {
	for _, r := range g.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// HasWhitespace returns true if the grammar defines the implicit
// whitespace rule.
func (g *Grammar) HasWhitespace() bool {
	return g.Lookup(WHITESPACE) != nil
}

// HasComment returns true if the grammar defines the implicit comment rule.
func (g *Grammar) HasComment() bool {
	return g.Lookup(COMMENT) != nil
}

// RuleNames returns the sorted names of all rules.
func (g *Grammar) RuleNames() []string {
	names := make([]string, 0, len(g.Rules))
	for _, r := range g.Rules {
		names = append(names, r.Name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
