// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"maps"
	"slices"

	"github.com/open-policy-agent/fastpeg/internal/levenshtein"
)

// Check validates the rule table: names must be unique, must not shadow a
// builtin, and every referenced rule must exist. All problems are reported
// together, sorted by location.
func Check(g *Grammar) error {
	var errs Errors

	defined := make(map[string]*Rule, len(g.Rules))
	for _, r := range g.Rules {
		if IsBuiltin(r.Name) {
			errs = append(errs, NewError(BuiltinRedefinedErr, r.Location, "rule %v redefines a builtin", r.Name))
			continue
		}
		if prev, ok := defined[r.Name]; ok {
			err := NewError(DuplicateRuleErr, r.Location, "rule %v redeclared", r.Name)
			err.Details = append(err.Details, "previous declaration at "+prev.Location.String())
			errs = append(errs, err)
			continue
		}
		defined[r.Name] = r
	}

	for _, r := range g.Rules {
		if r.Expr == nil {
			errs = append(errs, NewError(ParseErr, r.Location, "rule %v has no expression", r.Name))
			continue
		}
		reported := map[string]struct{}{}
		Walk(r.Expr, func(x Expr) {
			id, ok := x.(*Ident)
			if !ok || IsBuiltin(id.Name) {
				return
			}
			if _, ok := defined[id.Name]; ok {
				return
			}
			if _, ok := reported[id.Name]; ok {
				return
			}
			reported[id.Name] = struct{}{}
			if IsStackBuiltin(id.Name) {
				errs = append(errs, NewError(UnsupportedErr, r.Location, "rule %v uses unsupported stack builtin %v", r.Name, id.Name))
				return
			}
			err := NewError(UndefinedRuleErr, r.Location, "rule %v references undefined rule %v", r.Name, id.Name)
			if hint := levenshtein.Suggest(id.Name, slices.Values(candidates(defined))); hint != "" {
				err.Details = append(err.Details, hint)
			}
			errs = append(errs, err)
		})
	}

	if len(errs) == 0 {
		return nil
	}
	errs.Sort()
	return errs
}

func candidates(defined map[string]*Rule) []string {
	names := slices.Collect(maps.Keys(defined))
	names = append(names, CharClasses...)
	return append(names, SOI, EOI, NEWLINE)
}
