// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package levenshtein suggests close matches for misspelled names.
package levenshtein

import (
	"iter"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ClosestStrings returns the candidates at the smallest edit distance from
// a, provided that distance does not exceed maxDistance. The result is
// sorted.
func ClosestStrings(maxDistance int, a string, candidates iter.Seq[string]) []string {
	closest := []string{}
	for c := range candidates {
		d := levenshtein.ComputeDistance(a, c)
		switch {
		case d < maxDistance:
			closest = []string{c}
			maxDistance = d
		case d == maxDistance:
			closest = append(closest, c)
		}
	}
	slices.Sort(closest)
	return slices.Compact(closest)
}

// Suggest returns a "did you mean" hint for a among candidates, or the
// empty string if nothing is close. Up to two edits are tolerated, or one
// per three bytes for longer names.
func Suggest(a string, candidates iter.Seq[string]) string {
	limit := max(2, len(a)/3)
	closest := ClosestStrings(limit, a, candidates)
	if len(closest) == 0 {
		return ""
	}
	return "did you mean " + strings.Join(closest, " or ") + "?"
}
