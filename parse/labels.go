// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package parse contains the runtime used by generated parsers: the flat
// label list populated while matching, the tree and cursor types built
// from it, and the structured parse error.
package parse

// Rule identifies the grammar rule that produced a label. Generated
// parsers declare one typed constant per rule.
type Rule int

// Entry is a single label in the list. The descendants of the entry at
// index i occupy exactly the range [i+1, Next).
type Entry struct {
	Rule  Rule
	Start int // byte offset of the first matched byte
	End   int // byte offset one past the last matched byte
	Next  int // index one past the last descendant
}

// placeholder marks a reserved slot whose rule has not matched yet.
const placeholder Rule = -1

// Labels is the growable label list written by matching procedures. It is
// created for one input and records that input's length so that spans can
// be computed from the remaining-input slices the procedures thread
// through.
type Labels struct {
	entries []Entry
	size    int
}

// NewLabels returns an empty label list for input.
func NewLabels(input []byte) *Labels {
	return &Labels{
		entries: make([]Entry, 0, 16),
		size:    len(input),
	}
}

// Len returns the number of entries in the list.
func (l *Labels) Len() int {
	return len(l.entries)
}

// Offset returns the absolute offset of rest, which must be a suffix of
// the input the list was created for.
func (l *Labels) Offset(rest []byte) int {
	return l.size - len(rest)
}

// Reserve appends a placeholder entry and returns its index.
func (l *Labels) Reserve() int {
	l.entries = append(l.entries, Entry{Rule: placeholder})
	return len(l.entries) - 1
}

// Set overwrites the reserved entry at slot with rule and the span
// consumed between input and rest. The entry's descendant range is closed
// at the current list length.
func (l *Labels) Set(slot int, rule Rule, input, rest []byte) {
	l.entries[slot] = Entry{
		Rule:  rule,
		Start: l.size - len(input),
		End:   l.size - len(rest),
		Next:  len(l.entries),
	}
}

// Truncate drops every entry at index n and above.
func (l *Labels) Truncate(n int) {
	if n < len(l.entries) {
		l.entries = l.entries[:n]
	}
}

// Reset empties the list, keeping its capacity.
func (l *Labels) Reset() {
	l.entries = l.entries[:0]
}
