// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parse

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Tree is the result of a successful parse. It bundles the label list with
// the input its spans refer to; the two are never exposed separately.
type Tree struct {
	input   []byte
	entries []Entry
	names   []string
}

// NewTree packages labels populated while parsing input. It panics if
// labels was created for a different input.
func NewTree(input []byte, labels *Labels, names []string) *Tree {
	if labels.size != len(input) {
		panic(fmt.Sprintf("parse: label list created for %d bytes used with %d byte input", labels.size, len(input)))
	}
	return &Tree{
		input:   input,
		entries: labels.entries,
		names:   names,
	}
}

// Input returns the parsed input.
func (t *Tree) Input() []byte {
	return t.input
}

// Len returns the number of labeled nodes in the tree.
func (t *Tree) Len() int {
	return len(t.entries)
}

// At returns the node stored at index i of the label list.
func (t *Tree) At(i int) Node {
	if i < 0 || i >= len(t.entries) {
		panic(fmt.Sprintf("parse: node index %d out of range [0, %d)", i, len(t.entries)))
	}
	return Node{t: t, i: i}
}

// Root returns the first top-level node. Parsing a normal rule always
// produces exactly one; parsing a silent rule may produce any number, see
// Roots.
func (t *Tree) Root() Node {
	return t.At(0)
}

// Roots returns the top-level nodes in order.
func (t *Tree) Roots() iter.Seq[Node] {
	return t.siblings(0, len(t.entries))
}

// siblings yields the nodes whose entries start the consecutive subtrees
// of the range [start, end).
func (t *Tree) siblings(start, end int) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for i := start; i < end; i = t.entries[i].Next {
			if !yield(Node{t: t, i: i}) {
				return
			}
		}
	}
}

// Validate checks that the label list encodes a well-formed pre-order tree:
// every descendant range nests inside its parent's range, and every span
// lies within its parent's span and after its preceding sibling.
func (t *Tree) Validate() error {
	return t.validate(0, len(t.entries), 0, len(t.input))
}

func (t *Tree) validate(start, end, lo, hi int) error {
	for i := start; i < end; {
		e := t.entries[i]
		switch {
		case e.Rule == placeholder:
			return fmt.Errorf("entry %d: unfilled placeholder", i)
		case e.Next <= i || e.Next > end:
			return fmt.Errorf("entry %d: descendant end %d outside (%d, %d]", i, e.Next, i, end)
		case e.Start < lo || e.End > hi || e.Start > e.End:
			return fmt.Errorf("entry %d: span [%d, %d) outside [%d, %d)", i, e.Start, e.End, lo, hi)
		}
		if err := t.validate(i+1, e.Next, e.Start, e.End); err != nil {
			return err
		}
		lo = e.End
		i = e.Next
	}
	return nil
}

func (t *Tree) String() string {
	var sb strings.Builder
	for n := range t.Roots() {
		n.format(&sb, 0)
	}
	return sb.String()
}

func (t *Tree) name(r Rule) string {
	if int(r) >= 0 && int(r) < len(t.names) {
		return t.names[r]
	}
	return "rule" + strconv.Itoa(int(r))
}

// Node is a cursor onto one entry of a Tree.
type Node struct {
	t *Tree
	i int
}

// Index returns the position of the node in the label list.
func (n Node) Index() int {
	return n.i
}

// Rule returns the rule that produced the node.
func (n Node) Rule() Rule {
	return n.t.entries[n.i].Rule
}

// Name returns the name of the rule that produced the node.
func (n Node) Name() string {
	return n.t.name(n.Rule())
}

// Span returns the byte offsets of the matched input.
func (n Node) Span() (start, end int) {
	e := n.t.entries[n.i]
	return e.Start, e.End
}

// Bytes returns the matched input. The slice aliases the parsed input.
func (n Node) Bytes() []byte {
	e := n.t.entries[n.i]
	return n.t.input[e.Start:e.End:e.End]
}

// Text returns the matched input as a string.
func (n Node) Text() string {
	return string(n.Bytes())
}

// Children returns the immediate children of the node. The sequence may be
// ranged over any number of times.
func (n Node) Children() iter.Seq[Node] {
	return n.t.siblings(n.i+1, n.t.entries[n.i].Next)
}

// ChildCount returns the number of entries nested under the node. This
// counts grandchildren too; it matches the number of immediate children
// only when no child has children of its own.
func (n Node) ChildCount() int {
	return n.t.entries[n.i].Next - n.i - 1
}

// Walk calls fn for the node and each of its descendants in pre-order.
// Returning false from fn skips the descendants of that node.
func (n Node) Walk(fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for c := range n.Children() {
		c.Walk(fn)
	}
}

func (n Node) String() string {
	start, end := n.Span()
	return fmt.Sprintf("%s(%d..%d) %q", n.Name(), start, end, n.Text())
}

func (n Node) format(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.String())
	sb.WriteByte('\n')
	for c := range n.Children() {
		c.format(sb, depth+1)
	}
}
