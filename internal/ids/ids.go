// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ids assigns stable procedure identifiers to reduced expressions.
// Structurally equal expressions share one identifier, so the backends emit
// one procedure pair per distinct sub-expression.
package ids

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/util"
)

// Entry is one registered expression.
type Entry struct {
	ID   string
	Expr ir.Expr
}

// Registry maps expressions to identifiers. Identifiers reference their rule
// by name; every other expression gets an anonymous identifier the first
// time it is seen.
type Registry struct {
	table   *util.HashMap[ir.Expr, string]
	entries []Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		table: util.NewHashMap[ir.Expr, string](ir.Equal, hash),
	}
}

func hash(x ir.Expr) uint64 {
	return xxhash.Sum64String(ir.Key(x))
}

// ID returns the identifier of x, assigning a new one if x was not seen
// before.
func (r *Registry) ID(x ir.Expr) string {
	id, _ := r.lookup(x)
	return id
}

func (r *Registry) lookup(x ir.Expr) (string, bool) {
	if ident, ok := x.(*ir.Ident); ok {
		return ident.Name, false
	}
	if id, ok := r.table.Get(x); ok {
		return id, false
	}
	id := fmt.Sprintf("anon_%04d", len(r.entries))
	r.table.Put(x, id)
	r.entries = append(r.entries, Entry{ID: id, Expr: x})
	return id, true
}

// Register assigns identifiers to x and all of its sub-expressions and
// calls visit once for every expression seen for the first time, children
// before parents. Identifiers are never visited: their procedures are the
// rule wrappers.
func (r *Registry) Register(x ir.Expr, visit func(id string, x ir.Expr)) {
	for _, e := range ir.ListExprs(x) {
		if id, fresh := r.lookup(e); fresh && visit != nil {
			visit(id, e)
		}
	}
}

// Len returns the number of anonymous identifiers assigned.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns the registered expressions sorted by identifier.
func (r *Registry) Entries() []Entry {
	out := slices.Clone(r.entries)
	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
