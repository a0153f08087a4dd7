// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

// Visitor defines the interface for visiting IR nodes.
type Visitor interface {
	Before(x any)
	Visit(x any) (Visitor, error)
	After(x any)
}

// Walk invokes the visitor for nodes under x. x may be a *Grammar, a
// *Rule, an Expr or a Pred.
func Walk(vis Visitor, x any) error {
	impl := walkerImpl{
		vis: vis,
	}
	impl.walk(x)
	return impl.err
}

type walkerImpl struct {
	vis Visitor
	err error
}

func (w *walkerImpl) walk(x any) {
	if w.err != nil {
		return
	}

	if x == nil {
		return
	}

	prev := w.vis
	w.vis.Before(x)
	defer w.vis.After(x)
	w.vis, w.err = w.vis.Visit(x)
	if w.err != nil {
		return
	} else if w.vis == nil {
		w.vis = prev
		return
	}

	switch x := x.(type) {
	case *Grammar:
		for _, r := range x.Rules {
			w.walk(r)
		}
	case *Rule:
		w.walk(x.Expr)
	case *Char:
		w.walk(x.Pred)
	case *NegPred:
		w.walk(x.Expr)
	case *Seq:
		for _, item := range x.Items {
			w.walk(item)
		}
	case *Choice:
		for _, item := range x.Items {
			w.walk(item)
		}
	case *Rep:
		w.walk(x.Expr)
	case *Opt:
		w.walk(x.Expr)
	case *Not:
		w.walk(x.P)
	case *And:
		w.walk(x.L)
		w.walk(x.R)
	case *Or:
		for _, p := range x.Items {
			w.walk(p)
		}
	}

	w.vis = prev
}
