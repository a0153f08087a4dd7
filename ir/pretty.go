// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Pretty writes a human-readable representation of an IR object to w.
func Pretty(w io.Writer, x any) error {
	pp := &prettyPrinter{
		depth: -1,
		w:     w,
	}
	return Walk(pp, x)
}

type prettyPrinter struct {
	depth int
	w     io.Writer
}

func (pp *prettyPrinter) Before(_ any) {
	pp.depth++
}

func (pp *prettyPrinter) After(_ any) {
	pp.depth--
}

func (pp *prettyPrinter) Visit(x any) (Visitor, error) {
	switch x := x.(type) {
	case *Grammar:
		pp.writeIndent("grammar whitespace=%v comment=%v", x.Whitespace, x.Comment)
	case *Rule:
		pp.writeIndent("rule %v (%v)", x.Name, x.Type)
	case *Literal:
		pp.writeIndent("literal %v", strconv.Quote(x.Value))
	case *Insens:
		pp.writeIndent("insens %v", strconv.Quote(x.Value))
	case *Char:
		pp.writeIndent("char %v", x.Pred)
		return nil, nil
	case *Ident:
		pp.writeIndent("ident %v", x.Name)
	case *NegPred:
		pp.writeIndent("neg")
	case *Seq:
		pp.writeIndent("seq")
	case *Choice:
		pp.writeIndent("choice")
	case *Rep:
		pp.writeIndent("rep allow_empty=%v", x.AllowEmpty)
	case *Opt:
		pp.writeIndent("opt")
	default:
		pp.writeIndent("%T %+v", x, x)
	}
	return pp, nil
}

func (pp *prettyPrinter) writeIndent(f string, a ...any) {
	pad := strings.Repeat("| ", pp.depth)
	fmt.Fprintf(pp.w, pad+f+"\n", a...)
}
