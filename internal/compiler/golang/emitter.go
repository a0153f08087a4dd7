// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package golang

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/internal/ids"
	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/parse"
)

type emitter struct {
	reg *ids.Registry
	ws  bool
}

type nodeData struct {
	ID      string
	Comment string
	Frame   string
	Params  string
	Labels  bool

	// Literals and predicates.
	Lit      string
	Inv      string
	Len      int
	Cond     string
	UsesC    bool
	Expected string

	// Single child.
	Quick     string
	Full      string
	NextQuick string
	NextFull  string

	Items      []itemData
	AllowEmpty bool
	Skip       bool
	Self       string
}

type itemData struct {
	Quick string
	Full  string
	Frame string
	Note  string
	Skip  bool
}

// needs returns true if the procedures of x take the label list.
func (e *emitter) needs(x ir.Expr) bool {
	return ir.ContainsIdents(x, e.ws)
}

func (e *emitter) params(x ir.Expr) string {
	if e.needs(x) {
		return "input []byte, labels *parse.Labels"
	}
	return "input []byte"
}

// call returns the call expression of the tier procedure of x applied to
// arg.
func (e *emitter) call(tier string, x ir.Expr, arg string) string {
	if ident, ok := x.(*ir.Ident); ok && ir.IsBuiltin(ident) {
		return tier + "_" + ident.Name + "(" + arg + ")"
	}
	id := e.reg.ID(x)
	if e.needs(x) {
		return tier + "_" + id + "(" + arg + ", labels)"
	}
	return tier + "_" + id + "(" + arg + ")"
}

func (e *emitter) emit(id string, x ir.Expr) (string, error) {
	data := nodeData{
		ID:      id,
		Comment: x.String(),
		Frame:   strconv.Quote(id + " " + x.String()),
		Params:  e.params(x),
		Labels:  e.needs(x),
	}

	var kind string
	switch x := x.(type) {
	case *ir.Literal:
		kind = "literal"
		data.Lit, data.Len = strconv.Quote(x.Value), len(x.Value)
	case *ir.Insens:
		kind = "insens"
		data.Lit, data.Len = strconv.Quote(x.Value), len(x.Value)
		data.Inv = strconv.Quote(parse.InvertCase(x.Value))
	case *ir.Char:
		kind = "char"
		data.Cond, data.UsesC = goPred(x.Pred), usesByte(x.Pred)
		data.Expected = strconv.Quote(x.Pred.String())
	case *ir.NegPred:
		kind = "neg"
		data.Quick, data.Full = e.call("quick", x.Expr, "input"), e.call("full", x.Expr, "input")
		data.Expected = strconv.Quote(x.Expr.String())
	case *ir.Opt:
		kind = "opt"
		data.Quick, data.Full = e.call("quick", x.Expr, "input"), e.call("full", x.Expr, "input")
	case *ir.Seq:
		kind = "seq"
		for i, item := range x.Items {
			d := itemData{
				Quick: e.call("quick", item, "input"),
				Full:  e.call("full", item, "input"),
				Frame: strconv.Quote(fmt.Sprintf("%s-%d %s", id, i, x.String())),
				Skip:  i > 0 && e.ws,
			}
			if i > 0 {
				if n := note(x.Items[i-1]); n != "" {
					d.Note = strconv.Quote(n)
				}
			}
			data.Items = append(data.Items, d)
		}
	case *ir.Choice:
		kind = "choice"
		data.Self = e.call("quick", x, "input")
		for _, item := range x.Items {
			data.Items = append(data.Items, itemData{
				Quick: e.call("quick", item, "input"),
				Full:  e.call("full", item, "input"),
			})
		}
	case *ir.Rep:
		data.AllowEmpty = x.AllowEmpty
		if ch, ok := x.Expr.(*ir.Char); ok {
			kind = "scan"
			data.Cond, data.UsesC = goPred(ch.Pred), usesByte(ch.Pred)
			data.Expected = strconv.Quote(ch.Pred.String())
			break
		}
		kind = "rep"
		data.Skip = e.ws
		data.Quick, data.Full = e.call("quick", x.Expr, "input"), e.call("full", x.Expr, "input")
		data.NextQuick, data.NextFull = e.call("quick", x.Expr, "next"), e.call("full", x.Expr, "next")
	default:
		return "", unexpected(x)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, kind, data); err != nil {
		return "", ast.NewError(ast.GenerateErr, nil, "%v: %v", id, err)
	}
	return buf.String(), nil
}

// note returns the hint attached to the failure of the item following prev.
func note(prev ir.Expr) string {
	switch prev := prev.(type) {
	case *ir.Rep:
		return "following repetition " + prev.String() + " which ended"
	case *ir.Ident:
		if !ir.IsBuiltin(prev) {
			return "following rule " + prev.Name + " which ended"
		}
	}
	return ""
}

var classExprs = map[string]string{
	ast.ANY:                 "true",
	ast.ASCII:               "c < 0x80",
	ast.ASCII_DIGIT:         "('0' <= c && c <= '9')",
	ast.ASCII_NONZERO_DIGIT: "('1' <= c && c <= '9')",
	ast.ASCII_BIN_DIGIT:     "(c == '0' || c == '1')",
	ast.ASCII_OCT_DIGIT:     "('0' <= c && c <= '7')",
	ast.ASCII_HEX_DIGIT:     "(('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F'))",
	ast.ASCII_ALPHA_LOWER:   "('a' <= c && c <= 'z')",
	ast.ASCII_ALPHA_UPPER:   "('A' <= c && c <= 'Z')",
	ast.ASCII_ALPHA:         "(('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z'))",
	ast.ASCII_ALPHANUMERIC:  "(('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z'))",
}

// goPred renders p as a Go boolean expression over the byte variable c.
func goPred(p ir.Pred) string {
	switch p := p.(type) {
	case *ir.Byte:
		return "c == " + goByte(p.B)
	case *ir.Range:
		return "(" + goByte(p.Lo) + " <= c && c <= " + goByte(p.Hi) + ")"
	case *ir.Class:
		return classExprs[p.Name]
	case *ir.Not:
		return "!(" + goPred(p.P) + ")"
	case *ir.And:
		return "(" + goPred(p.L) + " && " + goPred(p.R) + ")"
	case *ir.Or:
		s := make([]string, len(p.Items))
		for i, q := range p.Items {
			s[i] = goPred(q)
		}
		return "(" + strings.Join(s, " || ") + ")"
	}
	panic(fmt.Sprintf("golang: unexpected predicate %T", p))
}

func goByte(b byte) string {
	if b < 0x80 {
		return strconv.QuoteRuneToASCII(rune(b))
	}
	return fmt.Sprintf("0x%02x", b)
}

// usesByte returns false if p never reads c.
func usesByte(p ir.Pred) bool {
	switch p := p.(type) {
	case *ir.Class:
		return p.Name != ast.ANY
	case *ir.Not:
		return usesByte(p.P)
	case *ir.And:
		return usesByte(p.L) || usesByte(p.R)
	case *ir.Or:
		for _, q := range p.Items {
			if usesByte(q) {
				return true
			}
		}
		return false
	}
	return true
}
