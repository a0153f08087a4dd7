// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/open-policy-agent/fastpeg/ast"
)

// Pred is a boolean test over a single input byte.
type Pred interface {
	pred()

	// Test returns true if c satisfies the predicate.
	Test(c byte) bool

	// String returns the predicate in grammar notation.
	String() string
}

type (
	// Byte tests equality with B.
	Byte struct {
		B byte
	}

	// Range tests Lo <= c <= Hi.
	Range struct {
		Lo, Hi byte
	}

	// Class tests membership in a builtin character class.
	Class struct {
		Name string
	}

	// Not negates P.
	Not struct {
		P Pred
	}

	// And requires both L and R.
	And struct {
		L, R Pred
	}

	// Or requires any of Items.
	Or struct {
		Items []Pred
	}
)

func (*Byte) pred()  {}
func (*Range) pred() {}
func (*Class) pred() {}
func (*Not) pred()   {}
func (*And) pred()   {}
func (*Or) pred()    {}

func (p *Byte) Test(c byte) bool  { return c == p.B }
func (p *Range) Test(c byte) bool { return p.Lo <= c && c <= p.Hi }
func (p *Class) Test(c byte) bool { return ClassTest(p.Name)(c) }
func (p *Not) Test(c byte) bool   { return !p.P.Test(c) }
func (p *And) Test(c byte) bool   { return p.L.Test(c) && p.R.Test(c) }

func (p *Or) Test(c byte) bool {
	for _, q := range p.Items {
		if q.Test(c) {
			return true
		}
	}
	return false
}

func (p *Byte) String() string  { return quoteByte(p.B) }
func (p *Range) String() string { return quoteByte(p.Lo) + ".." + quoteByte(p.Hi) }
func (p *Class) String() string { return p.Name }
func (p *Not) String() string   { return "!" + p.P.String() }
func (p *And) String() string   { return "(" + p.L.String() + " && " + p.R.String() + ")" }

func (p *Or) String() string {
	s := make([]string, len(p.Items))
	for i, q := range p.Items {
		s[i] = q.String()
	}
	return "(" + strings.Join(s, " || ") + ")"
}

func quoteByte(b byte) string {
	if b < 0x80 {
		return strconv.QuoteRuneToASCII(rune(b))
	}
	return fmt.Sprintf(`'\x%02x'`, b)
}

// NewOr returns the disjunction of ps. Nested disjunctions are flattened
// and a single predicate is returned as is.
func NewOr(ps ...Pred) Pred {
	var items []Pred
	for _, p := range ps {
		if or, ok := p.(*Or); ok {
			items = append(items, or.Items...)
		} else {
			items = append(items, p)
		}
	}
	if len(items) == 1 {
		return items[0]
	}
	return &Or{Items: items}
}

var classTests = map[string]func(byte) bool{
	ast.ANY:                 func(byte) bool { return true },
	ast.ASCII:               func(c byte) bool { return c < 0x80 },
	ast.ASCII_DIGIT:         isDigit,
	ast.ASCII_NONZERO_DIGIT: func(c byte) bool { return '1' <= c && c <= '9' },
	ast.ASCII_BIN_DIGIT:     func(c byte) bool { return c == '0' || c == '1' },
	ast.ASCII_OCT_DIGIT:     func(c byte) bool { return '0' <= c && c <= '7' },
	ast.ASCII_HEX_DIGIT:     func(c byte) bool { return isDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' },
	ast.ASCII_ALPHA_LOWER:   isLower,
	ast.ASCII_ALPHA_UPPER:   isUpper,
	ast.ASCII_ALPHA:         func(c byte) bool { return isLower(c) || isUpper(c) },
	ast.ASCII_ALPHANUMERIC:  func(c byte) bool { return isDigit(c) || isLower(c) || isUpper(c) },
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
func isLower(c byte) bool { return 'a' <= c && c <= 'z' }
func isUpper(c byte) bool { return 'A' <= c && c <= 'Z' }

// ClassTest returns the test for the builtin character class name. It
// panics if name is not a character class.
func ClassTest(name string) func(byte) bool {
	f, ok := classTests[name]
	if !ok {
		panic("ir: unknown character class " + name)
	}
	return f
}

// ByteSet is a predicate compiled to a 256-bit membership table.
type ByteSet [4]uint64

// NewByteSet evaluates p for every byte value.
func NewByteSet(p Pred) *ByteSet {
	var s ByteSet
	for c := range 256 {
		if p.Test(byte(c)) {
			s[c>>6] |= 1 << (c & 63)
		}
	}
	return &s
}

// Contains returns true if c satisfies the compiled predicate.
func (s *ByteSet) Contains(c byte) bool {
	return s[c>>6]&(1<<(c&63)) != 0
}
