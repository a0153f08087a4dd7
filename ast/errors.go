// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Errors represents a series of errors encountered while loading, checking
// or compiling a grammar.
type Errors []*Error

func (e Errors) Error() string {

	if len(e) == 0 {
		return "no error(s)"
	}

	if len(e) == 1 {
		return fmt.Sprintf("1 error occurred: %v", e[0].Error())
	}

	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}

	return fmt.Sprintf("%d errors occurred:\n%s", len(e), strings.Join(s, "\n"))
}

// Sort sorts the errors by location.
func (e Errors) Sort() {
	slices.SortStableFunc(e, func(a, b *Error) int {
		return a.Location.Compare(b.Location)
	})
}

// ErrCode defines the types of errors returned while processing a grammar.
type ErrCode int

const (
	// ParseErr indicates the grammar document could not be decoded.
	ParseErr ErrCode = iota

	// UnsupportedErr indicates the grammar uses a construct the generator
	// cannot compile.
	UnsupportedErr

	// UndefinedRuleErr indicates a reference to a rule that does not exist.
	UndefinedRuleErr

	// DuplicateRuleErr indicates two rules share a name.
	DuplicateRuleErr

	// BuiltinRedefinedErr indicates a rule reuses the name of a builtin.
	BuiltinRedefinedErr

	// GenerateErr indicates code could not be generated for the grammar.
	GenerateErr
)

func (c ErrCode) String() string {
	switch c {
	case ParseErr:
		return "parse_error"
	case UnsupportedErr:
		return "unsupported_error"
	case UndefinedRuleErr:
		return "undefined_rule_error"
	case DuplicateRuleErr:
		return "duplicate_rule_error"
	case BuiltinRedefinedErr:
		return "builtin_redefined_error"
	case GenerateErr:
		return "generate_error"
	}
	return fmt.Sprintf("error(%d)", int(c))
}

// IsError returns true if err is an AST error with code.
func IsError(code ErrCode, err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	var es Errors
	if errors.As(err, &es) {
		return slices.ContainsFunc(es, func(e *Error) bool { return e.Code == code })
	}
	return false
}

// Error represents a single error caught while processing a grammar.
type Error struct {
	Code     ErrCode   `json:"code"`
	Location *Location `json:"location,omitempty"`
	Message  string    `json:"message"`
	Details  []string  `json:"details,omitempty"`
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Location != nil {
		sb.WriteString(e.Location.String())
		sb.WriteString(": ")
	}
	sb.WriteString(e.Code.String())
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	for _, d := range e.Details {
		sb.WriteString("\n\t")
		sb.WriteString(d)
	}
	return sb.String()
}

// NewError returns a new Error object.
func NewError(code ErrCode, loc *Location, f string, a ...any) *Error {
	return &Error{
		Code:     code,
		Location: loc,
		Message:  fmt.Sprintf(f, a...),
	}
}
