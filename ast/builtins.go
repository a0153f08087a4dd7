// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// Builtin rule names with special matching behaviour.
const (
	SOI     = "SOI"
	EOI     = "EOI"
	NEWLINE = "NEWLINE"
)

// Names of rules that control implicit skipping between tokens.
const (
	WHITESPACE = "WHITESPACE"
	COMMENT    = "COMMENT"
)

// Builtin character classes. Each matches exactly one byte.
const (
	ANY                 = "ANY"
	ASCII               = "ASCII"
	ASCII_DIGIT         = "ASCII_DIGIT"
	ASCII_NONZERO_DIGIT = "ASCII_NONZERO_DIGIT"
	ASCII_BIN_DIGIT     = "ASCII_BIN_DIGIT"
	ASCII_OCT_DIGIT     = "ASCII_OCT_DIGIT"
	ASCII_HEX_DIGIT     = "ASCII_HEX_DIGIT"
	ASCII_ALPHA_LOWER   = "ASCII_ALPHA_LOWER"
	ASCII_ALPHA_UPPER   = "ASCII_ALPHA_UPPER"
	ASCII_ALPHA         = "ASCII_ALPHA"
	ASCII_ALPHANUMERIC  = "ASCII_ALPHANUMERIC"
)

// CharClasses lists the builtin character classes.
var CharClasses = []string{
	ANY,
	ASCII,
	ASCII_DIGIT,
	ASCII_NONZERO_DIGIT,
	ASCII_BIN_DIGIT,
	ASCII_OCT_DIGIT,
	ASCII_HEX_DIGIT,
	ASCII_ALPHA_LOWER,
	ASCII_ALPHA_UPPER,
	ASCII_ALPHA,
	ASCII_ALPHANUMERIC,
}

// Stack builtins of other PEG dialects. The stack operators push, peek and
// restore cover what fastpeg supports; references to these names are
// rejected.
var stackBuiltins = map[string]struct{}{
	"PUSH":         {},
	"PUSH_LITERAL": {},
	"POP":          {},
	"POP_ALL":      {},
	"PEEK":         {},
	"PEEK_ALL":     {},
	"DROP":         {},
}

// IsStackBuiltin returns true if name refers to an unsupported stack
// builtin.
func IsStackBuiltin(name string) bool {
	_, ok := stackBuiltins[name]
	return ok
}

var builtins = func() map[string]struct{} {
	m := map[string]struct{}{SOI: {}, EOI: {}, NEWLINE: {}}
	for _, name := range CharClasses {
		m[name] = struct{}{}
	}
	return m
}()

// IsBuiltin returns true if name refers to a builtin rule or character
// class.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// IsCharClass returns true if name refers to a builtin character class.
func IsCharClass(name string) bool {
	return IsBuiltin(name) && name != SOI && name != EOI && name != NEWLINE
}
