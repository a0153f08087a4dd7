// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parse

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies the cause of a parse failure.
type Kind int

const (
	// ExpectedLiteral indicates an exact byte string was required.
	ExpectedLiteral Kind = iota

	// ExpectedPredicate indicates a byte satisfying a character test was
	// required.
	ExpectedPredicate

	// NegatedPredicateFailed indicates a negative lookahead matched.
	NegatedPredicateFailed

	// AllAlternativesFailed indicates every alternative of a choice failed.
	AllAlternativesFailed
)

func (k Kind) String() string {
	switch k {
	case ExpectedLiteral:
		return "expected literal"
	case ExpectedPredicate:
		return "expected predicate"
	case NegatedPredicateFailed:
		return "negated predicate failed"
	case AllAlternativesFailed:
		return "all alternatives failed"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Error is the structured failure produced by the diagnostic matching
// procedures. It is created at the failure site and enriched with trace
// frames while it propagates to the entry point. Kind never changes after
// construction.
type Error struct {
	Kind Kind

	// Expected holds the literal, the predicate or the negated expression
	// in grammar notation. It is empty for AllAlternativesFailed.
	Expected string

	// Alternatives holds one error per failed alternative of a choice.
	Alternatives []*Error

	// Remaining is the number of input bytes left at the failure point.
	Remaining int

	frames []string
	note   string
	input  []byte
	bound  bool
}

func newError(kind Kind, expected string, rest []byte, frame string) *Error {
	return &Error{
		Kind:      kind,
		Expected:  expected,
		Remaining: len(rest),
		frames:    []string{frame},
	}
}

// ExpectLiteral returns an error for a missing literal lit at rest.
func ExpectLiteral(lit string, rest []byte, frame string) *Error {
	return newError(ExpectedLiteral, lit, rest, frame)
}

// ExpectPredicate returns an error for a byte at rest that does not satisfy
// pred, or for the end of input.
func ExpectPredicate(pred string, rest []byte, frame string) *Error {
	return newError(ExpectedPredicate, pred, rest, frame)
}

// NegationFailed returns an error for a negative lookahead whose inner
// expression matched at rest.
func NegationFailed(inner string, rest []byte, frame string) *Error {
	return newError(NegatedPredicateFailed, inner, rest, frame)
}

// AllFailed returns an error aggregating the failures of every alternative
// of a choice attempted at rest.
func AllFailed(alts []*Error, rest []byte, frame string) *Error {
	e := newError(AllAlternativesFailed, "", rest, frame)
	e.Alternatives = alts
	return e
}

// WithTrace appends frame to the trace and returns e.
func (e *Error) WithTrace(frame string) *Error {
	e.frames = append(e.frames, frame)
	return e
}

// WithNote attaches note unless a note is already attached, and returns e.
func (e *Error) WithNote(note string) *Error {
	if e.note == "" {
		e.note = note
	}
	return e
}

// Note returns the attached note, or the empty string.
func (e *Error) Note() string {
	return e.note
}

// Trace returns the trace frames, outermost first.
func (e *Error) Trace() []string {
	out := make([]string, len(e.frames))
	for i, f := range e.frames {
		out[len(e.frames)-1-i] = f
	}
	return out
}

// Offset returns the absolute byte offset of the failure in an input of
// inputLen bytes.
func (e *Error) Offset(inputLen int) int {
	return inputLen - e.Remaining
}

// Bind records the input the error was produced for so that Error can
// report a line and column. It returns e.
func (e *Error) Bind(input []byte) *Error {
	e.input = input
	e.bound = true
	return e
}

// Message returns the human-readable description of the kind.
func (e *Error) Message() string {
	switch e.Kind {
	case ExpectedLiteral:
		return "expected literal " + strconv.Quote(e.Expected)
	case ExpectedPredicate:
		return "expected character matching " + e.Expected
	case NegatedPredicateFailed:
		return "unexpected match of " + e.Expected
	case AllAlternativesFailed:
		return fmt.Sprintf("all %d alternatives failed", len(e.Alternatives))
	}
	return e.Kind.String()
}

func (e *Error) Error() string {
	if !e.bound {
		return fmt.Sprintf("%s (%d bytes remaining)", e.Message(), e.Remaining)
	}
	line, col := Position(e.input, e.Offset(len(e.input)))
	return fmt.Sprintf("%d:%d: %s", line, col, e.Message())
}

// Unwrap exposes the alternatives of an AllAlternativesFailed error.
func (e *Error) Unwrap() []error {
	if len(e.Alternatives) == 0 {
		return nil
	}
	errs := make([]error, len(e.Alternatives))
	for i := range e.Alternatives {
		errs[i] = e.Alternatives[i]
	}
	return errs
}

// Render formats the error against input as a source snippet with a caret
// under the failure position, followed by the note and the trace. If file
// is empty the location is reported against "input".
func (e *Error) Render(file string, input []byte) string {
	if file == "" {
		file = "input"
	}
	offset := clamp(e.Offset(len(input)), len(input))
	line, col := Position(input, offset)

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Message())
	fmt.Fprintf(&sb, "  --> %s:%d:%d\n", file, line, col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%-3d| %s\n", line, lineAt(input, offset))
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))
	if e.note != "" {
		fmt.Fprintf(&sb, "   = note: %s\n", e.note)
	}
	if len(e.frames) > 0 {
		fmt.Fprintf(&sb, "   = trace: %s\n", strings.Join(e.Trace(), ", "))
	}
	return sb.String()
}

// Position maps a byte offset in input to a 1-based line and column.
// Columns count bytes.
func Position(input []byte, offset int) (line, col int) {
	offset = clamp(offset, len(input))
	before := input[:offset]
	line = bytes.Count(before, []byte{'\n'}) + 1
	col = offset - (bytes.LastIndexByte(before, '\n') + 1) + 1
	return line, col
}

func lineAt(input []byte, offset int) string {
	start := bytes.LastIndexByte(input[:offset], '\n') + 1
	end := bytes.IndexByte(input[offset:], '\n')
	if end < 0 {
		end = len(input)
	} else {
		end += offset
	}
	return string(bytes.TrimSuffix(input[start:end], []byte{'\r'}))
}

func clamp(offset, n int) int {
	return max(0, min(offset, n))
}
