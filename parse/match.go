// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package parse

// The helpers below are called from generated matching procedures.

// HasPrefix reports whether input starts with lit.
func HasPrefix(input []byte, lit string) bool {
	return len(input) >= len(lit) && string(input[:len(lit)]) == lit
}

// MatchInsensitive reports whether input starts with lit, where every byte
// may equal either the byte of lit or the byte of inv at the same
// position. inv is lit with ASCII case inverted.
func MatchInsensitive(input []byte, lit, inv string) bool {
	if len(input) < len(lit) {
		return false
	}
	for i := 0; i < len(lit); i++ {
		if c := input[i]; c != lit[i] && c != inv[i] {
			return false
		}
	}
	return true
}

// InvertCase returns s with the case of every ASCII letter inverted.
func InvertCase(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case 'a' <= c && c <= 'z':
			b[i] = c - 'a' + 'A'
		case 'A' <= c && c <= 'Z':
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// MatchNewline returns the length of the line break at the start of input:
// 2 for "\r\n", 1 for "\n" or "\r", and 0 if input does not start with one.
func MatchNewline(input []byte) int {
	switch {
	case len(input) >= 2 && input[0] == '\r' && input[1] == '\n':
		return 2
	case len(input) >= 1 && (input[0] == '\n' || input[0] == '\r'):
		return 1
	}
	return 0
}
