// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"cmp"
	"fmt"
)

// Location records the position of a rule in its grammar document.
type Location struct {
	File string `json:"file,omitempty"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
}

// NewLocation returns a new Location object.
func NewLocation(file string, row, col int) *Location {
	return &Location{File: file, Row: row, Col: col}
}

func (loc *Location) String() string {
	if loc == nil {
		return "<unknown>"
	}
	if loc.File != "" {
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Row, loc.Col)
	}
	return fmt.Sprintf("%d:%d", loc.Row, loc.Col)
}

// Compare orders locations by file, row and column. A nil location sorts
// first.
func (loc *Location) Compare(other *Location) int {
	switch {
	case loc == nil && other == nil:
		return 0
	case loc == nil:
		return -1
	case other == nil:
		return 1
	}
	if c := cmp.Compare(loc.File, other.File); c != 0 {
		return c
	}
	if c := cmp.Compare(loc.Row, other.Row); c != 0 {
		return c
	}
	return cmp.Compare(loc.Col, other.Col)
}
