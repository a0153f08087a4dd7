// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package quoted

import (
	"testing"

	"github.com/open-policy-agent/fastpeg/parse"
)

func TestParseString(t *testing.T) {
	input := []byte(`a\"b`)
	tree, err := ParseString(input)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}

	root := tree.Root()
	if start, end := root.Span(); start != 0 || end != len(input) {
		t.Fatalf("unexpected root span %d..%d", start, end)
	}
	var children []string
	for c := range root.Children() {
		if s, e := c.Span(); s != 1 || e != 3 || c.Text() != `\"` {
			t.Fatalf("unexpected child %v at %d..%d", c, s, e)
		}
		children = append(children, c.Name())
	}
	if len(children) != 1 || children[0] != "esc" {
		t.Fatalf("expected one esc child, got %v", children)
	}
}

func TestParseEsc(t *testing.T) {
	if _, err := ParseEsc([]byte(`\\`)); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseEsc([]byte(`\n`)); err == nil {
		t.Fatal("expected error for unknown escape")
	}
}

func TestQuickFullAgreement(t *testing.T) {
	procs := map[string]struct {
		quick func([]byte, *parse.Labels) ([]byte, bool)
		full  func([]byte, *parse.Labels) ([]byte, *parse.Error)
	}{
		"esc":    {quick_esc, full_esc},
		"string": {quick_string, full_string},
	}
	for name, p := range procs {
		for _, in := range []string{"", "a", `a\"b`, `\\\"`, `"x\"y"`, `\n`, `ab\`} {
			for i := range len(in) + 1 {
				input := []byte(in[i:])
				ql, fl := parse.NewLabels(input), parse.NewLabels(input)
				qrest, ok := p.quick(input, ql)
				frest, err := p.full(input, fl)
				if ok != (err == nil) {
					t.Fatalf("%v: quick and full disagree on %q: %v, %v", name, input, ok, err)
				}
				if ok && (len(qrest) != len(frest) || ql.Len() != fl.Len()) {
					t.Fatalf("%v: quick and full consumed differently on %q", name, input)
				}
			}
		}
	}
}
