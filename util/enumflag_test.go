// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"testing"
)

func TestEnumFlag(t *testing.T) {
	flag := NewEnumFlag("closure", []string{"go", "closure"})

	if flag.String() != "closure" || flag.IsSet() {
		t.Fatalf("expected unset default closure but got: %v", flag.String())
	}

	if err := flag.Set("go"); err != nil {
		t.Fatalf("unexpected error on set: %v", err)
	}

	if flag.String() != "go" || !flag.IsSet() {
		t.Fatalf("expected value to be go but got: %v", flag.String())
	}

	if flag.Type() != "{go,closure}" {
		t.Fatalf("unexpected flag type: %v", flag.Type())
	}

	if err := flag.Set("wasm"); err == nil {
		t.Fatal("expected error from set")
	} else if err.Error() != "must be one of {go,closure}" {
		t.Fatalf("unexpected error: %v", err)
	}
}
