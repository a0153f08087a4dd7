// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package compile

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/parse"
)

const pairGrammar = `
rules:
  - name: WHITESPACE
    type: silent
    expr: {str: " "}
  - name: key
    expr: {rep1: ASCII_ALPHA}
  - name: value
    expr: {rep1: ASCII_ALPHA}
  - name: pair
    expr: {seq: [key, {str: "="}, value]}
`

func load(t *testing.T, doc string) *ast.Grammar {
	t.Helper()
	g, err := ast.ParseGrammar("grammar.yaml", []byte(doc))
	require.NoError(t, err)
	return g
}

func TestBuild(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.New()
	c := New().WithGrammar(load(t, pairGrammar)).WithPackage("pairs").WithOutput(&buf).WithMetrics(m)
	require.NoError(t, c.Build(context.Background()))

	require.Contains(t, buf.String(), "package pairs")
	require.Contains(t, buf.String(), "func ParsePair(input []byte) (*parse.Tree, error)")
	require.NotNil(t, c.IR())
	require.Equal(t, 5, c.Registry().Len())

	keys := metrics.Keys(m)
	for _, stage := range []string{"check", "optimize", "register", "emit"} {
		require.Contains(t, keys, "timer_"+metrics.StageTimer(stage)+"_ns")
	}
}

func TestPrepare(t *testing.T) {
	p, err := New().WithGrammar(load(t, pairGrammar)).Prepare(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"key", "pair", "value"}, p.Rules())

	tree, err := p.Parse("pair", []byte("k = v"))
	require.NoError(t, err)
	require.Equal(t, "k = v", tree.Root().Text())
	require.Equal(t, 2, tree.Root().ChildCount())
}

func TestPreparedRegistryMatchesTrace(t *testing.T) {
	p, err := New().WithGrammar(load(t, pairGrammar)).Prepare(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, p.Registry().Len())

	_, err = p.Parse("pair", []byte("k v"))
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)

	id := p.Registry().ID(p.IR().Lookup("pair").Expr)
	require.Equal(t, 5, p.Registry().Len(), "lookup of a compiled expression assigns no id")
	trace := perr.Trace()
	require.Len(t, trace, 3)
	require.True(t, strings.HasPrefix(trace[1], id+"-1 "), trace[1])
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		note string
		doc  string
		code ast.ErrCode
	}{
		{
			note: "undefined rule",
			doc:  "rules: [{name: a, expr: {seq: [b, {str: x}]}}]",
			code: ast.UndefinedRuleErr,
		},
		{
			note: "unsupported construct",
			doc:  "rules: [{name: a, expr: {and: {str: x}}}]",
			code: ast.UnsupportedErr,
		},
		{
			note: "builtin redefined",
			doc:  "rules: [{name: EOI, expr: {str: x}}]",
			code: ast.BuiltinRedefinedErr,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			err := New().WithGrammar(load(t, tc.doc)).WithOutput(&bytes.Buffer{}).Build(context.Background())
			require.Error(t, err)
			require.True(t, ast.IsError(tc.code, err), err)
		})
	}
}

func TestBuildRequiresGoTarget(t *testing.T) {
	err := New().WithGrammar(load(t, pairGrammar)).WithTarget(TargetClosure).WithOutput(&bytes.Buffer{}).Build(context.Background())
	require.ErrorContains(t, err, `build requires target "go"`)

	err = New().WithGrammar(load(t, pairGrammar)).Build(context.Background())
	require.ErrorContains(t, err, "no output")
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().WithGrammar(load(t, pairGrammar)).Prepare(ctx)
	require.True(t, errors.Is(err, context.Canceled), err)
}

func TestCache(t *testing.T) {
	m := metrics.New()
	cache, err := NewCache(2)
	require.NoError(t, err)
	cache = cache.WithMetrics(m)

	ctx := context.Background()
	a, err := cache.Prepare(ctx, "pair.yaml", []byte(pairGrammar))
	require.NoError(t, err)
	b, err := cache.Prepare(ctx, "other.yaml", []byte(pairGrammar))
	require.NoError(t, err)
	require.Same(t, a, b)

	_, err = cache.Prepare(ctx, "bad.yaml", []byte("rules: [{name: a, expr: b}]"))
	require.True(t, ast.IsError(ast.UndefinedRuleErr, err), err)

	require.Equal(t, 1, cache.Len())
	require.Equal(t, uint64(1), m.Counter(CacheHit).Value())
	require.Equal(t, uint64(2), m.Counter(CacheMiss).Value())
}
