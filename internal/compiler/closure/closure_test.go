// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package closure

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/internal/ids"
	"github.com/open-policy-agent/fastpeg/internal/optimizer"
	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/parse"
)

func str(s string) ast.Expr   { return &ast.Str{Value: s} }
func ident(s string) ast.Expr { return &ast.Ident{Name: s} }
func not(x ast.Expr) ast.Expr { return &ast.NegPred{Expr: x} }
func rep(x ast.Expr) ast.Expr { return &ast.Rep{Expr: x} }
func opt(x ast.Expr) ast.Expr { return &ast.Opt{Expr: x} }

func rule(name string, x ast.Expr) *ast.Rule   { return &ast.Rule{Name: name, Expr: x} }
func silent(name string, x ast.Expr) *ast.Rule { return &ast.Rule{Name: name, Type: ast.SilentRule, Expr: x} }

func newCompiler(t testing.TB, rules ...*ast.Rule) *Compiler {
	t.Helper()
	g := ast.NewGrammar(rules...)
	require.NoError(t, ast.Check(g))
	reduced, err := optimizer.New().WithGrammar(g).Optimize()
	require.NoError(t, err)
	return New().WithGrammar(reduced)
}

func compileRules(t testing.TB, rules ...*ast.Rule) *Program {
	t.Helper()
	prog, err := newCompiler(t, rules...).Compile()
	require.NoError(t, err)
	return prog
}

func fieldGrammar() []*ast.Rule {
	return []*ast.Rule{
		rule("field", ast.RepOnce(ast.ChoiceOf(ident("ASCII_DIGIT"), str("."), str("-")))),
	}
}

func stringGrammar() []*ast.Rule {
	return []*ast.Rule{
		rule("esc", ast.SeqOf(str("\\"), ast.ChoiceOf(str("\""), str("\\")))),
		rule("string", rep(ast.ChoiceOf(
			ast.RepOnce(ast.SeqOf(not(ast.ChoiceOf(str("\""), str("\\"))), ident("ANY"))),
			ident("esc"),
		))),
	}
}

func pairGrammar() []*ast.Rule {
	return []*ast.Rule{
		silent("WHITESPACE", str(" ")),
		rule("key", ast.RepOnce(ident("ASCII_ALPHA"))),
		rule("value", ast.RepOnce(ident("ASCII_ALPHA"))),
		rule("pair", ast.SeqOf(ident("key"), str("="), ident("value"))),
	}
}

func jsonGrammar() []*ast.Rule {
	return []*ast.Rule{
		silent("WHITESPACE", ast.ChoiceOf(str(" "), str("\t"), str("\n"), str("\r"))),
		rule("json", ast.SeqOf(ident("SOI"), ident("value"), ident("EOI"))),
		silent("value", ast.ChoiceOf(ident("object"), ident("array"), ident("string"), ident("number"), ident("boolean"), ident("null"))),
		rule("object", ast.SeqOf(str("{"), opt(ast.SeqOf(ident("pair"), rep(ast.SeqOf(str(","), ident("pair"))))), str("}"))),
		rule("pair", ast.SeqOf(ident("string"), str(":"), ident("value"))),
		rule("array", ast.SeqOf(str("["), opt(ast.SeqOf(ident("value"), rep(ast.SeqOf(str(","), ident("value"))))), str("]"))),
		rule("string", ast.SeqOf(str("\""), rep(ast.ChoiceOf(
			ast.RepOnce(ast.SeqOf(not(ast.ChoiceOf(str("\""), str("\\"))), ident("ANY"))),
			ident("escape"),
		)), str("\""))),
		silent("escape", ast.SeqOf(str("\\"), ident("ANY"))),
		rule("number", ast.SeqOf(opt(str("-")), ast.RepOnce(ident("ASCII_DIGIT")), opt(ast.SeqOf(str("."), ast.RepOnce(ident("ASCII_DIGIT")))))),
		rule("boolean", ast.ChoiceOf(str("true"), str("false"))),
		rule("null", &ast.Insens{Value: "null"}),
	}
}

func TestCharacterClassFusion(t *testing.T) {
	prog := compileRules(t, fieldGrammar()...)

	tree, err := prog.Parse("field", []byte("12.3-4"))
	require.NoError(t, err)
	require.Equal(t, 1, tree.Len())
	root := tree.Root()
	require.Equal(t, "field", root.Name())
	require.Equal(t, "12.3-4", root.Text())
	require.Equal(t, 0, root.ChildCount())

	_, err = prog.Parse("field", []byte("ab"))
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, parse.ExpectedPredicate, perr.Kind)
	require.Equal(t, 0, perr.Offset(2))
	require.Equal(t, "field", perr.Trace()[0])
}

func TestNegativeLookaheadFusion(t *testing.T) {
	prog := compileRules(t, stringGrammar()...)

	input := []byte(`a\"b`)
	tree, err := prog.Parse("string", input)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())

	root := tree.Root()
	start, end := root.Span()
	require.Equal(t, 0, start)
	require.Equal(t, len(input), end)

	var children []string
	for c := range root.Children() {
		s, e := c.Span()
		children = append(children, c.Name())
		require.Equal(t, 1, s)
		require.Equal(t, 3, e)
		require.Equal(t, `\"`, c.Text())
	}
	require.Equal(t, []string{"esc"}, children)
}

func TestWhitespaceSplicing(t *testing.T) {
	prog := compileRules(t, pairGrammar()...)

	tree, err := prog.Parse("pair", []byte("k = v"))
	require.NoError(t, err)
	root := tree.Root()
	require.Equal(t, "pair", root.Name())
	require.Equal(t, "k = v", root.Text())
	require.Equal(t, 2, root.ChildCount())

	var got []string
	for c := range root.Children() {
		got = append(got, c.Name()+":"+c.Text())
	}
	require.Equal(t, []string{"key:k", "value:v"}, got)
}

func TestWhitespaceIsNotTrailing(t *testing.T) {
	prog := compileRules(t, pairGrammar()...)
	remaining, ok, err := prog.Quick("pair", []byte("k=v  "))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, remaining)
}

func TestErrorRendering(t *testing.T) {
	prog := compileRules(t, pairGrammar()...)

	input := []byte("k v")
	_, err := prog.Parse("pair", input)
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "1:3: expected character matching '='", err.Error())
	require.Equal(t, "following rule key which ended", perr.Note())

	exp := "error: expected character matching '='\n" +
		"  --> input:1:3\n" +
		"   |\n" +
		"1  | k v\n" +
		"   |   ^\n" +
		"   = note: following rule key which ended\n" +
		"   = trace: pair, anon_0004-1 (key ~ ('=') ~ value), anon_0003 ('=')\n"
	require.Equal(t, exp, perr.Render("", input))
}

func TestRepetitionNote(t *testing.T) {
	prog := compileRules(t,
		rule("list", ast.SeqOf(rep(str("ab")), str(";"))),
	)
	_, err := prog.Parse("list", []byte("abab;"))
	require.NoError(t, err)

	_, err = prog.Parse("list", []byte("ababa"))
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, `following repetition "ab"* which ended`, perr.Note())
	require.Equal(t, 4, perr.Offset(5))
}

func TestLiteralRoundTrip(t *testing.T) {
	prog := compileRules(t,
		rule("one", str("x")),
		rule("two", str("xy")),
	)

	remaining, ok, err := prog.Quick("one", []byte("x"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, remaining)

	_, err = prog.Parse("two", []byte("x"))
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, parse.ExpectedLiteral, perr.Kind)
	require.Equal(t, "xy", perr.Expected)
}

func TestChoiceRollback(t *testing.T) {
	c := newCompiler(t,
		rule("a", str("a")),
		rule("b", str("b")),
		rule("alt", ast.ChoiceOf(
			ast.SeqOf(ident("a"), ident("b"), str("x")),
			ast.SeqOf(ident("a"), ident("b"), str("y")),
			ident("a"),
		)),
	)
	prog, err := c.Compile()
	require.NoError(t, err)

	body := c.ref(c.grammar.Lookup("alt").Expr)
	tests := []struct {
		note    string
		input   string
		ok      bool
		entries int
	}{
		{note: "second alternative", input: "aby", ok: true, entries: 2},
		{note: "last alternative", input: "abz", ok: true, entries: 1},
		{note: "all fail", input: "z", ok: false, entries: 0},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			input := []byte(tc.input)

			labels := parse.NewLabels(input)
			_, ok := body.quick(input, labels)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.entries, labels.Len())

			labels = parse.NewLabels(input)
			_, perr := body.full(input, labels)
			require.Equal(t, tc.ok, perr == nil)
			require.Equal(t, tc.entries, labels.Len())

			tree, err := prog.Parse("alt", input)
			if !tc.ok {
				require.Error(t, err)
				var perr *parse.Error
				require.ErrorAs(t, err, &perr)
				require.Equal(t, parse.AllAlternativesFailed, perr.Kind)
				require.Len(t, perr.Alternatives, 3)
				require.True(t, errors.Is(err, perr.Alternatives[2]))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.entries+1, tree.Len())
			require.NoError(t, tree.Validate())
		})
	}
}

func TestNegativeLookaheadRollback(t *testing.T) {
	c := newCompiler(t,
		rule("kw", str("if")),
		rule("name", ast.SeqOf(not(ident("kw")), ast.RepOnce(ident("ASCII_ALPHA")))),
	)
	prog, err := c.Compile()
	require.NoError(t, err)

	tree, err := prog.Parse("name", []byte("foo"))
	require.NoError(t, err)
	require.Equal(t, 1, tree.Len())

	_, err = prog.Parse("name", []byte("if"))
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, parse.NegatedPredicateFailed, perr.Kind)
	require.Equal(t, "kw", perr.Expected)
}

func TestBuiltins(t *testing.T) {
	prog := compileRules(t,
		rule("lines", ast.SeqOf(ident("SOI"), rep(ast.SeqOf(ast.RepOnce(ident("ASCII_ALPHA")), ident("NEWLINE"))), ident("EOI"))),
	)

	for _, input := range []string{"", "a\n", "ab\r\ncd\r", "x\ny\n"} {
		_, err := prog.Parse("lines", []byte(input))
		require.NoError(t, err, input)
	}

	_, err := prog.Parse("lines", []byte("ab"))
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "EOI", perr.Expected)
	require.Equal(t, "following repetition ((ASCII_ALPHA)+ ~ NEWLINE)* which ended", perr.Note())
}

func TestCaseInsensitive(t *testing.T) {
	prog := compileRules(t, jsonGrammar()...)
	for _, input := range []string{"null", "NULL", "nUlL"} {
		_, err := prog.Parse("null", []byte(input))
		require.NoError(t, err, input)
	}
	_, err := prog.Parse("null", []byte("nul"))
	require.Error(t, err)
}

func TestJSON(t *testing.T) {
	prog := compileRules(t, jsonGrammar()...)

	input := []byte(`{"a": [1, -2.5, true], "b\"": {"c": NULL}}`)
	tree, err := prog.Parse("json", input)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())

	var names []string
	tree.Root().Walk(func(n parse.Node) bool {
		names = append(names, n.Name())
		return true
	})
	exp := []string{
		"json", "object",
		"pair", "string", "array", "number", "number", "boolean",
		"pair", "string", "object", "pair", "string", "null",
	}
	require.Equal(t, exp, names)

	_, err = prog.Parse("json", []byte(`{"a" 1}`))
	require.EqualError(t, err, "1:1: all 6 alternatives failed")
}

func TestSharedRegistry(t *testing.T) {
	reg := ids.New()
	reg.Register(&ir.Literal{Value: "unused"}, nil)

	prog, err := newCompiler(t, pairGrammar()...).WithRegistry(reg).Compile()
	require.NoError(t, err)
	require.Equal(t, 6, reg.Len())

	_, err = prog.Parse("pair", []byte("k v"))
	var perr *parse.Error
	require.ErrorAs(t, err, &perr)
	exp := []string{"pair", "anon_0005-1 (key ~ ('=') ~ value)", "anon_0004 ('=')"}
	require.Equal(t, exp, perr.Trace())
}

func TestUndefinedStartRule(t *testing.T) {
	prog := compileRules(t, pairGrammar()...)

	_, err := prog.Parse("pari", []byte("k=v"))
	require.EqualError(t, err, "undefined rule pari (did you mean pair?)")

	_, err = prog.Parse("WHITESPACE", []byte(" "))
	require.EqualError(t, err, "rule WHITESPACE is silent and cannot start a parse")

	require.Equal(t, []string{"key", "pair", "value"}, prog.Rules())
}

func TestCompileMetrics(t *testing.T) {
	g := ast.NewGrammar(fieldGrammar()...)
	reduced, err := optimizer.New().WithGrammar(g).Optimize()
	require.NoError(t, err)

	m := metrics.New()
	_, err = New().WithGrammar(reduced).WithMetrics(m).Compile()
	require.NoError(t, err)
	// One rule wrapper plus the predicate and its scan.
	require.Equal(t, uint64(3), m.Counter(metrics.CodegenProcs).Value())
}

var agreementInputs = []string{
	"", "a", "k = v", "k v", "12.3-4", "ab", `a\"b`, `"x\"y"`,
	`{"a": [1, -2.5, true], "b": {"c": null}}`, `[1, 2`, `{"a" 1}`, "  [ ]",
}

// Every procedure agrees with its quick counterpart on success and on the
// unconsumed suffix, for every suffix of every input.
func TestQuickFullAgreement(t *testing.T) {
	grammars := map[string][]*ast.Rule{
		"field":  fieldGrammar(),
		"string": stringGrammar(),
		"pair":   pairGrammar(),
		"json":   jsonGrammar(),
	}

	for note, rules := range grammars {
		t.Run(note, func(t *testing.T) {
			c := newCompiler(t, rules...)
			_, err := c.Compile()
			require.NoError(t, err)

			procs := map[string]*proc{}
			for id, p := range c.nodes {
				procs["node "+id] = p
			}
			for name, p := range c.rules {
				procs["rule "+name] = p
			}

			for name, p := range procs {
				for _, in := range agreementInputs {
					for i := range len(in) + 1 {
						input := []byte(in[i:])
						ql, fl := parse.NewLabels(input), parse.NewLabels(input)
						qrest, ok := p.quick(input, ql)
						frest, err := p.full(input, fl)
						require.Equal(t, ok, err == nil, "%v on %q", name, input)
						if ok {
							require.Equal(t, len(qrest), len(frest), "%v on %q", name, input)
							require.Equal(t, ql.Len(), fl.Len(), "%v on %q", name, input)
						}
					}
				}
			}
		})
	}
}

func FuzzTreeContiguity(f *testing.F) {
	for _, in := range agreementInputs {
		f.Add(in)
	}
	prog := compileRules(f, jsonGrammar()...)

	f.Fuzz(func(t *testing.T, in string) {
		tree, err := prog.Parse("json", []byte(in))
		if err != nil {
			var perr *parse.Error
			require.ErrorAs(t, err, &perr)
			require.LessOrEqual(t, perr.Remaining, len(in))
			return
		}
		require.NoError(t, tree.Validate())

		var visited []int
		for root := range tree.Roots() {
			root.Walk(func(n parse.Node) bool {
				visited = append(visited, n.Index())
				return true
			})
		}
		exp := make([]int, tree.Len())
		for i := range exp {
			exp[i] = i
		}
		require.True(t, slices.Equal(exp, visited), "visited %v", visited)
	})
}
