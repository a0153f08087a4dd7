// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package closure compiles a reduced grammar into Go closures that parse
// input in process, without generating and building source code.
//
// Every distinct sub-expression gets a pair of procedures: a quick matcher
// that only reports success and a full matcher that builds a *parse.Error
// on failure. Procedures are shared across call sites through the identity
// registry.
package closure

import (
	"fmt"
	"maps"
	"slices"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/internal/ids"
	"github.com/open-policy-agent/fastpeg/internal/levenshtein"
	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/parse"
)

type quickFn func(input []byte, labels *parse.Labels) ([]byte, bool)

type fullFn func(input []byte, labels *parse.Labels) ([]byte, *parse.Error)

// proc is a quick/full procedure pair. Rule wrappers are allocated before
// they are built so that references to a rule can be bound ahead of its
// definition.
type proc struct {
	quick quickFn
	full  fullFn
}

// Compiler builds a Program from a reduced grammar.
type Compiler struct {
	grammar *ir.Grammar
	logger  logging.Logger
	metrics metrics.Metrics

	reg     *ids.Registry
	nodes   map[string]*proc // by registry id
	rules   map[string]*proc // rule wrappers by rule name
	index   map[string]parse.Rule
	names   []string
	skipper func([]byte, *parse.Labels) []byte
	errors  ast.Errors
}

// New returns a new Compiler.
func New() *Compiler {
	return &Compiler{
		logger:  logging.NewNoOpLogger(),
		metrics: metrics.NoOp(),
	}
}

// WithGrammar sets the grammar to compile.
func (c *Compiler) WithGrammar(g *ir.Grammar) *Compiler {
	c.grammar = g
	return c
}

// WithLogger sets the logger for the compiler.
func (c *Compiler) WithLogger(l logging.Logger) *Compiler {
	c.logger = l
	return c
}

// WithMetrics sets the metrics the compiler records procedure counts into.
func (c *Compiler) WithMetrics(m metrics.Metrics) *Compiler {
	c.metrics = m
	return c
}

// WithRegistry sets the identity registry. By default a new registry is
// used.
func (c *Compiler) WithRegistry(reg *ids.Registry) *Compiler {
	c.reg = reg
	return c
}

// Compile builds the procedures of every rule.
func (c *Compiler) Compile() (*Program, error) {
	if c.grammar == nil {
		return nil, ast.NewError(ast.GenerateErr, nil, "no grammar")
	}
	if c.reg == nil {
		c.reg = ids.New()
	}
	c.nodes = map[string]*proc{}
	c.rules = make(map[string]*proc, len(c.grammar.Rules))
	c.index = map[string]parse.Rule{}

	for _, r := range c.grammar.Rules {
		c.rules[r.Name] = &proc{}
		if r.Type == ast.NormalRule {
			c.index[r.Name] = parse.Rule(len(c.names))
			c.names = append(c.names, r.Name)
		}
	}
	c.skipper = c.newSkipper()

	for _, r := range c.grammar.Rules {
		size := 0
		c.reg.Register(r.Expr, func(string, ir.Expr) { size++ })
		c.metrics.Histogram(metrics.CodegenRuleSize).Update(int64(size))
		c.logger.WithFields(map[string]any{"rule": r.Name}).Debug("Registered %d new expressions.", size)
	}
	// Entries are ordered children first, so every reference made while
	// compiling a node is already compiled.
	for _, e := range c.reg.Entries() {
		c.nodes[e.ID] = c.compileNode(e.ID, e.Expr)
	}
	for _, r := range c.grammar.Rules {
		c.compileRule(r)
	}
	if len(c.errors) > 0 {
		c.errors.Sort()
		return nil, c.errors
	}

	c.metrics.Counter(metrics.CodegenProcs).Add(uint64(len(c.nodes) + len(c.rules)))
	c.logger.Debug("Compiled %d procedures for %d rules.", len(c.nodes)+len(c.rules), len(c.rules))

	return &Program{
		rules: c.rules,
		index: c.index,
		names: c.names,
	}, nil
}

func (c *Compiler) compileRule(r *ir.Rule) {
	body := c.ref(r.Expr)
	if body == nil {
		return
	}
	w := c.rules[r.Name]
	if r.Type == ast.SilentRule {
		w.quick = func(input []byte, labels *parse.Labels) ([]byte, bool) {
			return body.quick(input, labels)
		}
		w.full = func(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
			return body.full(input, labels)
		}
		return
	}

	rule, name := c.index[r.Name], r.Name
	w.quick = func(input []byte, labels *parse.Labels) ([]byte, bool) {
		slot := labels.Reserve()
		rest, ok := body.quick(input, labels)
		if !ok {
			labels.Truncate(slot)
			return nil, false
		}
		labels.Set(slot, rule, input, rest)
		return rest, true
	}
	w.full = func(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
		slot := labels.Reserve()
		rest, err := body.full(input, labels)
		if err != nil {
			labels.Truncate(slot)
			return nil, err.WithTrace(name)
		}
		labels.Set(slot, rule, input, rest)
		return rest, nil
	}
}

// ref returns the procedure pair matching x. x must have been registered.
func (c *Compiler) ref(x ir.Expr) *proc {
	ident, ok := x.(*ir.Ident)
	if !ok {
		return c.nodes[c.reg.ID(x)]
	}
	if ir.IsBuiltin(ident) {
		if p, ok := c.nodes[ident.Name]; ok {
			return p
		}
		p := builtin(ident.Name)
		c.nodes[ident.Name] = p
		return p
	}
	if p, ok := c.rules[ident.Name]; ok {
		return p
	}
	c.errors = append(c.errors, ast.NewError(ast.GenerateErr, nil, "reference to undefined rule %v", ident.Name))
	return nil
}

func (c *Compiler) refs(xs []ir.Expr) ([]*proc, bool) {
	ps := make([]*proc, len(xs))
	for i, x := range xs {
		if ps[i] = c.ref(x); ps[i] == nil {
			return nil, false
		}
	}
	return ps, true
}

// newSkipper returns the implicit skip over WHITESPACE and COMMENT, or nil
// if the grammar defines neither. A skip never fails; a failed or empty
// attempt leaves the label list as it was.
func (c *Compiler) newSkipper() func([]byte, *parse.Labels) []byte {
	var ps []*proc
	for _, name := range []string{ast.WHITESPACE, ast.COMMENT} {
		if p, ok := c.rules[name]; ok {
			ps = append(ps, p)
		}
	}
	if len(ps) == 0 {
		return nil
	}
	return func(input []byte, labels *parse.Labels) []byte {
	outer:
		for {
			for _, p := range ps {
				n := labels.Len()
				if rest, ok := p.quick(input, labels); ok && len(rest) < len(input) {
					input = rest
					continue outer
				}
				labels.Truncate(n)
			}
			return input
		}
	}
}

func (c *Compiler) compileNode(id string, x ir.Expr) *proc {
	frame := id + " " + x.String()
	switch x := x.(type) {
	case *ir.Literal:
		return literal(x.Value, frame)
	case *ir.Insens:
		return insensitive(x.Value, frame)
	case *ir.Char:
		return char(x.Pred, frame)
	case *ir.NegPred:
		if inner := c.ref(x.Expr); inner != nil {
			return negation(inner, x.Expr.String(), frame)
		}
	case *ir.Seq:
		if ps, ok := c.refs(x.Items); ok {
			return c.sequence(ps, x, id)
		}
	case *ir.Choice:
		if ps, ok := c.refs(x.Items); ok {
			return choice(ps, frame)
		}
	case *ir.Opt:
		if inner := c.ref(x.Expr); inner != nil {
			return optional(inner)
		}
	case *ir.Rep:
		if ch, ok := x.Expr.(*ir.Char); ok {
			return scan(ch.Pred, x.AllowEmpty, frame)
		}
		if inner := c.ref(x.Expr); inner != nil {
			return c.repetition(inner, x.AllowEmpty)
		}
	default:
		c.errors = append(c.errors, ast.NewError(ast.GenerateErr, nil, "unexpected expression %T", x))
	}
	return &proc{quick: fail, full: func(input []byte, _ *parse.Labels) ([]byte, *parse.Error) {
		return nil, parse.ExpectLiteral("", input, frame)
	}}
}

func fail([]byte, *parse.Labels) ([]byte, bool) {
	return nil, false
}

func literal(lit, frame string) *proc {
	return &proc{
		quick: func(input []byte, _ *parse.Labels) ([]byte, bool) {
			if parse.HasPrefix(input, lit) {
				return input[len(lit):], true
			}
			return nil, false
		},
		full: func(input []byte, _ *parse.Labels) ([]byte, *parse.Error) {
			if parse.HasPrefix(input, lit) {
				return input[len(lit):], nil
			}
			return nil, parse.ExpectLiteral(lit, input, frame)
		},
	}
}

func insensitive(lit, frame string) *proc {
	inv := parse.InvertCase(lit)
	return &proc{
		quick: func(input []byte, _ *parse.Labels) ([]byte, bool) {
			if parse.MatchInsensitive(input, lit, inv) {
				return input[len(lit):], true
			}
			return nil, false
		},
		full: func(input []byte, _ *parse.Labels) ([]byte, *parse.Error) {
			if parse.MatchInsensitive(input, lit, inv) {
				return input[len(lit):], nil
			}
			return nil, parse.ExpectLiteral(lit, input, frame)
		},
	}
}

func char(p ir.Pred, frame string) *proc {
	set, expected := ir.NewByteSet(p), p.String()
	return &proc{
		quick: func(input []byte, _ *parse.Labels) ([]byte, bool) {
			if len(input) > 0 && set.Contains(input[0]) {
				return input[1:], true
			}
			return nil, false
		},
		full: func(input []byte, _ *parse.Labels) ([]byte, *parse.Error) {
			if len(input) > 0 && set.Contains(input[0]) {
				return input[1:], nil
			}
			return nil, parse.ExpectPredicate(expected, input, frame)
		},
	}
}

func builtin(name string) *proc {
	var match func([]byte) int
	switch name {
	case ast.SOI:
		match = func([]byte) int { return 0 }
	case ast.EOI:
		match = func(input []byte) int {
			if len(input) == 0 {
				return 0
			}
			return -1
		}
	case ast.NEWLINE:
		match = func(input []byte) int {
			if n := parse.MatchNewline(input); n > 0 {
				return n
			}
			return -1
		}
	}
	return &proc{
		quick: func(input []byte, _ *parse.Labels) ([]byte, bool) {
			if n := match(input); n >= 0 {
				return input[n:], true
			}
			return nil, false
		},
		full: func(input []byte, _ *parse.Labels) ([]byte, *parse.Error) {
			if n := match(input); n >= 0 {
				return input[n:], nil
			}
			return nil, parse.ExpectPredicate(name, input, name)
		},
	}
}

func negation(inner *proc, expected, frame string) *proc {
	return &proc{
		quick: func(input []byte, labels *parse.Labels) ([]byte, bool) {
			n := labels.Len()
			_, ok := inner.quick(input, labels)
			labels.Truncate(n)
			if ok {
				return nil, false
			}
			return input, true
		},
		full: func(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
			n := labels.Len()
			_, err := inner.full(input, labels)
			labels.Truncate(n)
			if err == nil {
				return nil, parse.NegationFailed(expected, input, frame)
			}
			return input, nil
		},
	}
}

func (c *Compiler) sequence(ps []*proc, x *ir.Seq, id string) *proc {
	skip := c.skipper
	notation := x.String()
	frames := make([]string, len(ps))
	notes := make([]string, len(ps))
	for i := range ps {
		frames[i] = fmt.Sprintf("%s-%d %s", id, i, notation)
		if i > 0 {
			notes[i] = note(x.Items[i-1])
		}
	}
	return &proc{
		quick: func(input []byte, labels *parse.Labels) ([]byte, bool) {
			var ok bool
			for i, p := range ps {
				if i > 0 && skip != nil {
					input = skip(input, labels)
				}
				if input, ok = p.quick(input, labels); !ok {
					return nil, false
				}
			}
			return input, true
		},
		full: func(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
			var err *parse.Error
			for i, p := range ps {
				if i > 0 && skip != nil {
					input = skip(input, labels)
				}
				if input, err = p.full(input, labels); err != nil {
					if notes[i] != "" {
						err.WithNote(notes[i])
					}
					return nil, err.WithTrace(frames[i])
				}
			}
			return input, nil
		},
	}
}

// note returns the hint attached to the failure of the item following prev:
// a greedy repetition or rule that stopped early is the usual culprit.
func note(prev ir.Expr) string {
	switch prev := prev.(type) {
	case *ir.Rep:
		return "following repetition " + prev.String() + " which ended"
	case *ir.Ident:
		if !ir.IsBuiltin(prev) {
			return "following rule " + prev.Name + " which ended"
		}
	}
	return ""
}

func choice(ps []*proc, frame string) *proc {
	quick := func(input []byte, labels *parse.Labels) ([]byte, bool) {
		for _, p := range ps {
			n := labels.Len()
			if rest, ok := p.quick(input, labels); ok {
				return rest, true
			}
			labels.Truncate(n)
		}
		return nil, false
	}
	return &proc{
		quick: quick,
		full: func(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
			if rest, ok := quick(input, labels); ok {
				return rest, nil
			}
			errs := make([]*parse.Error, 0, len(ps))
			for _, p := range ps {
				n := labels.Len()
				rest, err := p.full(input, labels)
				if err == nil {
					return rest, nil
				}
				labels.Truncate(n)
				errs = append(errs, err)
			}
			return nil, parse.AllFailed(errs, input, frame)
		},
	}
}

func optional(inner *proc) *proc {
	return &proc{
		quick: func(input []byte, labels *parse.Labels) ([]byte, bool) {
			n := labels.Len()
			if rest, ok := inner.quick(input, labels); ok {
				return rest, true
			}
			labels.Truncate(n)
			return input, true
		},
		full: func(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
			n := labels.Len()
			if rest, err := inner.full(input, labels); err == nil {
				return rest, nil
			}
			labels.Truncate(n)
			return input, nil
		},
	}
}

func scan(p ir.Pred, allowEmpty bool, frame string) *proc {
	set, expected := ir.NewByteSet(p), p.String()
	span := func(input []byte) int {
		i := 0
		for i < len(input) && set.Contains(input[i]) {
			i++
		}
		return i
	}
	return &proc{
		quick: func(input []byte, _ *parse.Labels) ([]byte, bool) {
			i := span(input)
			if i == 0 && !allowEmpty {
				return nil, false
			}
			return input[i:], true
		},
		full: func(input []byte, _ *parse.Labels) ([]byte, *parse.Error) {
			i := span(input)
			if i == 0 && !allowEmpty {
				return nil, parse.ExpectPredicate(expected, input, frame)
			}
			return input[i:], nil
		},
	}
}

// repetition matches inner until it fails or stops consuming input. With
// implicit skipping, a skip is attempted before every iteration after the
// first and undone together with a failed iteration.
func (c *Compiler) repetition(inner *proc, allowEmpty bool) *proc {
	skip := c.skipper
	more := func(input []byte, labels *parse.Labels, first bool, match func([]byte, *parse.Labels) ([]byte, bool)) []byte {
		for {
			n := labels.Len()
			next := input
			if !first && skip != nil {
				next = skip(next, labels)
			}
			rest, ok := match(next, labels)
			if !ok || len(rest) == len(input) {
				labels.Truncate(n)
				return input
			}
			input, first = rest, false
		}
	}
	full := func(input []byte, labels *parse.Labels) ([]byte, bool) {
		rest, err := inner.full(input, labels)
		return rest, err == nil
	}
	return &proc{
		quick: func(input []byte, labels *parse.Labels) ([]byte, bool) {
			if !allowEmpty {
				var ok bool
				if input, ok = inner.quick(input, labels); !ok {
					return nil, false
				}
			}
			return more(input, labels, allowEmpty, inner.quick), true
		},
		full: func(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
			if !allowEmpty {
				var err *parse.Error
				if input, err = inner.full(input, labels); err != nil {
					return nil, err
				}
			}
			return more(input, labels, allowEmpty, full), nil
		},
	}
}

// Program is a compiled grammar. A Program is immutable and safe for
// concurrent use.
type Program struct {
	rules map[string]*proc
	index map[string]parse.Rule
	names []string
}

// Rules returns the names of the rules that can start a parse, in rule
// order.
func (p *Program) Rules() []string {
	return slices.Clone(p.names)
}

// Names returns the rule names indexed by parse.Rule.
func (p *Program) Names() []string {
	return p.names
}

func (p *Program) entry(rule string) (*proc, error) {
	if w, ok := p.rules[rule]; ok {
		if _, ok := p.index[rule]; !ok {
			return nil, fmt.Errorf("rule %v is silent and cannot start a parse", rule)
		}
		return w, nil
	}
	err := fmt.Errorf("undefined rule %v", rule)
	if hint := levenshtein.Suggest(rule, maps.Keys(p.index)); hint != "" {
		err = fmt.Errorf("%w (%s)", err, hint)
	}
	return nil, err
}

// Parse matches input against rule. On failure the returned error is a
// *parse.Error bound to input, unless rule does not name a normal rule.
func (p *Program) Parse(rule string, input []byte) (*parse.Tree, error) {
	w, err := p.entry(rule)
	if err != nil {
		return nil, err
	}
	labels := parse.NewLabels(input)
	if _, ok := w.quick(input, labels); ok {
		return parse.NewTree(input, labels, p.names), nil
	}
	labels.Reset()
	if _, err := w.full(input, labels); err != nil {
		return nil, err.Bind(input)
	}
	return parse.NewTree(input, labels, p.names), nil
}

// Quick runs only the quick matcher of rule and returns the number of
// unconsumed bytes.
func (p *Program) Quick(rule string, input []byte) (remaining int, ok bool, err error) {
	w, err := p.entry(rule)
	if err != nil {
		return 0, false, err
	}
	rest, ok := w.quick(input, parse.NewLabels(input))
	return len(rest), ok, nil
}

// Full runs only the full matcher of rule and returns the number of
// unconsumed bytes or the parse error.
func (p *Program) Full(rule string, input []byte) (int, error) {
	w, err := p.entry(rule)
	if err != nil {
		return 0, err
	}
	rest, perr := w.full(input, parse.NewLabels(input))
	if perr != nil {
		return 0, perr.Bind(input)
	}
	return len(rest), nil
}
