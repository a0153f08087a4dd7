// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package golang generates Go source for a reduced grammar.
//
// The generated file contains a quick and a full matching procedure for
// every distinct sub-expression, a wrapper pair per rule, and one exported
// Parse function per rule that labels tree nodes. It depends only on the
// parse package at run time.
package golang

import (
	"bytes"
	"go/format"
	"go/token"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/internal/ids"
	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/metrics"
)

// DefaultPackage is the package name used when none is set.
const DefaultPackage = "parser"

type ruleInfo struct {
	rule  *ir.Rule
	Name  string
	Const string // RuleFoo
	Entry string // ParseFoo
}

type fileData struct {
	Package  string
	Rules    []ruleInfo
	Wrappers []string
	Nodes    []string
}

// Generator emits Go source for a grammar.
type Generator struct {
	grammar *ir.Grammar
	pkg     string
	logger  logging.Logger
	metrics metrics.Metrics
	reg     *ids.Registry

	stages   []stage
	emitter  *emitter
	rules    []ruleInfo // every rule, in grammar order
	labeled  []ruleInfo // normal rules, indexed by parse.Rule
	builtins map[string]struct{}
	nodes    []string
	wrappers []string
	source   []byte
}

type stage struct {
	name string
	f    func() error
}

// New returns a new Generator.
func New() *Generator {
	g := &Generator{
		pkg:     DefaultPackage,
		logger:  logging.NewNoOpLogger(),
		metrics: metrics.NoOp(),
	}
	g.stages = []stage{
		{"initRules", g.initRules},
		{"emitNodes", g.emitNodes},
		{"emitRules", g.emitRules},
		{"emitEntryPoints", g.emitEntryPoints},
		{"format", g.format},
	}
	return g
}

// WithGrammar sets the grammar to generate code for.
func (g *Generator) WithGrammar(x *ir.Grammar) *Generator {
	g.grammar = x
	return g
}

// WithPackage sets the package name of the generated file.
func (g *Generator) WithPackage(name string) *Generator {
	g.pkg = name
	return g
}

// WithLogger sets the logger for the generator.
func (g *Generator) WithLogger(l logging.Logger) *Generator {
	g.logger = l
	return g
}

// WithMetrics sets the metrics the generator records procedure counts into.
func (g *Generator) WithMetrics(m metrics.Metrics) *Generator {
	g.metrics = m
	return g
}

// WithRegistry sets the identity registry. By default a new registry is
// used.
func (g *Generator) WithRegistry(reg *ids.Registry) *Generator {
	g.reg = reg
	return g
}

// Generate runs the generator stages and writes the formatted source to w.
func (g *Generator) Generate(w io.Writer) error {
	if g.grammar == nil {
		return ast.NewError(ast.GenerateErr, nil, "no grammar")
	}
	for _, s := range g.stages {
		g.logger.WithFields(map[string]any{"stage": s.name}).Debug("Running generator stage.")
		if err := s.f(); err != nil {
			return err
		}
	}
	_, err := w.Write(g.source)
	return err
}

func (g *Generator) initRules() error {
	if !token.IsIdentifier(g.pkg) {
		return ast.NewError(ast.GenerateErr, nil, "invalid package name %q", g.pkg)
	}
	if g.reg == nil {
		g.reg = ids.New()
	}
	g.emitter = &emitter{reg: g.reg, ws: g.grammar.Skips()}
	g.builtins = map[string]struct{}{}

	var errs ast.Errors
	exported := map[string]string{}
	defined := map[string]struct{}{}
	for _, r := range g.grammar.Rules {
		defined[r.Name] = struct{}{}
	}

	for _, r := range g.grammar.Rules {
		if !token.IsIdentifier(r.Name) || strings.HasPrefix(r.Name, "anon_") {
			errs = append(errs, ast.NewError(ast.GenerateErr, nil, "rule name %q cannot be used in generated code", r.Name))
			continue
		}
		info := ruleInfo{rule: r, Name: r.Name}
		if r.Type == ast.NormalRule {
			name := exportedName(r.Name)
			if name == "" {
				errs = append(errs, ast.NewError(ast.GenerateErr, nil, "rule name %q has no exported form", r.Name))
				continue
			}
			if prev, ok := exported[name]; ok {
				errs = append(errs, ast.NewError(ast.GenerateErr, nil, "rules %v and %v both generate %v", prev, r.Name, "Parse"+name))
				continue
			}
			exported[name] = r.Name
			info.Const, info.Entry = "Rule"+name, "Parse"+name
			g.labeled = append(g.labeled, info)
		}
		g.rules = append(g.rules, info)

		for _, x := range ir.ListExprs(r.Expr) {
			ident, ok := x.(*ir.Ident)
			if !ok {
				continue
			}
			if ir.IsBuiltin(ident) {
				g.builtins[ident.Name] = struct{}{}
			} else if _, ok := defined[ident.Name]; !ok {
				errs = append(errs, ast.NewError(ast.GenerateErr, nil, "rule %v references undefined rule %v", r.Name, ident.Name))
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// exportedName returns the exported Go form of a rule name: underscores
// separate words and the first letter of every word is upper cased.
func exportedName(name string) string {
	var sb strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(word)
		sb.WriteRune(unicode.ToUpper(r))
		sb.WriteString(word[size:])
	}
	return sb.String()
}

// emitNodes registers every rule body and emits a procedure pair for every
// entry of the registry, including entries registered before the generator
// ran.
func (g *Generator) emitNodes() error {
	for _, info := range g.rules {
		size := 0
		g.reg.Register(info.rule.Expr, func(string, ir.Expr) { size++ })
		g.metrics.Histogram(metrics.CodegenRuleSize).Update(int64(size))
		g.logger.WithFields(map[string]any{"rule": info.Name}).Debug("Registered %d new expressions.", size)
	}
	for _, entry := range g.reg.Entries() {
		text, err := g.emitter.emit(entry.ID, entry.Expr)
		if err != nil {
			return err
		}
		g.nodes = append(g.nodes, text)
	}
	g.metrics.Counter(metrics.CodegenProcs).Add(uint64(len(g.nodes)))
	return nil
}

func (g *Generator) emitRules() error {
	e := g.emitter
	for _, info := range g.rules {
		body := info.rule.Expr
		data := map[string]string{
			"Name":    info.Name,
			"Comment": info.rule.String(),
			"Quick":   e.call("quick", body, "input"),
			"Full":    e.call("full", body, "input"),
			"Const":   info.Const,
			"Frame":   strconv.Quote(info.Name),
		}
		name := "rule"
		if info.rule.Type == ast.SilentRule {
			name = "silent"
		}
		if err := g.execute(name, data); err != nil {
			return err
		}
	}

	if e.ws {
		var skippers []string
		for _, name := range []string{ast.WHITESPACE, ast.COMMENT} {
			if g.grammar.Lookup(name) != nil {
				skippers = append(skippers, name)
			}
		}
		data := map[string]any{
			"Rules":   skippers,
			"Comment": strings.Join(skippers, " and "),
		}
		if err := g.execute("skip", data); err != nil {
			return err
		}
	}

	for _, name := range []string{ast.SOI, ast.EOI, ast.NEWLINE} {
		if _, ok := g.builtins[name]; ok {
			if err := g.execute(name, nil); err != nil {
				return err
			}
		}
	}

	g.metrics.Counter(metrics.CodegenProcs).Add(uint64(len(g.wrappers)))
	return nil
}

func (g *Generator) execute(name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return ast.NewError(ast.GenerateErr, nil, "%v", err)
	}
	g.wrappers = append(g.wrappers, buf.String())
	return nil
}

func (g *Generator) emitEntryPoints() error {
	data := fileData{
		Package:  g.pkg,
		Rules:    g.labeled,
		Wrappers: g.wrappers,
		Nodes:    g.nodes,
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "file", data); err != nil {
		return ast.NewError(ast.GenerateErr, nil, "%v", err)
	}
	g.source = buf.Bytes()
	return nil
}

func (g *Generator) format() error {
	src, err := format.Source(g.source)
	if err != nil {
		return ast.NewError(ast.GenerateErr, nil, "generated source does not parse: %v", err)
	}
	g.source = src
	return nil
}

// EmitNode returns the unformatted source of the quick and full procedures
// for x. Sub-expressions are referenced by their registry identifiers; ws
// enables implicit skipping between the items of sequences and
// repetitions.
func EmitNode(x ir.Expr, reg *ids.Registry, ws bool) (string, error) {
	e := &emitter{reg: reg, ws: ws}
	return e.emit(reg.ID(x), x)
}

func unexpected(x ir.Expr) error {
	return ast.NewError(ast.GenerateErr, nil, "unexpected expression %v (%T)", x, x)
}
