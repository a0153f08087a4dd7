// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package compile runs the grammar pipeline: static checks, reduction to
// the IR, identity registration and code generation for one of the
// supported targets.
package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/internal/compiler/closure"
	"github.com/open-policy-agent/fastpeg/internal/compiler/golang"
	"github.com/open-policy-agent/fastpeg/internal/ids"
	"github.com/open-policy-agent/fastpeg/internal/optimizer"
	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/parse"
)

const (
	// TargetGo is the default target. The grammar is compiled into a Go
	// source file that depends only on the parse package.
	TargetGo = "go"

	// TargetClosure compiles the grammar into closures that parse input in
	// process.
	TargetClosure = "closure"
)

// Targets contains the list of targets supported by the compiler.
var Targets = []string{
	TargetGo,
	TargetClosure,
}

// Compiler runs the pipeline over one grammar.
type Compiler struct {
	grammar *ast.Grammar
	target  string
	pkg     string
	output  io.Writer
	logger  logging.Logger
	metrics metrics.Metrics

	stages  []stage
	reduced *ir.Grammar
	reg     *ids.Registry
	program *closure.Program
}

type stage struct {
	name string
	f    func() error
}

// New returns a new compiler instance that can be invoked.
func New() *Compiler {
	c := &Compiler{
		target:  TargetGo,
		pkg:     golang.DefaultPackage,
		logger:  logging.NewNoOpLogger(),
		metrics: metrics.NoOp(),
	}
	c.stages = []stage{
		{"check", c.check},
		{"optimize", c.optimize},
		{"register", c.register},
		{"emit", c.emit},
	}
	return c
}

// WithGrammar sets the grammar to compile.
func (c *Compiler) WithGrammar(g *ast.Grammar) *Compiler {
	c.grammar = g
	return c
}

// WithTarget sets the output target for the compiler.
func (c *Compiler) WithTarget(t string) *Compiler {
	c.target = t
	return c
}

// WithPackage sets the package name of generated Go source.
func (c *Compiler) WithPackage(name string) *Compiler {
	c.pkg = name
	return c
}

// WithOutput sets the writer generated Go source is written to.
func (c *Compiler) WithOutput(w io.Writer) *Compiler {
	c.output = w
	return c
}

// WithLogger sets the logger passed to every stage.
func (c *Compiler) WithLogger(l logging.Logger) *Compiler {
	c.logger = l
	return c
}

// WithMetrics sets the metrics stage timers and counters are recorded into.
func (c *Compiler) WithMetrics(m metrics.Metrics) *Compiler {
	c.metrics = m
	return c
}

// IR returns the reduced grammar after the optimize stage has run.
func (c *Compiler) IR() *ir.Grammar {
	return c.reduced
}

// Registry returns the identity registry after the register stage has run.
func (c *Compiler) Registry() *ids.Registry {
	return c.reg
}

// Build compiles the grammar to Go source and writes it to the output.
func (c *Compiler) Build(ctx context.Context) error {
	if c.target != TargetGo {
		return fmt.Errorf("build requires target %q, got %q", TargetGo, c.target)
	}
	if c.output == nil {
		return errors.New("no output")
	}
	return c.run(ctx)
}

// Prepare compiles the grammar into an in-process parser.
func (c *Compiler) Prepare(ctx context.Context) (*Prepared, error) {
	c.target = TargetClosure
	if err := c.run(ctx); err != nil {
		return nil, err
	}
	return &Prepared{program: c.program, ir: c.reduced, registry: c.reg}, nil
}

func (c *Compiler) run(ctx context.Context) error {
	if c.grammar == nil {
		return errors.New("no grammar")
	}
	if !slices.Contains(Targets, c.target) {
		return fmt.Errorf("invalid target %q", c.target)
	}
	for _, s := range c.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.WithFields(map[string]any{"stage": s.name}).Debug("Running compile stage.")
		timer := c.metrics.Timer(metrics.StageTimer(s.name))
		timer.Start()
		err := s.f()
		timer.Stop()
		if err != nil {
			return stageError(s.name, err)
		}
	}
	return nil
}

// stageError returns grammar errors as is and wraps everything else with
// the stage name.
func stageError(name string, err error) error {
	var errs ast.Errors
	var e *ast.Error
	if errors.As(err, &errs) || errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (c *Compiler) check() error {
	return ast.Check(c.grammar)
}

func (c *Compiler) optimize() error {
	reduced, err := optimizer.New().
		WithGrammar(c.grammar).
		WithLogger(c.logger).
		WithMetrics(c.metrics).
		Optimize()
	if err != nil {
		return err
	}
	c.reduced = reduced
	return nil
}

func (c *Compiler) register() error {
	c.reg = ids.New()
	for _, r := range c.reduced.Rules {
		c.reg.Register(r.Expr, nil)
	}
	c.logger.Debug("Registered %d distinct expressions.", c.reg.Len())
	return nil
}

func (c *Compiler) emit() error {
	switch c.target {
	case TargetGo:
		return golang.New().
			WithGrammar(c.reduced).
			WithPackage(c.pkg).
			WithLogger(c.logger).
			WithMetrics(c.metrics).
			WithRegistry(c.reg).
			Generate(c.output)
	case TargetClosure:
		prog, err := closure.New().
			WithGrammar(c.reduced).
			WithLogger(c.logger).
			WithMetrics(c.metrics).
			WithRegistry(c.reg).
			Compile()
		if err != nil {
			return err
		}
		c.program = prog
	}
	return nil
}

// Prepared is a grammar compiled for in-process parsing. It is safe for
// concurrent use.
type Prepared struct {
	program  *closure.Program
	ir       *ir.Grammar
	registry *ids.Registry
}

// Parse parses input starting at rule.
func (p *Prepared) Parse(rule string, input []byte) (*parse.Tree, error) {
	return p.program.Parse(rule, input)
}

// Rules returns the rules that can start a parse.
func (p *Prepared) Rules() []string {
	return p.program.Rules()
}

// IR returns the reduced grammar.
func (p *Prepared) IR() *ir.Grammar {
	return p.ir
}

// Registry returns the identity registry of the reduced grammar.
func (p *Prepared) Registry() *ids.Registry {
	return p.registry
}
