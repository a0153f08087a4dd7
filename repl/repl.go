// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package repl implements a read-eval-print loop that parses input lines
// with a grammar.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/open-policy-agent/fastpeg/compile"
	"github.com/open-policy-agent/fastpeg/internal/presentation"
	"github.com/open-policy-agent/fastpeg/logging"
)

// Output formats.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// REPL parses lines of input with the start rule of a grammar.
type REPL struct {
	output      io.Writer
	cache       *compile.Cache
	path        string
	logger      logging.Logger
	historyPath string
	initPrompt  string

	mtx      sync.Mutex
	prepared *compile.Prepared
	rule     string
	format   string
}

// New returns a REPL for the grammar file path. Grammars are compiled
// through cache so that reloading an unchanged file is free.
func New(path string, cache *compile.Cache, output io.Writer) *REPL {
	return &REPL{
		output:     output,
		cache:      cache,
		path:       path,
		logger:     logging.NewNoOpLogger(),
		initPrompt: "> ",
		format:     FormatPretty,
	}
}

// WithRule sets the start rule.
func (r *REPL) WithRule(rule string) *REPL {
	r.rule = rule
	return r
}

// WithFormat sets the output format.
func (r *REPL) WithFormat(format string) *REPL {
	r.format = format
	return r
}

// WithHistoryPath sets the file the line history is kept in.
func (r *REPL) WithHistoryPath(path string) *REPL {
	r.historyPath = path
	return r
}

// WithLogger sets the logger.
func (r *REPL) WithLogger(l logging.Logger) *REPL {
	r.logger = l
	return r
}

// Load compiles the grammar file. If no start rule was set, the first rule
// that can start a parse is used.
func (r *REPL) Load(ctx context.Context) error {
	return r.Reload(ctx, r.path)
}

// Reload recompiles the grammar file. On failure the previous grammar
// stays active.
func (r *REPL) Reload(ctx context.Context, path string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p, err := r.cache.Prepare(ctx, path, bs)
	if err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.prepared = p
	rules := p.Rules()
	if !slices.Contains(rules, r.rule) && len(rules) > 0 {
		if r.rule != "" {
			r.logger.Warn("Rule %v cannot start a parse, using %v.", r.rule, rules[0])
		}
		r.rule = rules[0]
	}
	return nil
}

// Loop will run until the user enters ":exit", Ctrl+C, Ctrl+D, or an
// unexpected error occurs.
func (r *REPL) Loop(ctx context.Context) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(r.complete)
	r.loadHistory(line)

	for {
		input, err := line.Prompt(r.getPrompt())
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Fprintln(r.output, "Exiting")
			break
		}
		if err != nil {
			fmt.Fprintln(r.output, "error (fatal):", err)
			break
		}

		if err := r.OneShot(ctx, input); err != nil {
			if errors.As(err, &stop{}) {
				break
			}
			fmt.Fprintln(r.output, "error:", err)
		}
		line.AppendHistory(input)
	}

	r.saveHistory(line)
}

// OneShot runs a command or parses the line and prints the result. Parse
// failures are printed; other errors are returned for the caller to
// display.
func (r *REPL) OneShot(ctx context.Context, line string) error {
	if cmd := newCommand(line); cmd != nil {
		switch cmd.op {
		case "rule":
			return r.cmdRule(cmd.args)
		case "rules":
			return r.cmdRules()
		case "json":
			return r.cmdFormat(FormatJSON)
		case "pretty":
			return r.cmdFormat(FormatPretty)
		case "reload":
			return r.Load(ctx)
		case "help":
			return r.cmdHelp()
		case "exit":
			return stop{}
		}
	}
	return r.parse(line)
}

func (r *REPL) parse(line string) error {
	r.mtx.Lock()
	p, rule, format := r.prepared, r.rule, r.format
	r.mtx.Unlock()

	if p == nil {
		return &Error{Code: NoGrammarErr, Message: "load a grammar first"}
	}

	input := []byte(line)
	tree, err := p.Parse(rule, input)
	if err != nil {
		return presentation.Error(r.output, "input", input, err)
	}
	if format == FormatJSON {
		return presentation.JSON(r.output, presentation.NewNodes(tree))
	}
	return presentation.Tree(r.output, tree)
}

func (r *REPL) cmdRule(args []string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if len(args) == 0 {
		fmt.Fprintln(r.output, r.rule)
		return nil
	}
	if len(args) != 1 {
		return newBadArgsErr("rule <name>: expects exactly one rule")
	}
	if r.prepared == nil || !slices.Contains(r.prepared.Rules(), args[0]) {
		return newBadArgsErr("rule %v cannot start a parse", args[0])
	}
	r.rule = args[0]
	return nil
}

func (r *REPL) cmdRules() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.prepared == nil {
		return &Error{Code: NoGrammarErr, Message: "load a grammar first"}
	}
	for _, name := range r.prepared.Rules() {
		marker := " "
		if name == r.rule {
			marker = "*"
		}
		fmt.Fprintf(r.output, "%s %s\n", marker, name)
	}
	return nil
}

func (r *REPL) cmdFormat(format string) error {
	r.mtx.Lock()
	r.format = format
	r.mtx.Unlock()
	return nil
}

func (r *REPL) cmdHelp() error {
	width := 0
	for _, c := range builtin {
		width = max(width, len(c.syntax()))
	}
	for _, c := range builtin {
		fmt.Fprintf(r.output, "%-*s  %s\n", width, c.syntax(), c.help)
	}
	return nil
}

func (r *REPL) complete(line string) []string {
	var c []string
	if !strings.HasPrefix(line, ":") {
		return c
	}
	if rest, ok := strings.CutPrefix(line, ":rule "); ok {
		r.mtx.Lock()
		defer r.mtx.Unlock()
		if r.prepared != nil {
			for _, name := range r.prepared.Rules() {
				if strings.HasPrefix(name, rest) {
					c = append(c, ":rule "+name)
				}
			}
		}
		return c
	}
	for _, b := range builtin {
		if strings.HasPrefix(":"+b.name, line) {
			c = append(c, ":"+b.name)
		}
	}
	return c
}

func (r *REPL) getPrompt() string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.rule != "" {
		return r.rule + r.initPrompt
	}
	return r.initPrompt
}

func (r *REPL) loadHistory(prompt *liner.State) {
	if r.historyPath == "" {
		return
	}
	if f, err := os.Open(r.historyPath); err == nil {
		_, _ = prompt.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory(prompt *liner.State) {
	if r.historyPath == "" {
		return
	}
	if f, err := os.Create(r.historyPath); err == nil {
		_, _ = prompt.WriteHistory(f)
		f.Close()
	}
}

type commandDesc struct {
	name string
	args []string
	help string
}

func (c commandDesc) syntax() string {
	if len(c.args) > 0 {
		return ":" + c.name + " " + strings.Join(c.args, " ")
	}
	return ":" + c.name
}

var builtin = [...]commandDesc{
	{"rule", []string{"[name]"}, "show or set the start rule"},
	{"rules", []string{}, "list the rules that can start a parse"},
	{"json", []string{}, "print trees as JSON"},
	{"pretty", []string{}, "print trees as indented text"},
	{"reload", []string{}, "recompile the grammar file"},
	{"help", []string{}, "print this message"},
	{"exit", []string{}, "exit back to shell (or ctrl+c, ctrl+d)"},
}

type command struct {
	op   string
	args []string
}

// newCommand returns the command on line, or nil if line is input to
// parse. Commands start with a colon.
func newCommand(line string) *command {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), ":")
	if !ok {
		return nil
	}
	p := strings.Fields(rest)
	if len(p) == 0 {
		return nil
	}
	for _, c := range builtin {
		if c.name == strings.ToLower(p[0]) {
			return &command{
				op:   c.name,
				args: p[1:],
			}
		}
	}
	return nil
}
