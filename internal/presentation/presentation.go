// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package presentation prints parse trees, parse errors, reduced grammars
// and metrics for the command line.
package presentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"sigs.k8s.io/yaml"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/internal/ids"
	"github.com/open-policy-agent/fastpeg/ir"
	"github.com/open-policy-agent/fastpeg/metrics"
	"github.com/open-policy-agent/fastpeg/parse"
)

const maxTableFieldLen = 80

// JSON prints x to w as indented JSON.
func JSON(w io.Writer, x any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(x)
}

// YAML prints x to w as YAML. x is marshalled through its JSON form so the
// JSON field names apply.
func YAML(w io.Writer, x any) error {
	bs, err := yaml.Marshal(x)
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}

// Node is the JSON form of a parse tree node.
type Node struct {
	Rule     string  `json:"rule"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Text     string  `json:"text"`
	Children []*Node `json:"children,omitempty"`
}

// NewNodes converts the roots of t and their descendants.
func NewNodes(t *parse.Tree) []*Node {
	var out []*Node
	for n := range t.Roots() {
		out = append(out, newNode(n))
	}
	return out
}

func newNode(n parse.Node) *Node {
	start, end := n.Span()
	node := &Node{Rule: n.Name(), Start: start, End: end, Text: n.Text()}
	for c := range n.Children() {
		node.Children = append(node.Children, newNode(c))
	}
	return node
}

// Tree prints t to w, one node per line, indented by depth.
func Tree(w io.Writer, t *parse.Tree) error {
	_, err := io.WriteString(w, t.String())
	return err
}

// Error prints err to w. Parse errors are rendered against input with a
// caret under the failure position. Grammar errors are printed one per
// line.
func Error(w io.Writer, file string, input []byte, err error) error {
	var perr *parse.Error
	if errors.As(err, &perr) {
		_, err := io.WriteString(w, perr.Render(file, input))
		return err
	}
	var errs ast.Errors
	if errors.As(err, &errs) {
		for _, e := range errs {
			if _, err := fmt.Fprintln(w, e.Error()); err != nil {
				return err
			}
		}
		return nil
	}
	_, err = fmt.Fprintln(w, "error:", err)
	return err
}

// Inspection summarizes a reduced grammar.
type Inspection struct {
	Rules   []InspectedRule `json:"rules"`
	Inlined []string        `json:"inlined,omitempty"`
	Skips   bool            `json:"skips"`
	Entries []InspectedExpr `json:"entries"`
	Metrics map[string]any  `json:"metrics,omitempty"`
}

// InspectedRule is one rule of an Inspection.
type InspectedRule struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Expr string `json:"expr"`
}

// InspectedExpr is one identity registry entry of an Inspection.
type InspectedExpr struct {
	ID   string `json:"id"`
	Expr string `json:"expr"`
}

// NewInspection summarizes g and reg. If match is not nil only the rules
// it accepts are listed.
func NewInspection(g *ir.Grammar, reg *ids.Registry, match func(string) bool) *Inspection {
	info := &Inspection{
		Inlined: g.Inlined,
		Skips:   g.Skips(),
	}
	for _, r := range g.Rules {
		if match != nil && !match(r.Name) {
			continue
		}
		info.Rules = append(info.Rules, InspectedRule{Name: r.Name, Type: r.Type.String(), Expr: r.Expr.String()})
	}
	for _, e := range reg.Entries() {
		info.Entries = append(info.Entries, InspectedExpr{ID: e.ID, Expr: e.Expr.String()})
	}
	return info
}

// Pretty prints info to w as tables.
func (info *Inspection) Pretty(w io.Writer) error {
	if len(info.Rules) > 0 {
		fmt.Fprintln(w, "RULES:")
		t := generateTableWithKeys(w, "name", "type", "expression")
		for _, r := range info.Rules {
			t.Append([]string{r.Name, r.Type, truncateStr(r.Expr)})
		}
		t.Render()
	}
	if len(info.Inlined) > 0 {
		fmt.Fprintf(w, "INLINED: %v\n", strings.Join(info.Inlined, ", "))
	}
	if len(info.Entries) > 0 {
		fmt.Fprintln(w, "PROCEDURES:")
		t := generateTableWithKeys(w, "id", "expression")
		for _, e := range info.Entries {
			t.Append([]string{e.ID, truncateStr(e.Expr)})
		}
		t.Render()
	}
	if len(info.Metrics) > 0 {
		fmt.Fprintln(w, "METRICS:")
		populateMetrics(generateTableWithKeys(w, "metric", "value"), info.Metrics).Render()
	}
	return nil
}

// Metrics prints m to w as a table.
func Metrics(w io.Writer, m metrics.Metrics) error {
	t := populateMetrics(generateTableWithKeys(w, "metric", "value"), m.All())
	if t.NumLines() > 0 {
		t.Render()
	}
	return nil
}

func populateMetrics(t *tablewriter.Table, all map[string]any) *tablewriter.Table {
	var lines [][]string
	for name, value := range all {
		stats, ok := value.(map[string]any)
		if !ok {
			lines = append(lines, []string{name, fmt.Sprint(value)})
			continue
		}
		for k, v := range stats {
			lines = append(lines, []string{name + "_" + k, fmt.Sprint(v)})
		}
	}
	slices.SortFunc(lines, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})
	t.AppendBulk(lines)
	return t
}

func generateTableWithKeys(w io.Writer, keys ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	aligns := make([]int, 0, len(keys))
	hdrs := make([]string, 0, len(keys))
	for _, k := range keys {
		hdrs = append(hdrs, strings.Title(k)) //nolint:staticcheck // SA1019, no unicode here
		aligns = append(aligns, tablewriter.ALIGN_LEFT)
	}
	table.SetHeader(hdrs)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnAlignment(aligns)
	table.SetAutoWrapText(false)
	return table
}

func truncateStr(s string) string {
	if len(s) < maxTableFieldLen {
		return s
	}
	return s[:maxTableFieldLen] + "..."
}
