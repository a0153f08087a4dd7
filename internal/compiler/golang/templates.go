// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package golang

import "text/template"

// The templates below produce unformatted Go source; the format stage runs
// the result through go/format.

var templates = template.Must(template.New("golang").Parse(`
{{- define "literal" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	if parse.HasPrefix(input, {{.Lit}}) {
		return input[{{.Len}}:], true
	}
	return nil, false
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	if parse.HasPrefix(input, {{.Lit}}) {
		return input[{{.Len}}:], nil
	}
	return nil, parse.ExpectLiteral({{.Lit}}, input, {{.Frame}})
}
{{end}}

{{- define "insens" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	if parse.MatchInsensitive(input, {{.Lit}}, {{.Inv}}) {
		return input[{{.Len}}:], true
	}
	return nil, false
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	if parse.MatchInsensitive(input, {{.Lit}}, {{.Inv}}) {
		return input[{{.Len}}:], nil
	}
	return nil, parse.ExpectLiteral({{.Lit}}, input, {{.Frame}})
}
{{end}}

{{- define "char" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	if len(input) > 0 {
		{{if .UsesC}}c := input[0]
		{{end -}}
		if {{.Cond}} {
			return input[1:], true
		}
	}
	return nil, false
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	if len(input) > 0 {
		{{if .UsesC}}c := input[0]
		{{end -}}
		if {{.Cond}} {
			return input[1:], nil
		}
	}
	return nil, parse.ExpectPredicate({{.Expected}}, input, {{.Frame}})
}
{{end}}

{{- define "scan" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	i := 0
	for i < len(input) {
		{{if .UsesC}}c := input[i]
		{{end -}}
		if !({{.Cond}}) {
			break
		}
		i++
	}
	{{- if not .AllowEmpty}}
	if i == 0 {
		return nil, false
	}
	{{- end}}
	return input[i:], true
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	i := 0
	for i < len(input) {
		{{if .UsesC}}c := input[i]
		{{end -}}
		if !({{.Cond}}) {
			break
		}
		i++
	}
	{{- if not .AllowEmpty}}
	if i == 0 {
		return nil, parse.ExpectPredicate({{.Expected}}, input, {{.Frame}})
	}
	{{- end}}
	return input[i:], nil
}
{{end}}

{{- define "neg" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	{{- if .Labels}}
	n := labels.Len()
	{{- end}}
	_, ok := {{.Quick}}
	{{- if .Labels}}
	labels.Truncate(n)
	{{- end}}
	if ok {
		return nil, false
	}
	return input, true
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	{{- if .Labels}}
	n := labels.Len()
	{{- end}}
	_, err := {{.Full}}
	{{- if .Labels}}
	labels.Truncate(n)
	{{- end}}
	if err == nil {
		return nil, parse.NegationFailed({{.Expected}}, input, {{.Frame}})
	}
	return input, nil
}
{{end}}

{{- define "seq" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	var ok bool
	{{- range .Items}}
	{{- if .Skip}}
	input = skip(input, labels)
	{{- end}}
	if input, ok = {{.Quick}}; !ok {
		return nil, false
	}
	{{- end}}
	return input, true
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	var err *parse.Error
	{{- range .Items}}
	{{- if .Skip}}
	input = skip(input, labels)
	{{- end}}
	if input, err = {{.Full}}; err != nil {
		return nil, err{{if .Note}}.WithNote({{.Note}}){{end}}.WithTrace({{.Frame}})
	}
	{{- end}}
	return input, nil
}
{{end}}

{{- define "choice" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	{{- if .Labels}}
	n := labels.Len()
	{{- end}}
	{{- range .Items}}
	if rest, ok := {{.Quick}}; ok {
		return rest, true
	}
	{{- if $.Labels}}
	labels.Truncate(n)
	{{- end}}
	{{- end}}
	return nil, false
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	if rest, ok := {{.Self}}; ok {
		return rest, nil
	}
	{{- if .Labels}}
	n := labels.Len()
	{{- end}}
	var rest []byte
	var err *parse.Error
	errs := make([]*parse.Error, 0, {{len .Items}})
	{{- range .Items}}
	if rest, err = {{.Full}}; err == nil {
		return rest, nil
	}
	{{- if $.Labels}}
	labels.Truncate(n)
	{{- end}}
	errs = append(errs, err)
	{{- end}}
	return nil, parse.AllFailed(errs, input, {{.Frame}})
}
{{end}}

{{- define "opt" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	{{- if .Labels}}
	n := labels.Len()
	{{- end}}
	if rest, ok := {{.Quick}}; ok {
		return rest, true
	}
	{{- if .Labels}}
	labels.Truncate(n)
	{{- end}}
	return input, true
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	{{- if .Labels}}
	n := labels.Len()
	{{- end}}
	if rest, err := {{.Full}}; err == nil {
		return rest, nil
	}
	{{- if .Labels}}
	labels.Truncate(n)
	{{- end}}
	return input, nil
}
{{end}}

{{- define "rep" -}}
// {{.Comment}}
func quick_{{.ID}}({{.Params}}) ([]byte, bool) {
	{{- if not .AllowEmpty}}
	var ok bool
	if input, ok = {{.Quick}}; !ok {
		return nil, false
	}
	{{- end}}
	{{- if and .Skip .AllowEmpty}}
	first := true
	{{- end}}
	for {
		{{- if .Labels}}
		n := labels.Len()
		{{- end}}
		next := input
		{{- if .Skip}}
		{{- if .AllowEmpty}}
		if !first {
			next = skip(next, labels)
		}
		first = false
		{{- else}}
		next = skip(next, labels)
		{{- end}}
		{{- end}}
		rest, ok := {{.NextQuick}}
		if !ok || len(rest) == len(input) {
			{{- if .Labels}}
			labels.Truncate(n)
			{{- end}}
			return input, true
		}
		input = rest
	}
}

func full_{{.ID}}({{.Params}}) ([]byte, *parse.Error) {
	{{- if not .AllowEmpty}}
	var err *parse.Error
	if input, err = {{.Full}}; err != nil {
		return nil, err
	}
	{{- end}}
	{{- if and .Skip .AllowEmpty}}
	first := true
	{{- end}}
	for {
		{{- if .Labels}}
		n := labels.Len()
		{{- end}}
		next := input
		{{- if .Skip}}
		{{- if .AllowEmpty}}
		if !first {
			next = skip(next, labels)
		}
		first = false
		{{- else}}
		next = skip(next, labels)
		{{- end}}
		{{- end}}
		rest, err := {{.NextFull}}
		if err != nil || len(rest) == len(input) {
			{{- if .Labels}}
			labels.Truncate(n)
			{{- end}}
			return input, nil
		}
		input = rest
	}
}
{{end}}

{{- define "rule" -}}
// {{.Comment}}
func quick_{{.Name}}(input []byte, labels *parse.Labels) ([]byte, bool) {
	slot := labels.Reserve()
	rest, ok := {{.Quick}}
	if !ok {
		labels.Truncate(slot)
		return nil, false
	}
	labels.Set(slot, {{.Const}}, input, rest)
	return rest, true
}

func full_{{.Name}}(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
	slot := labels.Reserve()
	rest, err := {{.Full}}
	if err != nil {
		labels.Truncate(slot)
		return nil, err.WithTrace({{.Frame}})
	}
	labels.Set(slot, {{.Const}}, input, rest)
	return rest, nil
}
{{end}}

{{- define "silent" -}}
// {{.Comment}}
func quick_{{.Name}}(input []byte, labels *parse.Labels) ([]byte, bool) {
	return {{.Quick}}
}

func full_{{.Name}}(input []byte, labels *parse.Labels) ([]byte, *parse.Error) {
	return {{.Full}}
}
{{end}}

{{- define "skip" -}}
// skip consumes implicit {{.Comment}} between items. It never fails.
func skip(input []byte, labels *parse.Labels) []byte {
	for {
		n := labels.Len()
		{{- range .Rules}}
		if rest, ok := quick_{{.}}(input, labels); ok && len(rest) < len(input) {
			input = rest
			continue
		}
		labels.Truncate(n)
		{{- end}}
		return input
	}
}
{{end}}

{{- define "SOI" -}}
func quick_SOI(input []byte) ([]byte, bool) {
	return input, true
}

func full_SOI(input []byte) ([]byte, *parse.Error) {
	return input, nil
}
{{end}}

{{- define "EOI" -}}
func quick_EOI(input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return input, true
	}
	return nil, false
}

func full_EOI(input []byte) ([]byte, *parse.Error) {
	if len(input) == 0 {
		return input, nil
	}
	return nil, parse.ExpectPredicate("EOI", input, "EOI")
}
{{end}}

{{- define "NEWLINE" -}}
func quick_NEWLINE(input []byte) ([]byte, bool) {
	if n := parse.MatchNewline(input); n > 0 {
		return input[n:], true
	}
	return nil, false
}

func full_NEWLINE(input []byte) ([]byte, *parse.Error) {
	if n := parse.MatchNewline(input); n > 0 {
		return input[n:], nil
	}
	return nil, parse.ExpectPredicate("NEWLINE", input, "NEWLINE")
}
{{end}}

{{- define "file" -}}
// Code generated by fastpeg. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"

	"github.com/open-policy-agent/fastpeg/parse"
)

// Rules that label nodes of the parse tree.
const (
	{{- range $i, $r := .Rules}}
	{{$r.Const}}{{if eq $i 0}} parse.Rule = iota{{end}}
	{{- end}}
)

var ruleNames = []string{
	{{- range .Rules}}
	{{printf "%q" .Name}},
	{{- end}}
}
{{range .Rules}}
// {{.Entry}} parses input starting at rule {{.Name}}.
func {{.Entry}}(input []byte) (*parse.Tree, error) {
	return Parse({{.Const}}, input)
}
{{end}}
// Parse parses input starting at rule. The quick matcher runs first; the
// full matcher only runs to describe a failure.
func Parse(rule parse.Rule, input []byte) (*parse.Tree, error) {
	var quick func([]byte, *parse.Labels) ([]byte, bool)
	var full func([]byte, *parse.Labels) ([]byte, *parse.Error)
	switch rule {
	{{- range .Rules}}
	case {{.Const}}:
		quick, full = quick_{{.Name}}, full_{{.Name}}
	{{- end}}
	default:
		return nil, fmt.Errorf("unknown rule %d", rule)
	}

	labels := parse.NewLabels(input)
	if _, ok := quick(input, labels); ok {
		return parse.NewTree(input, labels, ruleNames), nil
	}
	labels.Reset()
	if _, err := full(input, labels); err != nil {
		return nil, err.Bind(input)
	}
	return parse.NewTree(input, labels, ruleNames), nil
}
{{range .Wrappers}}
{{.}}
{{- end}}
{{range .Nodes}}
{{.}}
{{- end}}
{{end}}
`))
