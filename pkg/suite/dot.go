package suite

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts a suite definition to Graphviz DOT format, showing the
// steps as a chain in run order. The resulting DOT string can be rendered
// with [RenderSVG] or [RenderPNG].
//
// Step nodes carry the request method and route; validator counts are shown
// when a step has any.
func ToDOT(d *Definition) string {
	var buf bytes.Buffer
	buf.WriteString("digraph workflow {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [shape=oval, fillcolor=lightgrey];\n", d.Name)

	for i, s := range d.Steps {
		key := s.EffectiveKey(i)
		fmt.Fprintf(&buf, "  %q [label=%q];\n", key, stepLabel(d, s, i))
	}

	buf.WriteString("\n")
	prev := d.Name
	for i, s := range d.Steps {
		key := s.EffectiveKey(i)
		fmt.Fprintf(&buf, "  %q -> %q;\n", prev, key)
		prev = key
	}

	buf.WriteString("}\n")
	return buf.String()
}

func stepLabel(d *Definition, s StepDef, index int) string {
	method := s.Method
	if method == "" {
		method = "POST"
	}

	parts := []string{
		s.EffectiveName(),
		fmt.Sprintf("%s %s", method, d.Routes[s.Route]),
	}
	if n := len(s.Validators); n > 0 {
		parts = append(parts, fmt.Sprintf("%d validator(s)", n))
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return render(dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
