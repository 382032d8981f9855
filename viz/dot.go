// Package viz renders state graphs in Graphviz DOT format using the graph's
// introspection API.
package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/strata-sm/strata"
)

// Options controls DOT output
type Options struct {
	// Title labels the whole graph
	Title string
	// RankDir sets the layout direction, "TB" or "LR". Default "TB".
	RankDir string
}

// DOT renders the graph with default options
func DOT(g *strata.Graph) string {
	return DOTWithOptions(g, Options{})
}

// DOTWithOptions renders the graph as a Graphviz digraph. Composite and
// orthogonal states become clusters with an invisible anchor node so edges
// can attach to them; history pseudostates render as H / H* circles and
// final states as double circles.
func DOTWithOptions(g *strata.Graph, opts Options) string {
	r := newRenderer(g)

	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "TB"
	}

	r.line(0, "digraph statemachine {")
	r.line(1, "rankdir=%s;", rankdir)
	r.line(1, "compound=true;")
	r.line(1, `node [shape=box, style=rounded, fontname="Helvetica"];`)
	r.line(1, `edge [fontname="Helvetica", fontsize=11];`)
	if opts.Title != "" {
		r.line(1, "label=%q;", opts.Title)
		r.line(1, "labelloc=t;")
	}
	r.out.WriteString("\n")

	if initial := g.Initial(); initial != "" {
		r.line(1, "__initial [shape=point, width=0.15];")
		r.line(1, "__initial -> %s%s;", r.endpoint(initial), r.headAttr(initial))
	}

	for _, name := range g.StateNames() {
		info, _ := g.Describe(name)
		if info.Parent == "" {
			r.renderState(info, 1)
		}
	}

	r.out.WriteString("\n")
	for _, t := range g.Transitions() {
		r.renderTransition(t)
	}

	r.line(0, "}")
	return r.out.String()
}

// WriteDOT renders the graph to w
func WriteDOT(w io.Writer, g *strata.Graph, opts Options) error {
	_, err := io.WriteString(w, DOTWithOptions(g, opts))
	return err
}

type renderer struct {
	g        *strata.Graph
	out      strings.Builder
	clusters map[string]string // state name -> cluster id
	next     int
}

func newRenderer(g *strata.Graph) *renderer {
	r := &renderer{g: g, clusters: make(map[string]string)}
	for _, name := range g.StateNames() {
		info, _ := g.Describe(name)
		if info.Kind == strata.KindComposite || info.Kind == strata.KindOrthogonal {
			r.next++
			r.clusters[name] = fmt.Sprintf("cluster_%d", r.next)
		}
	}
	return r
}

func (r *renderer) line(depth int, format string, args ...any) {
	r.out.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&r.out, format, args...)
	r.out.WriteString("\n")
}

func (r *renderer) renderState(info strata.StateInfo, depth int) {
	switch info.Kind {
	case strata.KindComposite:
		r.line(depth, "subgraph %s {", r.clusters[info.Name])
		r.line(depth+1, "label=%q;", info.Name)
		r.line(depth+1, "style=rounded;")
		r.line(depth+1, "%s [shape=point, style=invis];", anchorID(info.Name))
		if info.Initial != "" {
			dot := "__init_" + sanitize(info.Name)
			r.line(depth+1, "%s [shape=point, width=0.12];", dot)
			r.line(depth+1, "%s -> %s%s;", dot, r.endpoint(info.Initial), r.headAttr(info.Initial))
		}
		for _, child := range info.Children {
			ci, _ := r.g.Describe(child)
			r.renderState(ci, depth+1)
		}
		r.line(depth, "}")
	case strata.KindOrthogonal:
		r.line(depth, "subgraph %s {", r.clusters[info.Name])
		r.line(depth+1, "label=%q;", info.Name)
		r.line(depth+1, "style=rounded;")
		r.line(depth+1, "%s [shape=point, style=invis];", anchorID(info.Name))
		for _, region := range info.Regions {
			r.next++
			r.line(depth+1, "subgraph cluster_%d {", r.next)
			r.line(depth+2, "label=%q;", region.Name)
			r.line(depth+2, "style=dashed;")
			if region.Initial != "" {
				dot := "__init_" + sanitize(info.Name) + "_" + sanitize(region.Name)
				r.line(depth+2, "%s [shape=point, width=0.12];", dot)
				r.line(depth+2, "%s -> %s%s;", dot, r.endpoint(region.Initial), r.headAttr(region.Initial))
			}
			for _, child := range region.Children {
				ci, _ := r.g.Describe(child)
				r.renderState(ci, depth+2)
			}
			r.line(depth+1, "}")
		}
		r.line(depth, "}")
	case strata.KindFinal:
		r.line(depth, "%s [label=%q, shape=doublecircle, style=solid, width=0.3];",
			nodeID(info.Name), info.Name)
	case strata.KindHistory:
		label := "H"
		if info.History == strata.HistoryDeep {
			label = "H*"
		}
		r.line(depth, "%s [label=%q, shape=circle, style=solid, width=0.3];",
			nodeID(info.Name), label)
	default:
		r.line(depth, "%s [label=%q];", nodeID(info.Name), info.Name)
	}
}

func (r *renderer) renderTransition(t strata.TransitionInfo) {
	label := t.Event
	if t.Guarded {
		label += " [guard]"
	}
	if t.Kind == strata.Internal {
		ep := r.endpoint(t.Source)
		r.line(1, "%s -> %s [label=%q, style=dotted];", ep, ep, label)
		return
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if t.Kind == strata.Local {
		attrs = append(attrs, "style=dashed")
	}
	if c, ok := r.clusters[t.Source]; ok {
		attrs = append(attrs, "ltail="+c)
	}
	if c, ok := r.clusters[t.Target]; ok {
		attrs = append(attrs, "lhead="+c)
	}
	r.line(1, "%s -> %s [%s];", r.endpoint(t.Source), r.endpoint(t.Target), strings.Join(attrs, ", "))
}

// endpoint returns the node id edges attach to: the state's own node, or the
// invisible anchor of its cluster
func (r *renderer) endpoint(name string) string {
	if _, ok := r.clusters[name]; ok {
		return anchorID(name)
	}
	return nodeID(name)
}

func (r *renderer) headAttr(target string) string {
	if c, ok := r.clusters[target]; ok {
		return " [lhead=" + c + "]"
	}
	return ""
}

func nodeID(name string) string {
	return sanitize(name)
}

func anchorID(name string) string {
	return "__anchor_" + sanitize(name)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
