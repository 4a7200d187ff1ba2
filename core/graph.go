package core

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mountainsensing/msfetch/state"
)

type EdgeStyle int

const (
	StyleNeighbour EdgeStyle = iota
	StyleRoute
)

func (s EdgeStyle) String() string {
	if s == StyleRoute {
		return "route"
	}
	return "neighbour"
}

func (s EdgeStyle) attrs() string {
	if s == StyleRoute {
		return ` [color="red"]`
	}
	return ""
}

type Edge struct {
	A, B  string
	Style EdgeStyle
}

// Graph is an undirected graph with at most one edge per pair of labels.
// A route between two nodes also makes them neighbours, so a route edge
// replaces a neighbour edge but never the other way around.
type Graph struct {
	Name  string
	edges map[state.Pair[string, string]]EdgeStyle
	order []state.Pair[string, string]
}

func NewGraph(name string) *Graph {
	return &Graph{
		Name:  name,
		edges: make(map[state.Pair[string, string]]EdgeStyle),
	}
}

func (g *Graph) AddNeighbour(a, b string) {
	g.add(a, b, StyleNeighbour)
}

func (g *Graph) AddRoute(a, b string) {
	g.add(a, b, StyleRoute)
}

func (g *Graph) add(a, b string, style EdgeStyle) {
	key := state.MakeSortedPair(a, b)
	cur, ok := g.edges[key]
	if !ok {
		g.order = append(g.order, key)
		g.edges[key] = style
		return
	}
	if style > cur {
		g.edges[key] = style
	}
}

func (g *Graph) Len() int {
	return len(g.order)
}

// Edges returns every edge in the order its pair was first added.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.order))
	for _, key := range g.order {
		edges = append(edges, Edge{A: key.V1, B: key.V2, Style: g.edges[key]})
	}
	return edges
}

// WriteDOT writes the graph in graphviz DOT syntax.
func (g *Graph) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "strict graph %s {\n", graphID(g.Name))
	for _, e := range g.Edges() {
		fmt.Fprintf(bw, "\t%s -- %s%s;\n", quoteID(e.A), quoteID(e.B), e.Style.attrs())
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

var bareID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func graphID(s string) string {
	if bareID.MatchString(s) {
		return s
	}
	return quoteID(s)
}

var idEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteID(s string) string {
	return `"` + idEscaper.Replace(s) + `"`
}
