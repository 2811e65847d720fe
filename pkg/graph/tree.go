package graph

import (
	"fmt"
	"sort"
	"strings"
)

// RenderTree prints svc's hard-dependency tree as indented text: each
// line is one service, children are its requires (or, when reverse is
// set, the services that require it). pkg/progress wraps this in a
// bordered go-pretty panel for terminal output; RenderTree itself stays
// dependency-free so it is easy to unit test.
func (g *Graph) RenderTree(svc string, reverse bool) string {
	serviceRequires := make(map[string][]string)
	serviceRequiredBy := make(map[string][]string)

	for c, deps := range g.hard {
		cs := g.containerService[c]
		for _, d := range deps {
			ds := g.containerService[d]
			if cs == "" || ds == "" || cs == ds {
				continue
			}
			serviceRequires[cs] = appendUnique(serviceRequires[cs], ds)
			serviceRequiredBy[ds] = appendUnique(serviceRequiredBy[ds], cs)
		}
	}

	edges := serviceRequires
	if reverse {
		edges = serviceRequiredBy
	}

	var b strings.Builder
	visited := make(map[string]bool)
	renderNode(&b, edges, svc, 0, visited)
	return b.String()
}

func renderNode(b *strings.Builder, edges map[string][]string, name string, depth int, visited map[string]bool) {
	fmt.Fprintf(b, "%s%s\n", strings.Repeat("  ", depth), name)
	if visited[name] {
		return
	}
	visited[name] = true

	children := append([]string{}, edges[name]...)
	sort.Strings(children)
	for _, child := range children {
		renderNode(b, edges, child, depth+1, visited)
	}
}

func appendUnique(list []string, item string) []string {
	for _, x := range list {
		if x == item {
			return list
		}
	}
	return append(list, item)
}
