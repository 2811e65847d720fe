package graph

import (
	"sort"

	"github.com/cuemby/shipyard/pkg/types"
)

// Order computes the ordered layers pkg/play submits to its worker pool
// for one action over targets. withDependencies transitively pulls in
// every hard dependency of targets (via requires-closure, independent of
// direction); ignoreOrder collapses the whole selection into one layer.
func (g *Graph) Order(targets []string, action types.Action, withDependencies bool, ignoreOrder bool) ([][]string, error) {
	selected := g.selection(targets, withDependencies)

	if ignoreOrder {
		return [][]string{sortedNames(g, selected)}, nil
	}

	direction := types.OrderingDirection(action)
	edges := g.hard
	if direction == types.DirectionReverse {
		edges = g.reverseHard
	}

	depth := make(map[string]int)
	var compute func(name string) int
	compute = func(name string) int {
		if d, ok := depth[name]; ok {
			return d
		}
		max := -1
		for _, dep := range edges[name] {
			if !selected[dep] {
				continue
			}
			d := compute(dep)
			if d > max {
				max = d
			}
		}
		depth[name] = max + 1
		return depth[name]
	}

	maxDepth := 0
	for name := range selected {
		d := compute(name)
		if d > maxDepth {
			maxDepth = d
		}
	}

	layers := make([][]string, maxDepth+1)
	for name := range selected {
		d := depth[name]
		layers[d] = append(layers[d], name)
	}
	for i := range layers {
		sortLayer(g, layers[i])
	}
	return layers, nil
}

// selection expands targets with their transitive hard dependencies when
// withDependencies is set; otherwise it restricts the work set strictly
// to the named targets.
func (g *Graph) selection(targets []string, withDependencies bool) map[string]bool {
	selected := make(map[string]bool, len(targets))
	for _, t := range targets {
		selected[t] = true
	}
	if !withDependencies {
		return selected
	}

	var visit func(name string)
	visit = func(name string) {
		for _, dep := range g.hard[name] {
			if !selected[dep] {
				selected[dep] = true
				visit(dep)
			}
		}
	}
	for _, t := range targets {
		visit(t)
	}
	return selected
}

func sortedNames(g *Graph, selected map[string]bool) []string {
	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sortLayer(g, names)
	return names
}

// sortLayer sorts container names within a layer by (service name,
// container name) for deterministic output; it carries no execution
// ordering guarantee.
func sortLayer(g *Graph, names []string) {
	sort.Slice(names, func(i, j int) bool {
		si, sj := g.containerService[names[i]], g.containerService[names[j]]
		if si != sj {
			return si < sj
		}
		return names[i] < names[j]
	})
}
