package graph

import (
	"fmt"
	"sort"

	"github.com/cuemby/shipyard/pkg/shipyarderr"
	"github.com/cuemby/shipyard/pkg/types"
)

// Graph is the container-level dependency graph derived from a loaded
// environment's hard (requires, volumes_from) and soft (wants_info)
// service-level declarations.
type Graph struct {
	env *types.Environment

	// hard maps a container name to the set of container names it
	// hard-depends on (must run before it, in forward order).
	hard map[string][]string
	// reverseHard is hard inverted: container name to the containers
	// that depend on it.
	reverseHard map[string][]string
	// soft maps a container name to container names visible to it for
	// environment-variable projection only.
	soft map[string][]string

	containerService map[string]string // container name -> service name
}

// Build validates an environment's invariants (name resolution, acyclic
// hard-dependency graph) and returns the derived Graph, or a
// shipyarderr.KindConfig error naming the first problem found.
func Build(env *types.Environment) (*Graph, error) {
	g := &Graph{
		env:              env,
		hard:             make(map[string][]string),
		reverseHard:      make(map[string][]string),
		soft:             make(map[string][]string),
		containerService: make(map[string]string),
	}

	for svcName, svc := range env.Services {
		for _, c := range svc.Instances {
			if existing, ok := g.containerService[c.Name]; ok {
				return nil, shipyarderr.New(shipyarderr.KindConfig,
					fmt.Sprintf("container name %q used by both service %q and %q", c.Name, existing, svcName))
			}
			g.containerService[c.Name] = svcName
		}
	}

	for svcName, svc := range env.Services {
		for _, dep := range svc.Requires {
			depSvc, ok := env.Services[dep]
			if !ok {
				return nil, shipyarderr.New(shipyarderr.KindConfig,
					fmt.Sprintf("service %q requires undefined service %q", svcName, dep))
			}
			for _, c := range svc.Instances {
				for _, d := range depSvc.Instances {
					g.hard[c.Name] = append(g.hard[c.Name], d.Name)
					g.reverseHard[d.Name] = append(g.reverseHard[d.Name], c.Name)
				}
			}
		}
		for _, dep := range svc.WantsInfo {
			depSvc, ok := env.Services[dep]
			if !ok {
				return nil, shipyarderr.New(shipyarderr.KindConfig,
					fmt.Sprintf("service %q wants_info undefined service %q", svcName, dep))
			}
			for _, c := range svc.Instances {
				for _, d := range depSvc.Instances {
					g.soft[c.Name] = append(g.soft[c.Name], d.Name)
				}
			}
		}
	}

	for _, svc := range env.Services {
		for _, c := range svc.Instances {
			if _, ok := env.Ships[c.Ship]; !ok {
				return nil, shipyarderr.New(shipyarderr.KindConfig,
					fmt.Sprintf("container %q targets undefined ship %q", c.Name, c.Ship))
			}
			for _, peerName := range c.VolumesFrom {
				peerSvc, ok := g.containerService[peerName]
				if !ok {
					return nil, shipyarderr.New(shipyarderr.KindConfig,
						fmt.Sprintf("container %q has volumes_from undefined container %q", c.Name, peerName))
				}
				peer := findInstance(env.Services[peerSvc], peerName)
				if peer.Ship != c.Ship {
					return nil, shipyarderr.New(shipyarderr.KindConfig,
						fmt.Sprintf("container %q has volumes_from %q on a different ship (%q vs %q)",
							c.Name, peerName, c.Ship, peer.Ship))
				}
				g.hard[c.Name] = append(g.hard[c.Name], peerName)
				g.reverseHard[peerName] = append(g.reverseHard[peerName], c.Name)
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, shipyarderr.New(shipyarderr.KindConfig,
			fmt.Sprintf("dependency cycle detected: %s", formatCycle(cycle)))
	}

	return g, nil
}

func formatCycle(cycle []string) string {
	s := ""
	for i, name := range cycle {
		if i > 0 {
			s += " -> "
		}
		s += name
	}
	return s
}

// findCycle runs DFS over the hard-edge set and returns the first cycle
// found as a path of container names, or nil if the graph is acyclic.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var stack []string

	var visit func(node string) []string
	visit = func(node string) []string {
		color[node] = gray
		stack = append(stack, node)

		for _, dep := range g.hard[node] {
			switch color[dep] {
			case gray:
				// found a cycle; slice the stack back to dep's first occurrence
				for i, n := range stack {
					if n == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
				return []string{dep, node, dep}
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
		return nil
	}

	names := make([]string, 0, len(g.containerService))
	for name := range g.containerService {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if color[name] == white {
			if cyc := visit(name); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

func findInstance(s *types.Service, name string) *types.Container {
	for _, c := range s.Instances {
		if c.Name == name {
			return c
		}
	}
	return nil
}
