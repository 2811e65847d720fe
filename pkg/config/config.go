package config

import (
	"fmt"
	"path/filepath"

	"github.com/cuemby/shipyard/pkg/types"
)

// RunConfig is the CLI-level configuration for one shipyard invocation,
// populated once from Cobra flags before anything in the core runs.
type RunConfig struct {
	EnvironmentFile       string
	CredentialsFile       string
	CredentialsPassphrase string

	Concurrency    int
	RefreshImages  bool
	Reuse          bool // restart: plain stop+start instead of replace, when the image is unchanged
	IgnoreOrder    bool
	Only           bool // restrict strictly to named arguments, no dependency expansion
	ExpandServices bool // allow a destructive action's service-name args to expand to instances
	All            bool // same gate as ExpandServices, applied to every container in the environment
	DryRun         bool

	ContainerFilter string // glob, matched against container names
	ShipFilter      string // glob, matched against ship names

	LogFollow bool
	LogTail   int

	LogLevel string
	LogJSON  bool
}

// destructive actions require ExpandServices or All before a bare
// service-name argument is allowed to expand to every one of its
// instances, so an operator cannot accidentally stop/kill/clean an
// entire service by typo.
var destructive = map[types.Action]bool{
	types.ActionStop:    true,
	types.ActionKill:    true,
	types.ActionClean:   true,
	types.ActionRestart: true,
}

// ResolveTargets turns the CLI arguments (container or service names)
// into the container-name list pkg/play.Run expects, applying the
// container/ship glob filters and the destructive-action expansion gate.
func ResolveTargets(env *types.Environment, action types.Action, args []string, cfg RunConfig) ([]string, error) {
	names := args
	if cfg.All {
		names = allServiceNames(env)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("config: no targets named and --all not set")
	}

	var containers []string
	for _, name := range names {
		if svc, ok := env.Services[name]; ok {
			if destructive[action] && !cfg.ExpandServices && !cfg.All {
				return nil, fmt.Errorf("config: %q is a service; pass --expand-services or --all to %s every instance", name, action)
			}
			for _, c := range svc.Instances {
				containers = append(containers, c.Name)
			}
			continue
		}
		if c := findContainer(env, name); c != nil {
			containers = append(containers, c.Name)
			continue
		}
		return nil, fmt.Errorf("config: %q is not a known service or container", name)
	}

	return applyFilters(env, containers, cfg)
}

func allServiceNames(env *types.Environment) []string {
	var names []string
	for name, svc := range env.Services {
		if svc.Omit {
			continue
		}
		names = append(names, name)
	}
	return names
}

// FindContainer looks up a container by name across every service,
// returning nil if none matches.
func FindContainer(env *types.Environment, name string) *types.Container {
	return findContainer(env, name)
}

func findContainer(env *types.Environment, name string) *types.Container {
	for _, svc := range env.Services {
		for _, c := range svc.Instances {
			if c.Name == name {
				return c
			}
		}
	}
	return nil
}

func applyFilters(env *types.Environment, containers []string, cfg RunConfig) ([]string, error) {
	if cfg.ContainerFilter == "" && cfg.ShipFilter == "" {
		return containers, nil
	}

	byName := make(map[string]*types.Container)
	for _, svc := range env.Services {
		for _, c := range svc.Instances {
			byName[c.Name] = c
		}
	}

	var out []string
	for _, name := range containers {
		c := byName[name]
		if cfg.ContainerFilter != "" {
			match, err := filepath.Match(cfg.ContainerFilter, name)
			if err != nil {
				return nil, fmt.Errorf("config: invalid container filter %q: %w", cfg.ContainerFilter, err)
			}
			if !match {
				continue
			}
		}
		if cfg.ShipFilter != "" && c != nil {
			match, err := filepath.Match(cfg.ShipFilter, c.Ship)
			if err != nil {
				return nil, fmt.Errorf("config: invalid ship filter %q: %w", cfg.ShipFilter, err)
			}
			if !match {
				continue
			}
		}
		out = append(out, name)
	}
	return out, nil
}
