package discovery

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/shipyard/pkg/types"
)

var invalidChar = regexp.MustCompile(`[^A-Za-z0-9_]`)

// normalizeName uppercases name and maps every byte that is not
// [A-Za-z0-9_] to an underscore, for use in a variable name. The
// original name is never altered inside a variable's value.
func normalizeName(name string) string {
	return invalidChar.ReplaceAllString(strings.ToUpper(name), "_")
}

// NormalizeName exports the same variable-name transform Project uses,
// so cmd/shipyard-helper can reconstruct a peer's variable names from
// its service and instance names without duplicating the rule.
func NormalizeName(name string) string {
	return normalizeName(name)
}

// PortResolver resolves a named port's external and internal numbers for
// a peer container. It is optional: wherever no resolver is supplied, or
// it reports !ok for a port, Project falls back to that port's statically
// declared numbers.
type PortResolver interface {
	ResolvePort(containerName, portName string) (external int, internal int, ok bool)
}

// Project computes the base (pre-overlay) environment for container c
// within env. resolver may be nil, in which case only statically
// declared port numbers are visible.
func Project(env *types.Environment, c *types.Container, resolver PortResolver) map[string]string {
	out := make(map[string]string)

	registry, repo, tag := splitImage(c.Image)
	_ = registry
	out["DOCKER_IMAGE"] = repo
	out["DOCKER_TAG"] = tag
	out["SERVICE_NAME"] = c.Service
	out["CONTAINER_NAME"] = c.Name

	if ship, ok := env.Ships[c.Ship]; ok {
		out["CONTAINER_HOST_ADDRESS"] = ship.Address
	}

	svc := env.Services[c.Service]
	visibleServices := map[string]bool{c.Service: true}
	for _, dep := range svc.Requires {
		visibleServices[dep] = true
	}
	for _, dep := range svc.WantsInfo {
		visibleServices[dep] = true
	}

	for svcName := range visibleServices {
		depSvc, ok := env.Services[svcName]
		if !ok {
			continue
		}
		instanceNames := make([]string, 0, len(depSvc.Instances))
		for _, inst := range depSvc.Instances {
			instanceNames = append(instanceNames, inst.Name)
		}
		sort.Strings(instanceNames)
		out[normalizeName(svcName)+"_INSTANCES"] = strings.Join(instanceNames, ",")

		for _, d := range depSvc.Instances {
			projectPeer(out, env, d, resolver)
		}
	}

	return out
}

func projectPeer(out map[string]string, env *types.Environment, d *types.Container, resolver PortResolver) {
	prefix := normalizeName(d.Service) + "_" + normalizeName(d.Name)

	if ship, ok := env.Ships[d.Ship]; ok {
		out[prefix+"_HOST"] = ship.Address
	}

	for _, p := range d.Ports {
		if p.Name == "" {
			continue
		}
		external, internal, ok := resolvePort(d.Name, p, resolver)
		if !ok {
			continue
		}
		portPrefix := prefix + "_" + normalizeName(p.Name)
		out[portPrefix+"_PORT"] = strconv.Itoa(external)
		out[portPrefix+"_INTERNAL_PORT"] = strconv.Itoa(internal)
	}
}

func resolvePort(containerName string, p types.Port, resolver PortResolver) (external int, internal int, ok bool) {
	if resolver != nil {
		if e, i, ok := resolver.ResolvePort(containerName, p.Name); ok {
			return e, i, true
		}
	}
	e, eOK := strconv.Atoi(p.External.Port)
	i, iOK := strconv.Atoi(p.Internal.Port)
	if eOK == nil && iOK == nil {
		return e, i, true
	}
	return 0, 0, false
}

// splitImage parses "registry.example.com/ns/repo:tag" into its
// registry FQDN (if any), repository and tag. Absence of a tag yields
// "latest", matching Docker's own default.
func splitImage(image string) (registry, repository, tag string) {
	repository = image
	if idx := strings.LastIndex(repository, ":"); idx > strings.LastIndex(repository, "/") {
		tag = repository[idx+1:]
		repository = repository[:idx]
	} else {
		tag = "latest"
	}

	parts := strings.SplitN(repository, "/", 2)
	if len(parts) == 2 && (strings.Contains(parts[0], ".") || strings.Contains(parts[0], ":")) {
		registry = parts[0]
	}
	return registry, repository, tag
}

// FlattenValue renders a loader-parsed env value to the string form
// shipyard injects. List values are deep-flattened to a space-separated
// string so YAML composition (anchors, merges) can build up a value as
// a sequence without the author joining it by hand.
func FlattenValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FlattenValue(item))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// Overlay merges layers in order (later layers win) and flattens every
// value to a string, producing the final environment map for a
// container. Layer order must be: projected < env-files < service env <
// instance env, per the "env wins" overlay policy.
func Overlay(layers ...map[string]interface{}) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = FlattenValue(v)
		}
	}
	return out
}

// AsLayer widens a map[string]string (such as Project's output, or a
// parsed env-file) into the map[string]interface{} shape Overlay expects.
func AsLayer(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
