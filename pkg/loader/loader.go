package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/shipyard/pkg/graph"
	"github.com/cuemby/shipyard/pkg/shipyarderr"
	"github.com/cuemby/shipyard/pkg/types"
)

const (
	schemaV1 = 1
	schemaV2 = 2
)

// Load reads path, renders it as a template, parses the resulting YAML,
// normalizes it against its declared schema version, builds the
// in-memory Environment, and validates it with pkg/graph.Build. Any
// failure at any of these steps is a shipyarderr.KindConfig error,
// fatal before any action runs.
func Load(path string, processEnv map[string]string) (*types.Environment, *graph.Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, shipyarderr.Wrap(shipyarderr.KindConfig, fmt.Sprintf("read environment document %s", path), err)
	}

	rendered, err := render(raw, processEnv, filepath.Dir(path))
	if err != nil {
		return nil, nil, shipyarderr.Wrap(shipyarderr.KindConfig, "render environment document", err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(rendered, &doc); err != nil {
		return nil, nil, shipyarderr.Wrap(shipyarderr.KindConfig, "parse environment document", err)
	}

	if doc.Schema != schemaV1 && doc.Schema != schemaV2 {
		return nil, nil, shipyarderr.New(shipyarderr.KindConfig, fmt.Sprintf("unknown __shipyard.schema %d, supported: %d, %d", doc.Schema, schemaV1, schemaV2))
	}

	env, err := build(&doc, filepath.Dir(path))
	if err != nil {
		return nil, nil, shipyarderr.Wrap(shipyarderr.KindConfig, "build environment", err)
	}

	g, err := graph.Build(env)
	if err != nil {
		return nil, nil, shipyarderr.Wrap(shipyarderr.KindConfig, "validate environment", err)
	}

	return env, g, nil
}

// ValidationReport collects every invariant violation found while
// checking an environment document, instead of stopping at the first
// one the way Load does. A report with no Issues is a clean document.
type ValidationReport struct {
	Path   string
	Issues []error
}

// OK reports whether the document validated with no issues.
func (r *ValidationReport) OK() bool { return len(r.Issues) == 0 }

// Validate renders and parses path exactly as Load does, but instead of
// returning on the first ship, service or instance that fails to build,
// it collects every one of them, plus the structural problems
// pkg/graph.Build finds once the environment is otherwise buildable,
// into a single ValidationReport. It only returns a non-nil error when
// the document can't be read, rendered or parsed at all, since nothing
// meaningful can be validated past that point.
func Validate(path string, processEnv map[string]string) (*ValidationReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, shipyarderr.Wrap(shipyarderr.KindConfig, fmt.Sprintf("read environment document %s", path), err)
	}

	rendered, err := render(raw, processEnv, filepath.Dir(path))
	if err != nil {
		return nil, shipyarderr.Wrap(shipyarderr.KindConfig, "render environment document", err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(rendered, &doc); err != nil {
		return nil, shipyarderr.Wrap(shipyarderr.KindConfig, "parse environment document", err)
	}

	report := &ValidationReport{Path: path}

	if doc.Schema != schemaV1 && doc.Schema != schemaV2 {
		report.Issues = append(report.Issues, shipyarderr.New(shipyarderr.KindConfig,
			fmt.Sprintf("unknown __shipyard.schema %d, supported: %d, %d", doc.Schema, schemaV1, schemaV2)))
		return report, nil
	}

	env, issues := buildCollecting(&doc, filepath.Dir(path))
	report.Issues = append(report.Issues, issues...)

	if report.OK() {
		if _, err := graph.Build(env); err != nil {
			report.Issues = append(report.Issues, err)
		}
	}

	return report, nil
}

// buildCollecting is build's non-fail-fast sibling: it keeps going past
// a ship's or service's error so Validate can report every problem a
// document has in one pass, rather than just the first.
func buildCollecting(doc *rawDocument, baseDir string) (*types.Environment, []error) {
	env := &types.Environment{
		Name:       doc.Name,
		Ships:      make(map[string]*types.Ship, len(doc.Ships)),
		Registries: make(map[string]*types.Registry, len(doc.Registries)),
		Services:   make(map[string]*types.Service, len(doc.Services)),
	}
	var issues []error

	for name, r := range doc.Registries {
		env.Registries[name] = buildRegistry(r)
	}

	for name, r := range doc.Ships {
		merged, err := mergeShip(doc.ShipDefaults, r)
		if err != nil {
			issues = append(issues, shipyarderr.Wrap(shipyarderr.KindConfig, fmt.Sprintf("ship %q: merging ship_defaults", name), err))
			continue
		}
		ship, err := buildShip(name, merged)
		if err != nil {
			issues = append(issues, shipyarderr.Wrap(shipyarderr.KindConfig, fmt.Sprintf("ship %q", name), err))
			continue
		}
		env.Ships[name] = ship
	}

	for name, r := range doc.Services {
		svc, err := buildService(name, r, doc.Schema, baseDir)
		if err != nil {
			issues = append(issues, shipyarderr.Wrap(shipyarderr.KindConfig, fmt.Sprintf("service %q", name), err))
			continue
		}
		env.Services[name] = svc
	}

	return env, issues
}

func build(doc *rawDocument, baseDir string) (*types.Environment, error) {
	env := &types.Environment{
		Name:       doc.Name,
		Ships:      make(map[string]*types.Ship, len(doc.Ships)),
		Registries: make(map[string]*types.Registry, len(doc.Registries)),
		Services:   make(map[string]*types.Service, len(doc.Services)),
	}

	for name, r := range doc.Registries {
		env.Registries[name] = buildRegistry(r)
	}

	for name, r := range doc.Ships {
		merged, err := mergeShip(doc.ShipDefaults, r)
		if err != nil {
			return nil, shipyarderr.Wrap(shipyarderr.KindConfig, fmt.Sprintf("ship %q: merging ship_defaults", name), err)
		}
		ship, err := buildShip(name, merged)
		if err != nil {
			return nil, err
		}
		env.Ships[name] = ship
	}

	for name, r := range doc.Services {
		svc, err := buildService(name, r, doc.Schema, baseDir)
		if err != nil {
			return nil, err
		}
		env.Services[name] = svc
	}

	return env, nil
}

func buildRegistry(r rawRegistry) *types.Registry {
	reg := &types.Registry{URL: r.URL, Username: r.Username, Password: r.Password, Email: r.Email}
	if r.PullRetry != nil {
		reg.PullRetry = &types.RetryPolicy{MaxAttempts: r.PullRetry.MaxAttempts, RetryOn: r.PullRetry.RetryOn}
	}
	return reg
}

func buildShip(name string, r rawShip) (*types.Ship, error) {
	ship := &types.Ship{
		Name:       name,
		Address:    r.Address,
		Endpoint:   r.Endpoint,
		Transport:  types.TransportKind(r.Transport),
		Socket:     r.Socket,
		APIVersion: r.APIVersion,
		Timeout:    parseDuration(r.Timeout, 30_000_000_000), // 30s default
	}
	if r.SSH != nil {
		ship.SSH = &types.SSHConfig{User: r.SSH.User, Port: r.SSH.Port, PrivateKey: r.SSH.PrivateKey}
	}
	if r.TLS != nil {
		ship.TLS = &types.TLSConfig{CAFile: r.TLS.CAFile, CertFile: r.TLS.CertFile, KeyFile: r.TLS.KeyFile, Verify: r.TLS.Verify}
	}
	if ship.Transport == "" {
		ship.Transport = types.TransportUnix
	}
	return ship, nil
}

func buildService(name string, r rawService, schema int, baseDir string) (*types.Service, error) {
	env, envFiles, err := mergeEnvFiles(r.Env, r.EnvFiles, baseDir)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", name, err)
	}

	svc := &types.Service{
		Name:      name,
		Image:     r.Image,
		Env:       env,
		EnvFiles:  envFiles,
		Requires:  r.Requires,
		WantsInfo: r.WantsInfo,
		Omit:      r.Omit,
	}

	ports, err := buildPorts(r.Ports)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", name, err)
	}
	svc.Ports = ports

	checks, err := buildChecks(r.LifecycleChecks)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", name, err)
	}
	svc.LifecycleChecks = checks

	for instName, inst := range r.Instances {
		c, err := buildContainer(instName, name, svc, inst, schema)
		if err != nil {
			return nil, fmt.Errorf("service %s instance %s: %w", name, instName, err)
		}
		svc.Instances = append(svc.Instances, c)
	}

	return svc, nil
}

func buildContainer(instName, serviceName string, svc *types.Service, r rawInstance, schema int) (*types.Container, error) {
	image := r.Image
	if image == "" {
		image = svc.Image
	}

	ports := svc.Ports
	instPorts, err := buildPorts(r.Ports)
	if err != nil {
		return nil, err
	}
	if len(instPorts) > 0 {
		ports = mergePorts(svc.Ports, instPorts)
	}

	volumes := make([]types.VolumeBinding, 0, len(r.Volumes))
	for _, v := range r.Volumes {
		vb, err := parseVolume(v, schema)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, vb)
	}

	checks := svc.LifecycleChecks
	instChecks, err := buildChecks(r.LifecycleChecks)
	if err != nil {
		return nil, err
	}
	if len(instChecks) > 0 {
		checks = append(append([]types.LifecycleCheck{}, svc.LifecycleChecks...), instChecks...)
	}

	resources, err := buildResources(r.Resources)
	if err != nil {
		return nil, err
	}

	c := &types.Container{
		Name:             instName,
		Service:          serviceName,
		Ship:             r.Ship,
		Image:            image,
		Ports:            ports,
		Volumes:          volumes,
		ContainerVolumes: r.ContainerVolumes,
		VolumesFrom:      r.VolumesFrom,
		Env:              mergeEnv(svc.Env, r.Env),
		LifecycleChecks:  checks,
		Resources:        resources,
		NetworkMode:      r.NetworkMode,
		DNS:              r.DNS,
		RestartPolicy:    types.RestartPolicy{Name: r.RestartPolicy.Name, MaxRetryCount: r.RestartPolicy.MaxRetryCount},
		SecurityOpts:     r.SecurityOpts,
		Labels:           r.Labels,
		StopTimeout:      parseDuration(r.StopTimeout, 10_000_000_000), // 10s default
		Command:          r.Command,
		User:             r.User,
		Workdir:          r.Workdir,
		ReadOnlyRoot:     r.ReadOnlyRoot,
		ExtraHosts:       r.ExtraHosts,
		LogDriver:        r.LogDriver,
		LogOptions:       r.LogOptions,
		Links:            r.Links,
	}
	return c, nil
}

func mergeEnv(serviceEnv, instanceEnv map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(serviceEnv)+len(instanceEnv))
	for k, v := range serviceEnv {
		out[k] = v
	}
	for k, v := range instanceEnv {
		out[k] = v
	}
	return out
}

// mergeEnvFiles resolves files relative to baseDir, parses each as
// KEY=VALUE lines in declaration order, and overlays them beneath env so
// that a service's own env block always wins over its env files, per
// the documented "projected < env-files < service env < instance env"
// overlay order. It returns the merged env map and the files' resolved
// absolute paths, for Service.EnvFiles.
func mergeEnvFiles(env map[string]interface{}, files []string, baseDir string) (map[string]interface{}, []string, error) {
	if len(files) == 0 {
		return env, nil, nil
	}

	out := make(map[string]interface{})
	resolved := make([]string, 0, len(files))
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		resolved = append(resolved, path)

		vars, err := parseEnvFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("env_files %q: %w", f, err)
		}
		for k, v := range vars {
			out[k] = v
		}
	}
	for k, v := range env {
		out[k] = v
	}
	return out, resolved, nil
}

// parseEnvFile reads a Docker-style env file: one KEY=VALUE per line,
// blank lines and lines starting with "#" ignored. Quoting is not
// supported; values are taken verbatim after the first "=".
func parseEnvFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		idx := strings.IndexByte(trimmed, '=')
		if idx < 0 {
			return nil, fmt.Errorf("line %q: missing '='", trimmed)
		}
		out[trimmed[:idx]] = trimmed[idx+1:]
	}
	return out, nil
}

func buildPorts(raws []rawPort) ([]types.Port, error) {
	out := make([]types.Port, 0, len(raws))
	for _, p := range raws {
		ext, err := parsePortSpec(p.External)
		if err != nil {
			return nil, fmt.Errorf("port %s: external: %w", p.Name, err)
		}
		internal, err := parsePortSpec(p.Internal)
		if err != nil {
			return nil, fmt.Errorf("port %s: internal: %w", p.Name, err)
		}
		protocol := p.Protocol
		if protocol == "" {
			protocol = "tcp"
		}
		out = append(out, types.Port{Name: p.Name, External: ext, Internal: internal, Protocol: protocol})
	}
	return out, nil
}

// mergePorts overlays instance-declared ports onto service-declared
// ports by name, instance wins, matching the env merge's last-wins rule.
func mergePorts(base, overrides []types.Port) []types.Port {
	out := make([]types.Port, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, p := range overrides {
		seen[p.Name] = true
	}
	for _, p := range base {
		if !seen[p.Name] {
			out = append(out, p)
		}
	}
	out = append(out, overrides...)
	return out
}

// parsePortSpec parses a "bind:port" or bare "port"/"port-range" spec.
func parsePortSpec(s string) (types.PortSpec, error) {
	if s == "" {
		return types.PortSpec{}, nil
	}
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return types.PortSpec{Port: s}, nil
	}
	return types.PortSpec{Bind: s[:idx], Port: s[idx+1:]}, nil
}

func buildChecks(raws []rawCheck) ([]types.LifecycleCheck, error) {
	out := make([]types.LifecycleCheck, 0, len(raws))
	for _, r := range raws {
		if r.Slot != "running" && r.Slot != "stopped" {
			return nil, fmt.Errorf("lifecycle check: invalid slot %q, want running or stopped", r.Slot)
		}
		out = append(out, types.LifecycleCheck{
			Slot:       r.Slot,
			Type:       types.CheckType(r.Type),
			Host:       r.Host,
			Port:       r.Port,
			Scheme:     r.Scheme,
			Method:     r.Method,
			Path:       r.Path,
			MatchRegex: r.MatchRegex,
			Command:    r.Command,
			Seconds:    r.Seconds,
			MaxWait:    parseDuration(r.MaxWait, 0),
			Attempts:   r.Attempts,
		})
	}
	return out, nil
}

func buildResources(r rawResources) (types.ResourceLimits, error) {
	mem, err := types.ParseMemory(r.Memory)
	if err != nil {
		return types.ResourceLimits{}, fmt.Errorf("resources: memory: %w", err)
	}
	swap, err := types.ParseMemory(r.Swap)
	if err != nil {
		return types.ResourceLimits{}, fmt.Errorf("resources: swap: %w", err)
	}
	ulimits := make([]types.Ulimit, 0, len(r.Ulimits))
	for _, u := range r.Ulimits {
		ulimits = append(ulimits, types.Ulimit{Name: u.Name, Soft: u.Soft, Hard: u.Hard})
	}
	return types.ResourceLimits{MemoryBytes: mem, SwapBytes: swap, CPUShares: r.CPUShares, Ulimits: ulimits}, nil
}

// parseVolume normalizes a volume binding string against the document's
// declared schema: v1 keys are "container:host[:ro]", v2 keys are
// "host:container[:ro]".
func parseVolume(s string, schema int) (types.VolumeBinding, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return types.VolumeBinding{}, fmt.Errorf("volume %q: expected at least two colon-separated fields", s)
	}

	readOnly := false
	if len(parts) == 3 {
		switch parts[2] {
		case "ro":
			readOnly = true
		case "rw", "":
		default:
			return types.VolumeBinding{}, fmt.Errorf("volume %q: unknown mode %q", s, parts[2])
		}
	}

	left, right := parts[0], parts[1]
	var source, target string
	switch schema {
	case schemaV1:
		target, source = left, right
	default: // schemaV2
		source, target = left, right
	}

	return types.VolumeBinding{Source: source, Target: target, ReadOnly: readOnly}, nil
}

// mergeShip overlays a ship's own document fields onto ship_defaults,
// with the ship's own non-zero fields winning field-by-field.
func mergeShip(defaults, override rawShip) (rawShip, error) {
	merged := defaults
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return rawShip{}, err
	}
	return merged, nil
}

// ProcessEnv flattens a process-environment slice (os.Environ()'s shape)
// into the map the template renderer expects, keeping ambient
// environment reads at the CLI boundary rather than inside the loader.
func ProcessEnv(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			out[kv[:idx]] = kv[idx+1:]
		}
	}
	return out
}
