package container

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/shipyard/pkg/discovery"
	"github.com/cuemby/shipyard/pkg/docker"
	"github.com/cuemby/shipyard/pkg/lifecycle"
	"github.com/cuemby/shipyard/pkg/log"
	"github.com/cuemby/shipyard/pkg/metrics"
	"github.com/cuemby/shipyard/pkg/shipyarderr"
	"github.com/cuemby/shipyard/pkg/types"
)

const defaultStopTimeout = 10 * time.Second

// Manager carries out actions against a single container by talking to
// its ship's Docker adapter and running its lifecycle checks.
type Manager struct {
	Adapter       docker.Adapter
	Env           *types.Environment
	RefreshImages bool
	Reuse         bool // restart: stop+start in place rather than replace, when the image is unchanged
	PortResolver  discovery.PortResolver
}

// Reconcile drives container c toward the target state action implies,
// returning the outcome recorded for a play. It is synchronous: by the
// time it returns, the action (or its no-op check) has fully resolved.
func (m *Manager) Reconcile(ctx context.Context, c *types.Container, action types.Action) types.Result {
	result := types.Result{Container: c.Name, Action: action, StartedAt: time.Now()}
	logger := log.WithContainer(c.Name)

	timer := metrics.NewTimer()
	metrics.ContainersScheduled.WithLabelValues(string(action)).Inc()

	var err error
	switch action {
	case types.ActionPull:
		err = m.pull(ctx, c)
	case types.ActionStart:
		err = m.start(ctx, c, &result)
	case types.ActionStop:
		err = m.stop(ctx, c, &result)
	case types.ActionKill:
		err = m.kill(ctx, c, &result)
	case types.ActionRestart:
		err = m.restart(ctx, c, &result)
	case types.ActionClean:
		err = m.clean(ctx, c, &result)
	case types.ActionStatus:
		err = m.status(ctx, c, &result)
	case types.ActionLogs:
		err = fmt.Errorf("logs is not a reconcile action, call Logs directly")
	default:
		err = shipyarderr.New(shipyarderr.KindConfig, fmt.Sprintf("unknown action %q", action))
	}

	result.EndedAt = time.Now()
	timer.ObserveDurationVec(metrics.ContainerActionDuration, string(action))

	if err != nil {
		result.Outcome = types.OutcomeFailed
		result.Reason = err.Error()
		kind, ok := shipyarderr.KindOf(err)
		if !ok {
			kind = shipyarderr.KindDaemon
		}
		metrics.ContainersFailed.WithLabelValues(string(action), string(kind)).Inc()
		logger.Error().Err(err).Str("action", string(action)).Msg("container action failed")
	}
	return result
}

func (m *Manager) pull(ctx context.Context, c *types.Container) error {
	return m.ensureImage(ctx, c)
}

func (m *Manager) start(ctx context.Context, c *types.Container, result *types.Result) error {
	obs, err := m.Adapter.Inspect(ctx, c.Ship, c.Name)
	if err != nil {
		return err
	}

	if obs.State == types.StateRunning {
		if m.runCheck(ctx, c, "running") {
			result.Outcome = types.OutcomeAlready
			return nil
		}
	}

	if err := m.ensureImage(ctx, c); err != nil {
		return err
	}

	if obs.State == types.StateAbsent {
		env := m.projectEnv(c)
		if _, err := m.Adapter.Create(ctx, c, env); err != nil {
			return err
		}
	}

	if obs.State != types.StateRunning {
		if err := m.Adapter.Start(ctx, c.Ship, c.Name); err != nil {
			return err
		}
	}

	if !m.runCheck(ctx, c, "running") {
		return shipyarderr.New(shipyarderr.KindLifecycleTimeout, fmt.Sprintf("container %q never passed its running check", c.Name))
	}

	result.Outcome = types.OutcomeDone
	return nil
}

func (m *Manager) stop(ctx context.Context, c *types.Container, result *types.Result) error {
	obs, err := m.Adapter.Inspect(ctx, c.Ship, c.Name)
	if err != nil {
		return err
	}
	if obs.State != types.StateRunning {
		result.Outcome = types.OutcomeAlready
		return nil
	}

	timeout := c.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	if err := m.Adapter.Stop(ctx, c.Ship, c.Name, timeout); err != nil {
		return err
	}

	if !m.runCheck(ctx, c, "stopped") {
		return shipyarderr.New(shipyarderr.KindLifecycleTimeout, fmt.Sprintf("container %q never passed its stopped check", c.Name))
	}

	result.Outcome = types.OutcomeDone
	return nil
}

func (m *Manager) kill(ctx context.Context, c *types.Container, result *types.Result) error {
	obs, err := m.Adapter.Inspect(ctx, c.Ship, c.Name)
	if err != nil {
		return err
	}
	if obs.State != types.StateRunning {
		result.Outcome = types.OutcomeAlready
		return nil
	}
	if err := m.Adapter.Kill(ctx, c.Ship, c.Name); err != nil {
		return err
	}
	result.Outcome = types.OutcomeDone
	return nil
}

// restart stops c and brings it back up. When m.Reuse is set and the
// running container was already created from c's target image, it is a
// plain stop+start on the same container: no pull, no remove, no
// create. Otherwise it is a full stop → remove → create → start, so a
// changed image always takes effect.
func (m *Manager) restart(ctx context.Context, c *types.Container, result *types.Result) error {
	obs, err := m.Adapter.Inspect(ctx, c.Ship, c.Name)
	if err != nil {
		return err
	}

	reuse := m.Reuse && obs.State != types.StateAbsent && obs.Image != "" && obs.Image == c.Image

	if obs.State == types.StateRunning {
		timeout := c.StopTimeout
		if timeout <= 0 {
			timeout = defaultStopTimeout
		}
		if err := m.Adapter.Stop(ctx, c.Ship, c.Name, timeout); err != nil {
			return err
		}
	}

	if reuse {
		if err := m.Adapter.Start(ctx, c.Ship, c.Name); err != nil {
			return err
		}
	} else {
		if err := m.ensureImage(ctx, c); err != nil {
			return err
		}
		if obs.State != types.StateAbsent {
			if err := m.Adapter.Remove(ctx, c.Ship, c.Name); err != nil {
				return err
			}
		}
		env := m.projectEnv(c)
		if _, err := m.Adapter.Create(ctx, c, env); err != nil {
			return err
		}
		if err := m.Adapter.Start(ctx, c.Ship, c.Name); err != nil {
			return err
		}
	}

	if !m.runCheck(ctx, c, "running") {
		return shipyarderr.New(shipyarderr.KindLifecycleTimeout, fmt.Sprintf("container %q never passed its running check", c.Name))
	}

	result.Outcome = types.OutcomeDone
	return nil
}

func (m *Manager) clean(ctx context.Context, c *types.Container, result *types.Result) error {
	obs, err := m.Adapter.Inspect(ctx, c.Ship, c.Name)
	if err != nil {
		return err
	}
	if obs.State == types.StateAbsent {
		result.Outcome = types.OutcomeAlready
		return nil
	}
	if obs.State == types.StateRunning {
		return shipyarderr.New(shipyarderr.KindState, fmt.Sprintf("container %q is running, stop it before clean", c.Name))
	}
	if err := m.Adapter.Remove(ctx, c.Ship, c.Name); err != nil {
		return err
	}
	result.Outcome = types.OutcomeDone
	return nil
}

func (m *Manager) status(ctx context.Context, c *types.Container, result *types.Result) error {
	_, err := m.Adapter.Inspect(ctx, c.Ship, c.Name)
	if err != nil {
		return err
	}
	result.Outcome = types.OutcomeDone
	return nil
}

// Logs streams c's daemon logs. It does not go through Reconcile since
// it never changes observed state and its result is a stream, not a
// types.Result.
func (m *Manager) Logs(ctx context.Context, c *types.Container, follow bool, tail int) (io.ReadCloser, error) {
	return m.Adapter.Logs(ctx, c.Ship, c.Name, follow, tail)
}

// ensureImage pulls c's image when RefreshImages is set or when c has no
// container on its ship yet. It does not inspect the ship's image cache:
// an existing container, whatever image it was created from, is taken to
// mean no pull is needed, so a changed image is only pulled when
// RefreshImages is set or the container is absent.
func (m *Manager) ensureImage(ctx context.Context, c *types.Container) error {
	if !m.RefreshImages {
		obs, err := m.Adapter.Inspect(ctx, c.Ship, c.Name)
		if err == nil && obs.State != types.StateAbsent {
			return nil
		}
	}
	reg := resolveRegistry(m.Env, c.Image)
	if err := m.Adapter.Pull(ctx, c.Ship, c.Image, reg); err != nil {
		return shipyarderr.Wrap(shipyarderr.KindImage, fmt.Sprintf("pulling image %q for %q", c.Image, c.Name), err)
	}
	return nil
}

// resolveRegistry matches image's host prefix against env's configured
// registries, exact host first, then FQDN fallback.
func resolveRegistry(env *types.Environment, image string) *types.Registry {
	if env == nil {
		return nil
	}
	host := image
	if idx := strings.Index(host, "/"); idx >= 0 {
		candidate := host[:idx]
		if strings.Contains(candidate, ".") || strings.Contains(candidate, ":") {
			host = candidate
		} else {
			return nil
		}
	} else {
		return nil
	}

	if reg, ok := env.Registries[host]; ok {
		return reg
	}
	for name, reg := range env.Registries {
		if strings.HasSuffix(host, "."+name) || strings.HasSuffix(name, "."+host) {
			return reg
		}
	}
	return nil
}

// projectEnv overlays, in order: the projected peer variables, the
// service's env (itself already layered on top of its env_files by the
// loader, per the "projected < env-files < service env < instance env"
// overlay order), then the instance's own env.
func (m *Manager) projectEnv(c *types.Container) map[string]string {
	svc := m.Env.Services[c.Service]
	projected := discovery.Project(m.Env, c, m.PortResolver)

	layers := []map[string]interface{}{discovery.AsLayer(projected)}
	if svc != nil {
		layers = append(layers, svc.Env)
	}
	layers = append(layers, c.Env)
	return discovery.Overlay(layers...)
}

// runCheck runs c's lifecycle check bound to slot ("running" or
// "stopped"). Absence of a declared "running" check means success is
// whatever the daemon already reported; absence of a "stopped" check
// is likewise always satisfied.
func (m *Manager) runCheck(ctx context.Context, c *types.Container, slot string) bool {
	var check *types.LifecycleCheck
	for i := range c.LifecycleChecks {
		if c.LifecycleChecks[i].Slot == slot {
			check = &c.LifecycleChecks[i]
			break
		}
	}
	if check == nil {
		return true
	}

	checker := m.buildChecker(c, check)
	if checker == nil {
		return true
	}

	budget := lifecycle.Budget{MaxWait: check.MaxWait, Attempts: check.Attempts}
	result := lifecycle.RunWithBudget(ctx, checker, budget)
	return result.Healthy
}

func (m *Manager) buildChecker(c *types.Container, check *types.LifecycleCheck) lifecycle.Checker {
	switch check.Type {
	case types.CheckTCP:
		host := check.Host
		if host == "" {
			if ship, ok := m.Env.Ships[c.Ship]; ok {
				host = ship.Address
			}
		}
		port := m.resolvePortLiteral(c, check.Port)
		return lifecycle.NewTCPChecker(host + ":" + port)

	case types.CheckHTTP:
		host := check.Host
		if host == "" {
			if ship, ok := m.Env.Ships[c.Ship]; ok {
				host = ship.Address
			}
		}
		scheme := check.Scheme
		if scheme == "" {
			scheme = "http"
		}
		port := m.resolvePortLiteral(c, check.Port)
		url := fmt.Sprintf("%s://%s:%s%s", scheme, host, port, check.Path)
		h := lifecycle.NewHTTPChecker(url)
		if check.Method != "" {
			h = h.WithMethod(check.Method)
		}
		if check.MatchRegex != "" {
			h = h.WithMatchRegex(check.MatchRegex)
		}
		return h

	case types.CheckExec:
		env := m.projectEnv(c)
		envList := make([]string, 0, len(env))
		for k, v := range env {
			envList = append(envList, k+"="+v)
		}
		return lifecycle.NewExecChecker(check.Command, envList)

	case types.CheckRexec:
		obs, err := m.Adapter.Inspect(context.Background(), c.Ship, c.Name)
		if err != nil || obs.ContainerID == "" {
			return nil
		}
		return lifecycle.NewRexecChecker(m.Adapter, obs.ContainerID, check.Command)

	case types.CheckSleep:
		return lifecycle.NewSleepChecker(check.Seconds)

	default:
		return nil
	}
}

// resolvePortLiteral resolves check.Port either as a numeric literal or
// as a named port of c, preferring the adapter-observed external
// mapping when available.
func (m *Manager) resolvePortLiteral(c *types.Container, port string) string {
	if _, err := strconv.Atoi(port); err == nil {
		return port
	}
	for _, p := range c.Ports {
		if p.Name != port {
			continue
		}
		if m.PortResolver != nil {
			if external, _, ok := m.PortResolver.ResolvePort(c.Name, p.Name); ok {
				return strconv.Itoa(external)
			}
		}
		return p.External.Port
	}
	return port
}
