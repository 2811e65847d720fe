package docker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"

	"github.com/cuemby/shipyard/pkg/log"
	"github.com/cuemby/shipyard/pkg/metrics"
	"github.com/cuemby/shipyard/pkg/types"
)

// EngineAdapter implements Adapter against live Docker daemons, one
// *client.Client per ship. Clients are created on first use and kept for
// the life of the play; shipyard is a single-shot CLI, so there is no
// need to ever close them early.
type EngineAdapter struct {
	env    *types.Environment
	dialer Dialer
	creds  CredentialSource

	mu      sync.Mutex
	clients map[string]*dockerclient.Client

	pullMu sync.Mutex
	pulls  map[string]*pullState
}

type pullState struct {
	done chan struct{}
	err  error
}

// NewEngineAdapter builds an adapter over env's ships. dialer resolves
// per-ship transport options; creds resolves registry credentials. Both
// may be nil, in which case ships are dialed with FromEnv defaults and
// pulls against private registries will fail authentication.
func NewEngineAdapter(env *types.Environment, dialer Dialer, creds CredentialSource) *EngineAdapter {
	return &EngineAdapter{
		env:     env,
		dialer:  dialer,
		creds:   creds,
		clients: make(map[string]*dockerclient.Client),
		pulls:   make(map[string]*pullState),
	}
}

func (a *EngineAdapter) client(shipName string) (*dockerclient.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.clients[shipName]; ok {
		return c, nil
	}

	ship, ok := a.env.Ships[shipName]
	if !ok {
		return nil, fmt.Errorf("docker: undefined ship %q", shipName)
	}

	opts := []dockerclient.Opt{dockerclient.WithAPIVersionNegotiation()}
	if a.dialer != nil {
		dialOpts, err := a.dialer.DialOptions(ship)
		if err != nil {
			return nil, fmt.Errorf("docker: dial options for ship %q: %w", shipName, err)
		}
		opts = append(opts, dialOpts...)
	} else {
		opts = append(opts, dockerclient.FromEnv)
	}

	c, err := dockerclient.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker: connect to ship %q: %w", shipName, err)
	}
	a.clients[shipName] = c
	return c, nil
}

func (a *EngineAdapter) Inspect(ctx context.Context, ship, name string) (types.Observation, error) {
	c, err := a.client(ship)
	if err != nil {
		return types.Observation{}, err
	}

	info, err := c.ContainerInspect(ctx, name)
	if dockerclient.IsErrNotFound(err) {
		return types.Observation{State: types.StateAbsent}, nil
	}
	if err != nil {
		return types.Observation{}, fmt.Errorf("docker: inspect %q on %q: %w", name, ship, err)
	}

	obs := types.Observation{ContainerID: info.ID, Ports: make(map[string]int)}
	if info.Config != nil {
		obs.Image = info.Config.Image
	}
	switch {
	case info.State.Running:
		obs.State = types.StateRunning
	case info.State.Status == "created":
		obs.State = types.StateCreated
	default:
		obs.State = types.StateStopped
		obs.ExitCode = info.State.ExitCode
	}
	if info.State.FinishedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.State.FinishedAt); err == nil {
			obs.FinishedAt = t
		}
	}
	if info.State.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.State.StartedAt); err == nil {
			obs.StartedAt = t
		}
	}
	return obs, nil
}

func (a *EngineAdapter) Pull(ctx context.Context, ship string, imageName string, reg *types.Registry) error {
	key := ship + "|" + imageName

	a.pullMu.Lock()
	if existing, inFlight := a.pulls[key]; inFlight {
		a.pullMu.Unlock()
		metrics.ImagePullsCoalesced.WithLabelValues(ship).Inc()
		<-existing.done
		return existing.err
	}
	state := &pullState{done: make(chan struct{})}
	a.pulls[key] = state
	a.pullMu.Unlock()

	timer := metrics.NewTimer()
	state.err = a.doPull(ctx, ship, imageName, reg)
	timer.ObserveDurationVec(metrics.ImagePullDuration, ship)
	close(state.done)

	a.pullMu.Lock()
	delete(a.pulls, key)
	a.pullMu.Unlock()

	return state.err
}

func (a *EngineAdapter) doPull(ctx context.Context, ship string, imageName string, reg *types.Registry) error {
	c, err := a.client(ship)
	if err != nil {
		return err
	}

	opts := image.PullOptions{}
	attempts := 1
	var retryOn map[int]bool
	if reg != nil && reg.PullRetry != nil {
		if reg.PullRetry.MaxAttempts > 0 {
			attempts = reg.PullRetry.MaxAttempts
		}
		retryOn = make(map[int]bool, len(reg.PullRetry.RetryOn))
		for _, code := range reg.PullRetry.RetryOn {
			retryOn[code] = true
		}
	}
	if a.creds != nil && reg != nil {
		username, password, err := a.creds.Resolve(reg)
		if err != nil {
			return fmt.Errorf("docker: resolve credentials for %q: %w", reg.URL, err)
		}
		opts.RegistryAuth = encodeAuth(username, password)
	}

	logger := log.WithShip(ship)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		stream, err := c.ImagePull(ctx, imageName, opts)
		if err == nil {
			_, err = io.Copy(io.Discard, stream)
			stream.Close()
		}
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn().Err(err).Str("image", imageName).Int("attempt", attempt).Msg("image pull failed")
		if attempt < attempts && shouldRetryPull(err, retryOn) {
			continue
		}
		break
	}
	return fmt.Errorf("docker: pull %q on %q: %w", imageName, ship, lastErr)
}

// shouldRetryPull is conservative: absent an explicit retryOn allowlist,
// any failure is retried up to the attempt budget.
func shouldRetryPull(err error, retryOn map[int]bool) bool {
	if len(retryOn) == 0 {
		return true
	}
	msg := err.Error()
	for code := range retryOn {
		if strings.Contains(msg, strconv.Itoa(code)) {
			return true
		}
	}
	return false
}

func (a *EngineAdapter) Create(ctx context.Context, cont *types.Container, env map[string]string) (string, error) {
	c, err := a.client(cont.Ship)
	if err != nil {
		return "", err
	}

	envList := make([]string, 0, len(env))
	for k, v := range env {
		envList = append(envList, k+"="+v)
	}

	exposed, bindings := portBindings(cont.Ports)

	mounts := make([]mount.Mount, 0, len(cont.Volumes))
	for _, v := range cont.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	hostCfg := &container.HostConfig{
		Mounts:       mounts,
		PortBindings: bindings,
		RestartPolicy: container.RestartPolicy{
			Name:              container.RestartPolicyMode(cont.RestartPolicy.Name),
			MaximumRetryCount: cont.RestartPolicy.MaxRetryCount,
		},
		VolumesFrom:  cont.VolumesFrom,
		DNS:          cont.DNS,
		ExtraHosts:   cont.ExtraHosts,
		SecurityOpt:  cont.SecurityOpts,
		NetworkMode:  container.NetworkMode(cont.NetworkMode),
		Resources: container.Resources{
			Memory:     cont.Resources.MemoryBytes,
			MemorySwap: cont.Resources.SwapBytes,
			CPUShares:  cont.Resources.CPUShares,
		},
	}
	for _, u := range cont.Resources.Ulimits {
		hostCfg.Ulimits = append(hostCfg.Ulimits, &units.Ulimit{Name: u.Name, Soft: u.Soft, Hard: u.Hard})
	}
	if cont.LogDriver != "" {
		hostCfg.LogConfig = container.LogConfig{Type: cont.LogDriver, Config: cont.LogOptions}
	}

	cfg := &container.Config{
		Image:        cont.Image,
		Env:          envList,
		ExposedPorts: exposed,
		Labels:       cont.Labels,
		Cmd:          cont.Command,
		User:         cont.User,
		WorkingDir:   cont.Workdir,
	}

	var netCfg *network.NetworkingConfig
	if cont.NetworkMode != "" && cont.NetworkMode != "bridge" && cont.NetworkMode != "host" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				cont.NetworkMode: {},
			},
		}
	}

	resp, err := c.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, cont.Name)
	if err != nil {
		return "", fmt.Errorf("docker: create %q on %q: %w", cont.Name, cont.Ship, err)
	}
	return resp.ID, nil
}

func portBindings(ports []types.Port) (nat.PortSet, nat.PortMap) {
	exposed := make(nat.PortSet)
	bindings := make(nat.PortMap)
	for _, p := range ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		internalPort, err := nat.NewPort(proto, p.Internal.Port)
		if err != nil {
			continue
		}
		exposed[internalPort] = struct{}{}
		bindings[internalPort] = append(bindings[internalPort], nat.PortBinding{
			HostIP:   p.External.Bind,
			HostPort: p.External.Port,
		})
	}
	return exposed, bindings
}

func (a *EngineAdapter) Start(ctx context.Context, ship, name string) error {
	c, err := a.client(ship)
	if err != nil {
		return err
	}
	if err := c.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("docker: start %q on %q: %w", name, ship, err)
	}
	return nil
}

func (a *EngineAdapter) Stop(ctx context.Context, ship, name string, timeout time.Duration) error {
	c, err := a.client(ship)
	if err != nil {
		return err
	}
	seconds := int(timeout.Seconds())
	if err := c.ContainerStop(ctx, name, container.StopOptions{Timeout: &seconds}); err != nil {
		return fmt.Errorf("docker: stop %q on %q: %w", name, ship, err)
	}
	return nil
}

func (a *EngineAdapter) Kill(ctx context.Context, ship, name string) error {
	c, err := a.client(ship)
	if err != nil {
		return err
	}
	if err := c.ContainerKill(ctx, name, "SIGKILL"); err != nil {
		return fmt.Errorf("docker: kill %q on %q: %w", name, ship, err)
	}
	return nil
}

func (a *EngineAdapter) Remove(ctx context.Context, ship, name string) error {
	c, err := a.client(ship)
	if err != nil {
		return err
	}
	err = c.ContainerRemove(ctx, name, container.RemoveOptions{RemoveVolumes: false, Force: false})
	if err != nil && !dockerclient.IsErrNotFound(err) {
		return fmt.Errorf("docker: remove %q on %q: %w", name, ship, err)
	}
	return nil
}

func (a *EngineAdapter) Exec(ctx context.Context, containerID string, command []string) (int, string, error) {
	ship, c, err := a.clientForContainer(ctx, containerID)
	if err != nil {
		return 0, "", err
	}

	execResp, err := c.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          command,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return 0, "", fmt.Errorf("docker: exec create on %q: %w", containerID, err)
	}

	attach, err := c.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return 0, "", fmt.Errorf("docker: exec attach on %q: %w", containerID, err)
	}
	defer attach.Close()

	var out bytes.Buffer
	io.Copy(&out, attach.Reader)

	inspect, err := c.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return 0, "", fmt.Errorf("docker: exec inspect on %q: %w", containerID, err)
	}
	_ = ship
	return inspect.ExitCode, out.String(), nil
}

// clientForContainer is a thin helper for Exec, which the lifecycle
// rexec checker calls with a bare container ID rather than a ship name.
// Since every client is cached by ship and the ID alone does not name
// one, it tries each cached client in turn.
func (a *EngineAdapter) clientForContainer(ctx context.Context, containerID string) (string, *dockerclient.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ship, c := range a.clients {
		if _, err := c.ContainerInspect(ctx, containerID); err == nil {
			return ship, c, nil
		}
	}
	return "", nil, fmt.Errorf("docker: no cached client recognizes container %q", containerID)
}

func (a *EngineAdapter) Logs(ctx context.Context, ship, name string, follow bool, tail int) (io.ReadCloser, error) {
	c, err := a.client(ship)
	if err != nil {
		return nil, err
	}
	tailStr := "all"
	if tail > 0 {
		tailStr = strconv.Itoa(tail)
	}
	rc, err := c.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tailStr,
	})
	if err != nil {
		return nil, fmt.Errorf("docker: logs %q on %q: %w", name, ship, err)
	}
	return rc, nil
}

func encodeAuth(username, password string) string {
	payload, _ := json.Marshal(struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password})
	return base64.URLEncoding.EncodeToString(payload)
}
