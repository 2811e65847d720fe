package container

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cuemby/shipyard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	observations map[string]types.Observation
	creates      int
	starts       int
	stops        int
	kills        int
	removes      int
	pulls        int
}

func (f *fakeAdapter) Inspect(ctx context.Context, ship, name string) (types.Observation, error) {
	if obs, ok := f.observations[name]; ok {
		return obs, nil
	}
	return types.Observation{State: types.StateAbsent}, nil
}

func (f *fakeAdapter) Pull(ctx context.Context, ship, image string, reg *types.Registry) error {
	f.pulls++
	return nil
}

func (f *fakeAdapter) Create(ctx context.Context, c *types.Container, env map[string]string) (string, error) {
	f.creates++
	f.observations[c.Name] = types.Observation{State: types.StateCreated, ContainerID: "cid-" + c.Name}
	return "cid-" + c.Name, nil
}

func (f *fakeAdapter) Start(ctx context.Context, ship, name string) error {
	f.starts++
	obs := f.observations[name]
	obs.State = types.StateRunning
	f.observations[name] = obs
	return nil
}

func (f *fakeAdapter) Stop(ctx context.Context, ship, name string, timeout time.Duration) error {
	f.stops++
	obs := f.observations[name]
	obs.State = types.StateStopped
	f.observations[name] = obs
	return nil
}

func (f *fakeAdapter) Kill(ctx context.Context, ship, name string) error {
	f.kills++
	obs := f.observations[name]
	obs.State = types.StateStopped
	f.observations[name] = obs
	return nil
}

func (f *fakeAdapter) Remove(ctx context.Context, ship, name string) error {
	f.removes++
	delete(f.observations, name)
	return nil
}

func (f *fakeAdapter) Exec(ctx context.Context, containerID string, command []string) (int, string, error) {
	return 0, "", nil
}

func (f *fakeAdapter) Logs(ctx context.Context, ship, name string, follow bool, tail int) (io.ReadCloser, error) {
	return io.NopCloser(nil), nil
}

func testContainer() *types.Container {
	return &types.Container{Name: "web-1", Service: "web", Ship: "ship-a", Image: "myorg/web:latest"}
}

func testEnv(c *types.Container) *types.Environment {
	return &types.Environment{
		Ships: map[string]*types.Ship{"ship-a": {Name: "ship-a", Address: "10.0.0.1"}},
		Services: map[string]*types.Service{
			"web": {Name: "web", Instances: []*types.Container{c}},
		},
	}
}

func TestReconcile_StartFromAbsent(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionStart)

	require.Equal(t, types.OutcomeDone, result.Outcome)
	assert.Equal(t, 1, fake.pulls)
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 1, fake.starts)
}

func TestReconcile_StartAlreadyRunning(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateRunning},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionStart)

	require.Equal(t, types.OutcomeAlready, result.Outcome)
	assert.Equal(t, 0, fake.creates)
	assert.Equal(t, 0, fake.starts)
}

func TestReconcile_StopWhenAbsentIsAlready(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionStop)

	require.Equal(t, types.OutcomeAlready, result.Outcome)
	assert.Equal(t, 0, fake.stops)
}

func TestReconcile_StopRunning(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateRunning},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionStop)

	require.Equal(t, types.OutcomeDone, result.Outcome)
	assert.Equal(t, 1, fake.stops)
}

func TestReconcile_CleanWhileRunningFails(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateRunning},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionClean)

	require.Equal(t, types.OutcomeFailed, result.Outcome)
	assert.Equal(t, 0, fake.removes)
}

func TestReconcile_CleanRemovesStopped(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateStopped},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionClean)

	require.Equal(t, types.OutcomeDone, result.Outcome)
	assert.Equal(t, 1, fake.removes)
}

func TestReconcile_RestartReplacesContainer(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateRunning, Image: "myorg/web:old"},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionRestart)

	require.Equal(t, types.OutcomeDone, result.Outcome)
	assert.Equal(t, 1, fake.stops)
	assert.Equal(t, 1, fake.removes)
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 1, fake.starts)
}

func TestReconcile_RestartWithoutReuseReplacesEvenWhenImageUnchanged(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateRunning, Image: c.Image},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c)}

	result := m.Reconcile(context.Background(), c, types.ActionRestart)

	require.Equal(t, types.OutcomeDone, result.Outcome)
	assert.Equal(t, 1, fake.removes)
	assert.Equal(t, 1, fake.creates)
}

func TestReconcile_RestartReuseWithUnchangedImageSkipsReplace(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateRunning, Image: c.Image},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c), Reuse: true}

	result := m.Reconcile(context.Background(), c, types.ActionRestart)

	require.Equal(t, types.OutcomeDone, result.Outcome)
	assert.Equal(t, 1, fake.stops)
	assert.Equal(t, 1, fake.starts)
	assert.Equal(t, 0, fake.removes)
	assert.Equal(t, 0, fake.creates)
	assert.Equal(t, 0, fake.pulls)
}

func TestReconcile_RestartReuseWithChangedImageStillReplaces(t *testing.T) {
	c := testContainer()
	fake := &fakeAdapter{observations: map[string]types.Observation{
		c.Name: {State: types.StateRunning, Image: "myorg/web:old"},
	}}
	m := &Manager{Adapter: fake, Env: testEnv(c), Reuse: true}

	result := m.Reconcile(context.Background(), c, types.ActionRestart)

	require.Equal(t, types.OutcomeDone, result.Outcome)
	assert.Equal(t, 1, fake.removes)
	assert.Equal(t, 1, fake.creates)
}

func TestResolveRegistry(t *testing.T) {
	env := &types.Environment{
		Registries: map[string]*types.Registry{
			"registry.example.com": {URL: "registry.example.com"},
		},
	}

	reg := resolveRegistry(env, "registry.example.com/ns/repo:tag")
	require.NotNil(t, reg)
	assert.Equal(t, "registry.example.com", reg.URL)

	assert.Nil(t, resolveRegistry(env, "library/nginx:latest"))
}
