package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/shipyard/pkg/types"
)

func testEnv() *types.Environment {
	db1 := &types.Container{Name: "db-1", Service: "db", Ship: "ship-a"}
	web1 := &types.Container{Name: "web-1", Service: "web", Ship: "ship-b"}
	return &types.Environment{
		Services: map[string]*types.Service{
			"db":  {Name: "db", Instances: []*types.Container{db1}},
			"web": {Name: "web", Instances: []*types.Container{web1}},
		},
	}
}

func TestResolveTargets_ServiceNameExpandsToInstances(t *testing.T) {
	env := testEnv()
	out, err := ResolveTargets(env, types.ActionStart, []string{"db"}, RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"db-1"}, out)
}

func TestResolveTargets_ContainerNamePassesThrough(t *testing.T) {
	env := testEnv()
	out, err := ResolveTargets(env, types.ActionStart, []string{"web-1"}, RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1"}, out)
}

func TestResolveTargets_DestructiveServiceNameRequiresExpandGate(t *testing.T) {
	env := testEnv()
	_, err := ResolveTargets(env, types.ActionStop, []string{"db"}, RunConfig{})
	assert.Error(t, err)

	out, err := ResolveTargets(env, types.ActionStop, []string{"db"}, RunConfig{ExpandServices: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"db-1"}, out)
}

func TestResolveTargets_UnknownNameErrors(t *testing.T) {
	env := testEnv()
	_, err := ResolveTargets(env, types.ActionStart, []string{"nonexistent"}, RunConfig{})
	assert.Error(t, err)
}

func TestResolveTargets_ShipFilterRestrictsSelection(t *testing.T) {
	env := testEnv()
	out, err := ResolveTargets(env, types.ActionStart, []string{"db", "web"}, RunConfig{ShipFilter: "ship-a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"db-1"}, out)
}

func TestResolveTargets_AllExpandsEveryNonOmittedService(t *testing.T) {
	env := testEnv()
	out, err := ResolveTargets(env, types.ActionStop, nil, RunConfig{All: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"db-1", "web-1"}, out)
}
