package discovery

import (
	"testing"

	"github.com/cuemby/shipyard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"web":        "WEB",
		"web-1":      "WEB_1",
		"my.service": "MY_SERVICE",
		"already_OK": "ALREADY_OK",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeName(in), "input %q", in)
	}
}

func testEnv() *types.Environment {
	db := &types.Container{
		Name:    "db-1",
		Service: "db",
		Ship:    "ship-a",
		Image:   "postgres:15",
		Ports: []types.Port{
			{Name: "pg", External: types.PortSpec{Port: "5432"}, Internal: types.PortSpec{Port: "5432"}},
		},
	}
	web := &types.Container{
		Name:    "web-1",
		Service: "web",
		Ship:    "ship-b",
		Image:   "myorg/web:latest",
	}

	return &types.Environment{
		Ships: map[string]*types.Ship{
			"ship-a": {Name: "ship-a", Address: "10.0.0.1"},
			"ship-b": {Name: "ship-b", Address: "10.0.0.2"},
		},
		Services: map[string]*types.Service{
			"db":  {Name: "db", Requires: nil, Instances: []*types.Container{db}},
			"web": {Name: "web", Requires: []string{"db"}, Instances: []*types.Container{web}},
		},
	}
}

func TestProject_OwnIdentity(t *testing.T) {
	env := testEnv()
	web := env.Services["web"].Instances[0]

	out := Project(env, web, nil)

	assert.Equal(t, "myorg/web", out["DOCKER_IMAGE"])
	assert.Equal(t, "latest", out["DOCKER_TAG"])
	assert.Equal(t, "web", out["SERVICE_NAME"])
	assert.Equal(t, "web-1", out["CONTAINER_NAME"])
	assert.Equal(t, "10.0.0.2", out["CONTAINER_HOST_ADDRESS"])
}

func TestProject_DependencyVisibility(t *testing.T) {
	env := testEnv()
	web := env.Services["web"].Instances[0]

	out := Project(env, web, nil)

	assert.Equal(t, "web-1", out["WEB_INSTANCES"])
	assert.Equal(t, "db-1", out["DB_INSTANCES"])
	assert.Equal(t, "10.0.0.1", out["DB_DB_1_HOST"])
	assert.Equal(t, "5432", out["DB_DB_1_PG_PORT"])
	assert.Equal(t, "5432", out["DB_DB_1_PG_INTERNAL_PORT"])
}

func TestProject_SoftDependencyAlsoVisible(t *testing.T) {
	env := testEnv()
	env.Services["web"].Requires = nil
	env.Services["web"].WantsInfo = []string{"db"}
	web := env.Services["web"].Instances[0]

	out := Project(env, web, nil)

	assert.Equal(t, "db-1", out["DB_INSTANCES"])
	assert.Equal(t, "10.0.0.1", out["DB_DB_1_HOST"])
}

type fakeResolver struct {
	external, internal int
}

func (f fakeResolver) ResolvePort(containerName, portName string) (int, int, bool) {
	return f.external, f.internal, true
}

func TestProject_ResolverOverridesStaticPort(t *testing.T) {
	env := testEnv()
	web := env.Services["web"].Instances[0]

	out := Project(env, web, fakeResolver{external: 55432, internal: 5432})

	assert.Equal(t, "55432", out["DB_DB_1_PG_PORT"])
}

func TestFlattenValue(t *testing.T) {
	assert.Equal(t, "a b c", FlattenValue([]interface{}{"a", "b", "c"}))
	assert.Equal(t, "42", FlattenValue(42))
	assert.Equal(t, "x", FlattenValue("x"))
	assert.Equal(t, "", FlattenValue(nil))
}

func TestOverlay_EnvWinsOverProjectedAndFiles(t *testing.T) {
	projected := map[string]interface{}{"FOO": "projected", "BAR": "projected"}
	envFile := map[string]interface{}{"FOO": "from-file"}
	serviceEnv := map[string]interface{}{"FOO": "from-service"}
	instanceEnv := map[string]interface{}{"FOO": "from-instance"}

	out := Overlay(projected, envFile, serviceEnv, instanceEnv)

	require.Equal(t, "from-instance", out["FOO"])
	assert.Equal(t, "projected", out["BAR"])
}
