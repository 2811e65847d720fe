package docker

import (
	"testing"

	"github.com/cuemby/shipyard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortBindings(t *testing.T) {
	ports := []types.Port{
		{Name: "http", External: types.PortSpec{Port: "8080"}, Internal: types.PortSpec{Port: "80"}, Protocol: "tcp"},
		{Name: "bad", External: types.PortSpec{Port: "x"}, Internal: types.PortSpec{Port: "y"}},
	}

	exposed, bindings := portBindings(ports)

	require.Len(t, exposed, 1)
	require.Len(t, bindings, 1)
	for port, bs := range bindings {
		assert.Equal(t, "80/tcp", port.Port()+"/"+port.Proto())
		require.Len(t, bs, 1)
		assert.Equal(t, "8080", bs[0].HostPort)
	}
}

func TestShouldRetryPull(t *testing.T) {
	assert.True(t, shouldRetryPull(errFixture("boom"), nil))
	assert.True(t, shouldRetryPull(errFixture("received status 503"), map[int]bool{503: true}))
	assert.False(t, shouldRetryPull(errFixture("received status 400"), map[int]bool{503: true}))
}

func TestEncodeAuth(t *testing.T) {
	encoded := encodeAuth("user", "pass")
	assert.NotEmpty(t, encoded)
}

type errFixture string

func (e errFixture) Error() string { return string(e) }
