package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/shipyard/pkg/types"
)

func TestSelector_DialOptions_UnixDefaultsToStandardSocket(t *testing.T) {
	s := Selector{}
	opts, err := s.DialOptions(&types.Ship{Name: "ship-a", Transport: types.TransportUnix})
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestSelector_DialOptions_TCPUsesEndpointOverAddress(t *testing.T) {
	s := Selector{}
	opts, err := s.DialOptions(&types.Ship{Name: "ship-a", Transport: types.TransportTCP, Endpoint: "tcp://10.0.0.5:2375"})
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestSelector_DialOptions_TLSWithoutConfigErrors(t *testing.T) {
	s := Selector{}
	_, err := s.DialOptions(&types.Ship{Name: "ship-a", Transport: types.TransportTLS})
	assert.Error(t, err)
}

func TestSelector_DialOptions_SSHWithoutConfigErrors(t *testing.T) {
	s := Selector{}
	_, err := s.DialOptions(&types.Ship{Name: "ship-a", Transport: types.TransportSSH})
	assert.Error(t, err)
}

func TestSelector_DialOptions_UnknownTransportErrors(t *testing.T) {
	s := Selector{}
	_, err := s.DialOptions(&types.Ship{Name: "ship-a", Transport: "carrier-pigeon"})
	assert.Error(t, err)
}
