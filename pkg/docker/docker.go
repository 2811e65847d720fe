package docker

import (
	"context"
	"io"
	"time"

	dockerclient "github.com/docker/docker/client"

	"github.com/cuemby/shipyard/pkg/types"
)

// Adapter is the set of daemon operations a container action or lifecycle
// check may need. A ship's worth of calls all flow through the single
// *client.Client cached for that ship.
type Adapter interface {
	// Inspect reports the observed state of a container by name on ship,
	// or types.StateAbsent with a zero ContainerID if it does not exist.
	Inspect(ctx context.Context, ship, name string) (types.Observation, error)

	// Pull ensures image is present on ship, authenticating against reg
	// if reg is non-nil. Concurrent Pull calls for the same (ship, image)
	// pair are coalesced into one daemon request.
	Pull(ctx context.Context, ship string, image string, reg *types.Registry) error

	// Create makes a container from c on its ship without starting it.
	// Returns the daemon-assigned container ID.
	Create(ctx context.Context, c *types.Container, env map[string]string) (string, error)

	// Start starts an already-created container by name.
	Start(ctx context.Context, ship, name string) error

	// Stop stops a running container, giving it timeout to exit before
	// the daemon sends SIGKILL.
	Stop(ctx context.Context, ship, name string, timeout time.Duration) error

	// Kill sends SIGKILL to a container immediately.
	Kill(ctx context.Context, ship, name string) error

	// Remove deletes a stopped container. It is not an error if the
	// container does not exist.
	Remove(ctx context.Context, ship, name string) error

	// Exec runs command inside a running container and waits for it to
	// exit, returning its exit code and combined output. It satisfies
	// pkg/lifecycle.Execer for rexec checks.
	Exec(ctx context.Context, containerID string, command []string) (exitCode int, output string, err error)

	// Logs streams a container's stdout/stderr. Callers are responsible
	// for closing the returned reader.
	Logs(ctx context.Context, ship, name string, follow bool, tail int) (io.ReadCloser, error)
}

// CredentialSource resolves the decrypted username/password for a
// registry, deferring to pkg/registry without creating an import cycle.
type CredentialSource interface {
	Resolve(reg *types.Registry) (username, password string, err error)
}

// Dialer produces Docker client options for a ship's configured
// transport (TCP, TLS, Unix socket or SSH tunnel), deferring to
// pkg/transport without an import cycle.
type Dialer interface {
	DialOptions(ship *types.Ship) ([]dockerclient.Opt, error)
}
