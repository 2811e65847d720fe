/*
Package transport selects how pkg/docker dials a ship's Docker daemon:
plain TCP, TLS, a local Unix socket, or a tunnel through SSH, chosen by
the ship's types.TransportKind. Each selector produces the
*client.Client options pkg/docker needs rather than a client itself, so
pkg/docker stays the only package that makes daemon calls; this package
imports the Docker client package only to build those options.
*/
package transport
