/*
Package docker isolates every use of the Docker Engine API behind a small
Adapter interface. The only other shipyard packages that import Docker
SDK modules are pkg/transport (client options for a ship's transport)
and pkg/types (go-units for resource limits); no package outside these
makes daemon calls.

Adapter methods take a ship name rather than a daemon handle; the
concrete implementation owns one *client.Client per ship, created
lazily and cached for the life of the play. Pull requests for the same
(ship, image) pair are coalesced so that a layer scheduling many
containers from the same image only pulls it once.
*/
package docker
