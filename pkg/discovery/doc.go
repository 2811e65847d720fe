/*
Package discovery computes the environment variables shipyard injects
into a container at creation time: its own identity (DOCKER_IMAGE,
SERVICE_NAME, CONTAINER_NAME, CONTAINER_HOST_ADDRESS), the instance
roster of its own service and every dependency service (hard or soft),
and, for every peer container visible to it, that peer's host address
and named ports.

Project computes the base layer; pkg/container then uses Overlay to put
the service env (into which the loader has already folded the service's
env-files, beneath its own env block) and the instance env on top in
that order, "env" always winning, matching the rest of shipyard's
layered-config conventions.
*/
package discovery
