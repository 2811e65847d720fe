/*
Package types defines shipyard's domain model: the entities a loaded
environment is made of (Ship, Registry, Service, Container, Port) and the
vocabulary every other package uses to describe state and actions
(ContainerState, Action, Direction, Outcome, Result).

Every entity (Ship, Registry, Service, Container, Port) is produced once
by the loader and treated as immutable for the rest of a play; nothing
here mutates itself. Observation values come from pkg/docker, and Result
values from pkg/container and pkg/play, as a play runs. pkg/graph,
pkg/discovery, pkg/docker, pkg/container and pkg/play all operate on these
types without redefining them, so a Container read by pkg/graph and one
acted on by pkg/container are the exact same value.
*/
package types
