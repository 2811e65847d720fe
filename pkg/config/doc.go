/*
Package config holds the CLI-level run configuration for a single
shipyard invocation: concurrency cap, refresh-images, container/ship
filters, output mode. It is an explicit struct populated once from
Cobra flags in cmd/shipyard; nothing in the core reads its configuration
from process state on its own, keeping pkg/loader, pkg/container and pkg/play testable without
an ambient environment.
*/
package config
