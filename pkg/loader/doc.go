/*
Package loader turns an environment document on disk into a validated
pkg/types.Environment: read bytes, render as a text/template with sprig
functions and an explicit process-env/include surface, unmarshal the
rendered YAML into a schema-versioned raw form, normalize it to the
internal representation, then hand it to pkg/graph.Build to catch
undefined references and hard-dependency cycles before any action runs.

Nothing here reaches into the real OS environment on its own; the
caller passes the process environment in explicitly, keeping the loader
hermetic and testable with an in-memory map.
*/
package loader
