/*
Package shipyarderr classifies shipyard failures into a small set of
Kinds (config, daemon, image, lifecycle_timeout, state, cancelled) so
callers can tell a bad YAML document from an unreachable ship without
parsing message text. cmd/shipyard does not vary its exit code by Kind.

Errors wrap with %w the same way the rest of shipyard does; shipyarderr
only adds a Kind on top, retrievable with KindOf or checked with Is.
*/
package shipyarderr
