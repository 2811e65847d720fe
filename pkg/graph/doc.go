/*
Package graph builds the container-level dependency graph from a loaded
environment and turns a selection of containers into an ordered sequence
of parallel-execution layers for pkg/play.

Build expands every service's requires and wants_info declarations (plus
the implicit dependency volumes_from creates) down to container-level
edges, then checks the hard-dependency edge set for cycles. wants_info
edges never participate in ordering or cycle detection; they exist only
so pkg/discovery knows which peers to project environment variables for.

Order computes layers by longest-path depth over the selected subgraph,
walking forward (dependencies before dependents) or in reverse, depending
on the action being performed. Containers within a layer carry no
ordering guarantee between each other and are sorted only for
deterministic output, never for execution order.
*/
package graph
