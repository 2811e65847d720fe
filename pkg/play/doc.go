/*
Package play implements the layered, concurrency-bounded scheduler that
drives a set of containers through one action: it orders the selection
into dependency layers via pkg/graph, then walks the layers strictly in
order, running every container within a layer on a worker pool of size
N and waiting for the layer to fully drain before starting the next
one.

A per-container failure does not cancel its layer-mates; the play only
aborts before starting the next layer if the just-finished layer had
any failure. External cancellation stops new layers from starting but
lets the in-flight layer finish.
*/
package play
