/*
Package metrics defines and registers shipyard's Prometheus instrumentation.

Metrics fall into four groups: environment gauges (ships, services,
containers, published by RecordEnvironment; the shipyard command does not
call it, so its runs leave these gauges unset), play timing
(shipyard_play_duration_seconds, shipyard_play_layer_duration_seconds),
per-container action counters and durations (scheduled, failed, Docker
round-trip latency, image pull latency and pull coalescing), and lifecycle
check counters.

All metrics register against the default Prometheus registry at package
init via prometheus.MustRegister, matching the rest of the ambient stack.
Handler returns an http.Handler suitable for mounting under /metrics; the
shipyard binary has no metrics-address option and never starts that
listener itself.

Timer is a small helper that wraps time.Since for recording a duration to
a histogram or histogram vector without repeating the time.Now()/Since
dance at every call site.
*/
package metrics
