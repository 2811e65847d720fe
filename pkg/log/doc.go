/*
Package log provides structured logging for shipyard using zerolog.

A single package-level Logger is configured once via Init and then
narrowed per call site with the With* helpers (WithComponent, WithPlay,
WithShip, WithService, WithContainer) so that every log line carries the
identifiers relevant to the operation that produced it, without threading
a logger through every function signature.

Console output is used for interactive CLI runs; JSON output is meant for
piping play output into a log aggregator when shipyard is invoked from
CI or a scheduler.
*/
package log
