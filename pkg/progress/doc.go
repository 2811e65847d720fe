/*
Package progress renders a play's container-by-container progress to
the terminal. Reporter is the observer interface pkg/play drives;
ConsoleReporter is a go-pretty table-backed implementation that records
each container as running when Started is called and as its terminal
stage when Finished is called, and writes the table out only when Render
is called.

RenderDepTree wraps pkg/graph's plain-text dependency tree in a bordered
panel for the `deptree` CLI command.
*/
package progress
