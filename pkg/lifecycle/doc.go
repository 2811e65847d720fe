/*
Package lifecycle implements shipyard's container lifecycle checks: the
probes that gate whether a start, restart or stop is considered
successful.

A Checker performs one attempt and reports pass or fail; RunWithBudget
wraps a Checker in the retry policy every check type shares (retry every
second until success, a maxWait elapses, or an attempt count is
exhausted). The five check types are tcp, http, exec, rexec and sleep;
each is grounded on the same Checker interface so pkg/container can drive
any of them without knowing which one a service declared.

exec runs on the controller host with the container's own projected
environment appended, so probe scripts can use the same discovery
variables the container itself received. rexec runs the same kind of
command but inside the target container, via the Execer abstraction of
pkg/docker.Adapter.
*/
package lifecycle
