/*
Package container implements shipyard's per-container action table: the
observed-state-to-target-state transitions described for pull, start,
stop, kill, restart, clean, logs and status. Reconcile is the single
entry point a play calls once per container per layer; shipyard runs
one pass per invocation rather than a polling loop, so there is no
ongoing drift-correction goroutine the way a long-lived agent would
have one.

Idempotency is a first-class outcome: when the observed state already
matches an action's target, Reconcile returns types.OutcomeAlready
instead of repeating daemon calls.
*/
package container
