package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// Execer runs a command inside an already-running container. It is
// satisfied by pkg/docker.Adapter; lifecycle depends only on this
// narrow interface to avoid importing the Docker client package.
type Execer interface {
	Exec(ctx context.Context, containerID string, command []string) (exitCode int, output string, err error)
}

// RexecChecker runs a command inside the target container via the
// daemon's exec facility.
type RexecChecker struct {
	Execer      Execer
	ContainerID string
	Command     []string
	Timeout     time.Duration
}

// NewRexecChecker creates a rexec checker with a 10 second default timeout.
func NewRexecChecker(execer Execer, containerID string, command []string) *RexecChecker {
	return &RexecChecker{
		Execer:      execer,
		ContainerID: containerID,
		Command:     command,
		Timeout:     10 * time.Second,
	}
}

// WithTimeout sets the execution timeout.
func (r *RexecChecker) WithTimeout(timeout time.Duration) *RexecChecker {
	r.Timeout = timeout
	return r
}

// Check runs Command inside ContainerID and reports success on exit code 0.
func (r *RexecChecker) Check(ctx context.Context) Result {
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	exitCode, output, err := r.Execer.Exec(execCtx, r.ContainerID, r.Command)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("rexec %v failed: %v", r.Command, err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	healthy := exitCode == 0
	msg := fmt.Sprintf("rexec %v exited %d", r.Command, exitCode)
	if !healthy && output != "" {
		msg = fmt.Sprintf("%s, output: %s", msg, output)
	}

	return Result{
		Healthy:   healthy,
		Message:   msg,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns CheckTypeRexec.
func (r *RexecChecker) Type() CheckType {
	return CheckTypeRexec
}
