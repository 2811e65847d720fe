package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// ExecSink invokes Command once per event, piping the event's JSON
// encoding on stdin. It is intended for simple shell hooks (post to
// chat, append to a file) rather than anything latency-sensitive.
type ExecSink struct {
	Command      []string
	Timeout      time.Duration
	ignoreErrors bool
	name         string
}

// NewExecSink creates an ExecSink running command for every event.
func NewExecSink(name string, command []string, ignoreErrors bool) *ExecSink {
	return &ExecSink{Command: command, Timeout: 10 * time.Second, ignoreErrors: ignoreErrors, name: name}
}

func (s *ExecSink) Deliver(e Event) error {
	if len(s.Command) == 0 {
		return fmt.Errorf("audit: exec sink %q has no command configured", s.name)
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audit: exec sink %q: %w (stderr: %s)", s.name, err, stderr.String())
	}
	return nil
}

func (s *ExecSink) IgnoreErrors() bool { return s.ignoreErrors }
func (s *ExecSink) Name() string       { return s.name }
