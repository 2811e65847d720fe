package audit

import (
	"github.com/cuemby/shipyard/pkg/log"
)

// LogSink writes every event as a structured zerolog entry. It never
// fails, so IgnoreErrors is moot, but it reports true for uniformity.
type LogSink struct {
	name string
}

// NewLogSink creates a LogSink; name defaults to "log" when empty.
func NewLogSink(name string) *LogSink {
	if name == "" {
		name = "log"
	}
	return &LogSink{name: name}
}

func (s *LogSink) Deliver(e Event) error {
	logger := log.WithComponent("audit")
	entry := logger.Info().Str("event", string(e.Type)).Str("play_id", e.PlayID)
	if e.Action != "" {
		entry = entry.Str("action", string(e.Action))
	}
	if e.Container != "" {
		entry = entry.Str("container", e.Container)
	}
	if e.Result != nil {
		entry = entry.Str("outcome", string(e.Result.Outcome)).Str("reason", e.Result.Reason)
	}
	if e.Summary != nil {
		entry = entry.Int("done", e.Summary.Done).Int("already", e.Summary.Already).Int("failed", e.Summary.Failed)
	}
	entry.Msg("audit event")
	return nil
}

func (s *LogSink) IgnoreErrors() bool { return true }
func (s *LogSink) Name() string       { return s.name }
