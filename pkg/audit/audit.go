package audit

import (
	"time"

	"github.com/cuemby/shipyard/pkg/log"
	"github.com/cuemby/shipyard/pkg/metrics"
	"github.com/cuemby/shipyard/pkg/types"
)

// EventType names one of the four points in a play's lifecycle a Sink
// is notified of.
type EventType string

const (
	EventPlayStart          EventType = "play-start"
	EventContainerActionStart EventType = "container-action-start"
	EventContainerActionEnd  EventType = "container-action-end"
	EventPlayEnd             EventType = "play-end"
)

// Event is the single shape delivered to every Sink; fields not
// applicable to EventType are left zero.
type Event struct {
	Type      EventType
	Time      time.Time
	PlayID    string
	Action    types.Action
	Targets   []string
	Container string
	Result    *types.Result
	Summary   *Summary
}

// Summary is the play-end rollup: counts by outcome and the full list
// of per-container results for diagnostics.
type Summary struct {
	PlayID    string
	Action    types.Action
	Done      int
	Already   int
	Failed    int
	Results   []types.Result
	StartedAt time.Time
	EndedAt   time.Time
}

// Sink receives play lifecycle events. Deliver must not block the play
// for long; sinks that call out over the network should apply their own
// timeout.
type Sink interface {
	Deliver(e Event) error

	// IgnoreErrors reports whether a Deliver failure should be logged
	// and swallowed (true) or should abort the play (false).
	IgnoreErrors() bool

	// Name identifies the sink for metrics and log fields ("log", "exec",
	// "webhook", or a configured label).
	Name() string
}

// Dispatch fans event out to every sink, recording metrics.AuditSinkErrors
// for any sink that fails and returning the first error from a sink that
// does not ignore errors (if any), so the caller can abort the play.
func Dispatch(sinks []Sink, e Event) error {
	var firstFatal error
	for _, s := range sinks {
		if err := s.Deliver(e); err != nil {
			metrics.AuditSinkErrors.WithLabelValues(s.Name()).Inc()
			log.WithComponent("audit").Warn().Err(err).Str("sink", s.Name()).Str("event", string(e.Type)).Msg("sink delivery failed")
			if !s.IgnoreErrors() && firstFatal == nil {
				firstFatal = err
			}
		}
	}
	return firstFatal
}
