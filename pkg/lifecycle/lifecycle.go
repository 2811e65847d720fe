package lifecycle

import (
	"context"
	"time"

	"github.com/cuemby/shipyard/pkg/metrics"
)

// CheckType identifies a lifecycle check implementation.
type CheckType string

const (
	CheckTypeTCP   CheckType = "tcp"
	CheckTypeHTTP  CheckType = "http"
	CheckTypeExec  CheckType = "exec"
	CheckTypeRexec CheckType = "rexec"
	CheckTypeSleep CheckType = "sleep"
)

// Result is the outcome of a single check attempt.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker performs one lifecycle check attempt.
type Checker interface {
	// Check performs the check and returns its result.
	Check(ctx context.Context) Result

	// Type returns the check's type, for metrics and logging.
	Type() CheckType
}

// Budget bounds how long RunWithBudget keeps retrying a Checker: retries
// stop at whichever of MaxWait or Attempts is reached first. A zero value
// for either field means that bound does not apply.
type Budget struct {
	MaxWait  time.Duration
	Attempts int
}

const retryDelay = 1 * time.Second

// RunWithBudget runs checker until it passes, the context is cancelled,
// or the budget is exhausted, retrying every second in between. The
// first attempt always runs regardless of budget.
func RunWithBudget(ctx context.Context, checker Checker, budget Budget) Result {
	start := time.Now()
	attempt := 0
	var last Result

	for {
		attempt++
		last = checker.Check(ctx)
		metrics.LifecycleCheckAttempts.WithLabelValues(string(checker.Type()), outcomeLabel(last.Healthy)).Inc()

		if last.Healthy {
			break
		}
		if budget.Attempts > 0 && attempt >= budget.Attempts {
			break
		}
		if budget.MaxWait > 0 && time.Since(start) >= budget.MaxWait {
			break
		}

		select {
		case <-ctx.Done():
			last.Message = "cancelled: " + ctx.Err().Error()
			metrics.LifecycleCheckDuration.WithLabelValues(string(checker.Type())).Observe(time.Since(start).Seconds())
			return last
		case <-time.After(retryDelay):
		}
	}

	metrics.LifecycleCheckDuration.WithLabelValues(string(checker.Type())).Observe(time.Since(start).Seconds())
	return last
}

func outcomeLabel(healthy bool) string {
	if healthy {
		return "pass"
	}
	return "fail"
}
