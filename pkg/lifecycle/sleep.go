package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// SleepChecker waits a fixed number of seconds and always succeeds. It is
// useful as a crude fallback when a service has no reliable probe but
// still needs a grace period before the next layer starts.
type SleepChecker struct {
	Seconds int
}

// NewSleepChecker creates a sleep checker for the given duration.
func NewSleepChecker(seconds int) *SleepChecker {
	return &SleepChecker{Seconds: seconds}
}

// Check waits Seconds and always returns healthy, unless the context is
// cancelled first.
func (s *SleepChecker) Check(ctx context.Context) Result {
	start := time.Now()

	select {
	case <-time.After(time.Duration(s.Seconds) * time.Second):
		return Result{
			Healthy:   true,
			Message:   fmt.Sprintf("slept %ds", s.Seconds),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	case <-ctx.Done():
		return Result{
			Healthy:   false,
			Message:   "cancelled: " + ctx.Err().Error(),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
}

// Type returns CheckTypeSleep.
func (s *SleepChecker) Type() CheckType {
	return CheckTypeSleep
}
