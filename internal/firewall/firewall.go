// Package firewall rejects structurally invalid timed sessions before they
// are persisted remotely.
package firewall

import (
	"fmt"
	"strings"
	"time"

	"Tempo/internal/domain"
)

const (
	// DurationTolerance is the allowed gap between duration and endTime-startTime.
	DurationTolerance = int64(1000)
	// ClockDrift is how far in the future a running session may start.
	ClockDrift = 60 * time.Second
)

// Violation reasons.
const (
	ReasonStartMissing    = "startTime must be positive"
	ReasonEndMissing      = "endTime must be positive"
	ReasonEndBeforeStart  = "endTime must be after startTime"
	ReasonDurationDrift   = "duration must match endTime - startTime within 1000ms"
	ReasonDurationMissing = "duration must be positive"
	ReasonStartInFuture   = "startTime must not be in the future"
)

// Validate returns every rule s violates for its status. An empty result
// means the session may be persisted. now is only used for the clock-drift
// rule of running sessions.
func Validate(s domain.TimedSession, now time.Time) []string {
	var reasons []string
	switch s.Status {
	case domain.SessionCompleted:
		if s.StartTime <= 0 {
			reasons = append(reasons, ReasonStartMissing)
		}
		if s.EndTime <= 0 {
			reasons = append(reasons, ReasonEndMissing)
		}
		if s.EndTime <= s.StartTime {
			reasons = append(reasons, ReasonEndBeforeStart)
		}
		if abs(s.Duration-(s.EndTime-s.StartTime)) > DurationTolerance {
			reasons = append(reasons, ReasonDurationDrift)
		}
		if s.Duration <= 0 {
			reasons = append(reasons, ReasonDurationMissing)
		}
	case domain.SessionActive, domain.SessionRunning:
		if s.StartTime <= 0 {
			reasons = append(reasons, ReasonStartMissing)
		} else if s.StartTime > now.Add(ClockDrift).UnixMilli() {
			reasons = append(reasons, ReasonStartInFuture)
		}
	case domain.SessionPaused:
		if s.StartTime <= 0 {
			reasons = append(reasons, ReasonStartMissing)
		}
	case domain.SessionCancelled, domain.SessionTodo, domain.SessionAbandoned:
		// zeroed time fields are allowed
	default:
		// unknown statuses pass; see KnownStatus
	}
	return reasons
}

// Check is Validate as an error wrapping domain.ErrValidation.
func Check(s domain.TimedSession, now time.Time) error {
	reasons := Validate(s, now)
	if len(reasons) == 0 {
		return nil
	}
	return fmt.Errorf("%w: session %s: %s", domain.ErrValidation, s.ID, strings.Join(reasons, "; "))
}

// KnownStatus reports whether the firewall has rules for status. Callers log
// unknown statuses; the firewall itself lets them through.
func KnownStatus(status string) bool {
	switch status {
	case domain.SessionCompleted, domain.SessionActive, domain.SessionRunning, domain.SessionPaused,
		domain.SessionCancelled, domain.SessionTodo, domain.SessionAbandoned:
		return true
	}
	return false
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
