package enums

import "fmt"

// SessionPhase is the local lifecycle of a payment session. ACTIVE is the
// only non-terminal phase; once a session leaves it, no timer callback or
// in-flight response may move it again.
type SessionPhase string

const (
	SessionPhaseActive    SessionPhase = "ACTIVE"
	SessionPhaseSucceeded SessionPhase = "SUCCEEDED"
	SessionPhaseExpired   SessionPhase = "EXPIRED"
	SessionPhaseCancelled SessionPhase = "CANCELLED"
)

var validSessionPhases = []SessionPhase{
	SessionPhaseActive,
	SessionPhaseSucceeded,
	SessionPhaseExpired,
	SessionPhaseCancelled,
}

// String implements fmt.Stringer.
func (s SessionPhase) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionPhase.
func (s SessionPhase) IsValid() bool {
	for _, candidate := range validSessionPhases {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the phase admits no further transitions.
func (s SessionPhase) IsTerminal() bool {
	return s != SessionPhaseActive && s.IsValid()
}

// ParseSessionPhase converts raw input into a SessionPhase.
func ParseSessionPhase(value string) (SessionPhase, error) {
	for _, candidate := range validSessionPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session phase %q", value)
}
