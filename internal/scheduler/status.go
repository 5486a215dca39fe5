package scheduler

import "fmt"

// Status is the lifecycle state of a job.
type Status string

// Job statuses.
const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusRetrying    Status = "retrying"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

//nolint:gochecknoglobals // Immutable transition table used as a constant.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusQueued: {
		StatusDownloading: {},
		StatusCancelled:   {},
	},
	StatusDownloading: {
		StatusCompleted: {},
		StatusRetrying:  {},
		StatusFailed:    {},
		StatusCancelled: {},
	},
	StatusRetrying: {
		StatusQueued:    {},
		StatusCancelled: {},
	},
}

// ParseStatus converts text into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status '%s'", s)
	}

	return status, nil
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusDownloading, StatusRetrying, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsActive reports whether the job still holds work: queued, downloading or waiting to retry.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusDownloading || s == StatusRetrying
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	_, ok := allowedTransitions[s][next]

	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown status '%s'", string(s))
	}

	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	status, err := ParseStatus(string(text))
	if err != nil {
		return err
	}

	*s = status

	return nil
}
