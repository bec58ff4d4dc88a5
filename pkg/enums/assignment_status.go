package enums

import "fmt"

// AssignmentStatus tracks an assignment through its delivery lifecycle.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusAccepted   AssignmentStatus = "accepted"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusPending,
	AssignmentStatusAccepted,
	AssignmentStatusInProgress,
	AssignmentStatusCompleted,
	AssignmentStatusCancelled,
}

// statusRank orders the forward progression. Cancelled sits outside the chain.
var statusRank = map[AssignmentStatus]int{
	AssignmentStatusPending:    0,
	AssignmentStatusAccepted:   1,
	AssignmentStatusInProgress: 2,
	AssignmentStatusCompleted:  3,
}

// String implements fmt.Stringer.
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

// CanTransitionTo reports whether target is a legal next status. Progress is
// forward-only along pending -> accepted -> in_progress -> completed; cancelled
// is reachable from any non-terminal state.
func (s AssignmentStatus) CanTransitionTo(target AssignmentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == AssignmentStatusCancelled {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
