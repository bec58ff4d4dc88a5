package enums

import "fmt"

// AssignmentPriority ranks the urgency of an assignment.
type AssignmentPriority string

const (
	AssignmentPriorityLow    AssignmentPriority = "low"
	AssignmentPriorityMedium AssignmentPriority = "medium"
	AssignmentPriorityHigh   AssignmentPriority = "high"
	AssignmentPriorityUrgent AssignmentPriority = "urgent"
)

var validAssignmentPriorities = []AssignmentPriority{
	AssignmentPriorityLow,
	AssignmentPriorityMedium,
	AssignmentPriorityHigh,
	AssignmentPriorityUrgent,
}

// String implements fmt.Stringer.
func (p AssignmentPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known AssignmentPriority.
func (p AssignmentPriority) IsValid() bool {
	for _, candidate := range validAssignmentPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseAssignmentPriority converts raw input into an AssignmentPriority.
func ParseAssignmentPriority(value string) (AssignmentPriority, error) {
	for _, candidate := range validAssignmentPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment priority %q", value)
}
