package enums

import "fmt"

// ConversationType distinguishes chat conversation shapes.
type ConversationType string

const (
	ConversationTypeDirect  ConversationType = "direct"
	ConversationTypeGroup   ConversationType = "group"
	ConversationTypeSupport ConversationType = "support"
)

var validConversationTypes = []ConversationType{
	ConversationTypeDirect,
	ConversationTypeGroup,
	ConversationTypeSupport,
}

// String implements fmt.Stringer.
func (c ConversationType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConversationType.
func (c ConversationType) IsValid() bool {
	for _, candidate := range validConversationTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConversationType converts raw input into a ConversationType.
func ParseConversationType(value string) (ConversationType, error) {
	for _, candidate := range validConversationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation type %q", value)
}
