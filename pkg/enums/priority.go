package enums

import "fmt"

// Priority is the follow-up urgency tier of an incomplete lead session.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var validPriorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) String() string {
	return string(p)
}

func (p Priority) IsValid() bool {
	return p.Weight() > 0
}

// Weight orders tiers for sorting: high 3, medium 2, low 1, unknown 0.
func (p Priority) Weight() int {
	for i, candidate := range validPriorities {
		if candidate == p {
			return len(validPriorities) - i
		}
	}
	return 0
}

func ParsePriority(value string) (Priority, error) {
	for _, candidate := range validPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q", value)
}
