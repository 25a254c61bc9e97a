package enums

import "fmt"

// LeadStatus is a funnel stage of a submitted lead.
type LeadStatus string

const (
	LeadStatusNew   LeadStatus = "new"
	LeadStatusSet   LeadStatus = "set"
	LeadStatusShow  LeadStatus = "show"
	LeadStatusClose LeadStatus = "close"
)

// funnel order; transitions between any two values are permitted.
var validLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusSet,
	LeadStatusShow,
	LeadStatusClose,
}

// LeadStatuses returns the statuses in funnel order.
func LeadStatuses() []LeadStatus {
	out := make([]LeadStatus, len(validLeadStatuses))
	copy(out, validLeadStatuses)
	return out
}

func (s LeadStatus) String() string {
	return string(s)
}

func (s LeadStatus) IsValid() bool {
	return s.Stage() >= 0
}

// Stage is the zero-based funnel position, or -1 for unknown values.
func (s LeadStatus) Stage() int {
	for i, candidate := range validLeadStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Reached reports whether s is at or beyond the given funnel stage.
func (s LeadStatus) Reached(stage LeadStatus) bool {
	return s.IsValid() && s.Stage() >= stage.Stage()
}

func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}
