package incomplete

import (
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

// Filter narrows a worklist. Nil fields match everything.
type Filter struct {
	Priority   *enums.Priority
	HasContact *bool
}

// Matches reports whether an item with the given tier and contact presence
// passes the filter.
func (f Filter) Matches(priority enums.Priority, hasContact bool) bool {
	if f.Priority != nil && *f.Priority != priority {
		return false
	}
	if f.HasContact != nil && *f.HasContact != hasContact {
		return false
	}
	return true
}

// Apply returns the items passing f without modifying the input.
func (f Filter) Apply(items []WorklistItem) []WorklistItem {
	out := make([]WorklistItem, 0, len(items))
	for _, item := range items {
		if f.Matches(item.Priority, item.HasContact) {
			out = append(out, item)
		}
	}
	return out
}
