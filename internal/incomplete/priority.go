// Package incomplete tracks intake forms abandoned before submission and
// ranks them for follow-up.
package incomplete

import (
	"fmt"
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

const (
	highWindow   = 2 * time.Hour
	mediumWindow = 24 * time.Hour
)

// Priority ranks a session by how recently it was touched. Sessions without a
// phone or email are always low.
func Priority(session models.IncompleteLeadSession, now time.Time) enums.Priority {
	if !session.HasContact() {
		return enums.PriorityLow
	}
	elapsed := elapsedSince(session.LastActivity, now)
	switch {
	case elapsed < highWindow:
		return enums.PriorityHigh
	case elapsed < mediumWindow:
		return enums.PriorityMedium
	default:
		return enums.PriorityLow
	}
}

// RecencyLabel renders the time since last activity with hour and day
// truncation.
func RecencyLabel(last, now time.Time) string {
	elapsed := elapsedSince(last, now)
	switch {
	case elapsed < time.Hour:
		return "Just now"
	case elapsed < mediumWindow:
		return fmt.Sprintf("%d hours ago", int(elapsed/time.Hour))
	default:
		return fmt.Sprintf("%d days ago", int(elapsed/mediumWindow))
	}
}

// clock skew can put last activity in the future
func elapsedSince(last, now time.Time) time.Duration {
	elapsed := now.Sub(last)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
