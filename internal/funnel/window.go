package funnel

import (
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
)

const PresetAll = "all"

// Window bounds lead creation time. Nil ends are open.
type Window struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls in [From, To).
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && !t.Before(*w.To) {
		return false
	}
	return true
}

// ResolveWindow turns explicit RFC3339 bounds or a preset into a Window.
// Explicit bounds win and must be supplied together; an empty preset means
// the whole history.
func ResolveWindow(from, to, preset string, now time.Time) (Window, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from != "" || to != "" {
		if from == "" || to == "" {
			return Window{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		}
		start, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return Window{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from timestamp")
		}
		end, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return Window{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to timestamp")
		}
		start, end = start.UTC(), end.UTC()
		if end.Before(start) {
			return Window{}, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
		}
		return Window{From: &start, To: &end}, nil
	}

	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" || preset == PresetAll {
		return Window{}, nil
	}
	duration, ok := presetDuration(preset)
	if !ok {
		return Window{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid preset")
	}
	end := now.UTC()
	start := end.Add(-duration)
	return Window{From: &start, To: &end}, nil
}

func presetDuration(value string) (time.Duration, bool) {
	switch value {
	case "7d":
		return 7 * 24 * time.Hour, true
	case "30d":
		return 30 * 24 * time.Hour, true
	case "90d":
		return 90 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
