package funnel

import (
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
)

func TestResolveWindowPresets(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	w, err := ResolveWindow("", "", "", now)
	if err != nil || w.From != nil || w.To != nil {
		t.Fatalf("expected open window, got %+v err=%v", w, err)
	}
	w, err = ResolveWindow("", "", "ALL", now)
	if err != nil || w.From != nil {
		t.Fatalf("expected open window for all, got %+v err=%v", w, err)
	}
	w, err = ResolveWindow("", "", "7d", now)
	if err != nil {
		t.Fatalf("resolve 7d: %v", err)
	}
	if !w.From.Equal(now.Add(-7*24*time.Hour)) || !w.To.Equal(now) {
		t.Fatalf("unexpected 7d window %v - %v", w.From, w.To)
	}
	if _, err := ResolveWindow("", "", "1y", now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveWindowExplicitBounds(t *testing.T) {
	now := time.Now()
	w, err := ResolveWindow("2026-01-01T00:00:00Z", "2026-02-01T00:00:00Z", "7d", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.From.Month() != time.January || w.To.Month() != time.February {
		t.Fatalf("explicit bounds should win over preset, got %v - %v", w.From, w.To)
	}
	if !w.Contains(*w.From) || w.Contains(*w.To) {
		t.Fatalf("window should be half-open")
	}

	cases := [][2]string{
		{"2026-01-01T00:00:00Z", ""},
		{"yesterday", "2026-02-01T00:00:00Z"},
		{"2026-03-01T00:00:00Z", "2026-02-01T00:00:00Z"},
	}
	for _, tc := range cases {
		if _, err := ResolveWindow(tc[0], tc[1], "", now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("from=%q to=%q: expected validation error, got %v", tc[0], tc[1], err)
		}
	}
}
