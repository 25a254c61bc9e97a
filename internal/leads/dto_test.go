package leads

import (
	"testing"
	"time"
)

func TestVersionRoundTripTruncatesToMicroseconds(t *testing.T) {
	at := time.Date(2026, 4, 2, 15, 0, 0, 123456789, time.FixedZone("EST", -5*3600))
	token := FormatVersion(at)
	if token != "2026-04-02T20:00:00.123456Z" {
		t.Fatalf("unexpected token %q", token)
	}
	parsed, err := ParseVersion(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !sameVersion(at, parsed) {
		t.Fatalf("expected %s to match %s", at, parsed)
	}
	if sameVersion(at.Add(time.Microsecond), parsed) {
		t.Fatalf("a later timestamp must not match")
	}
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "2026-13-01"} {
		if _, err := ParseVersion(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestContactNormalized(t *testing.T) {
	c := Contact{Name: "  Pat ", Phone: " ", Email: "\tp@x.io"}.normalized()
	if c.Name != "Pat" || c.Phone != "" || c.Email != "p@x.io" {
		t.Fatalf("unexpected normalization %+v", c)
	}
	if !(Contact{Phone: " "}).normalized().empty() {
		t.Fatalf("whitespace-only contact should be empty")
	}
}
