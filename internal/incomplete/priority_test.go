package incomplete

import (
	"testing"
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

func sessionAt(last time.Time, phone string) models.IncompleteLeadSession {
	s := models.IncompleteLeadSession{LastActivity: last}
	if phone != "" {
		s.Phone = &phone
	}
	return s
}

func TestPriorityTiers(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		elapsed time.Duration
		phone   string
		want    enums.Priority
	}{
		{"fresh with contact", 30 * time.Minute, "5550100", enums.PriorityHigh},
		{"just under two hours", 2*time.Hour - time.Second, "5550100", enums.PriorityHigh},
		{"exactly two hours", 2 * time.Hour, "5550100", enums.PriorityMedium},
		{"just under a day", 24*time.Hour - time.Second, "5550100", enums.PriorityMedium},
		{"exactly a day", 24 * time.Hour, "5550100", enums.PriorityLow},
		{"fresh without contact", time.Minute, "", enums.PriorityLow},
		{"future activity", -time.Hour, "5550100", enums.PriorityHigh},
	}
	for _, tc := range cases {
		got := Priority(sessionAt(now.Add(-tc.elapsed), tc.phone), now)
		if got != tc.want {
			t.Fatalf("%s: expected %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestPriorityEmailCountsAsContact(t *testing.T) {
	now := time.Now()
	email := "a@example.com"
	s := models.IncompleteLeadSession{LastActivity: now, Email: &email}
	if got := Priority(s, now); got != enums.PriorityHigh {
		t.Fatalf("expected high got %s", got)
	}
	empty := ""
	s = models.IncompleteLeadSession{LastActivity: now, Email: &empty, Phone: &empty}
	if got := Priority(s, now); got != enums.PriorityLow {
		t.Fatalf("empty contact values should not count, got %s", got)
	}
}

func TestPriorityMonotonicInElapsedTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	prev := Priority(sessionAt(now, "5550100"), now)
	for minutes := 1; minutes <= 3*24*60; minutes += 7 {
		got := Priority(sessionAt(now.Add(-time.Duration(minutes)*time.Minute), "5550100"), now)
		if got.Weight() > prev.Weight() {
			t.Fatalf("priority rose from %s to %s at %d minutes", prev, got, minutes)
		}
		prev = got
	}
}

func TestRecencyLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "Just now"},
		{59 * time.Minute, "Just now"},
		{time.Hour, "1 hours ago"},
		{5*time.Hour + 59*time.Minute, "5 hours ago"},
		{23*time.Hour + 59*time.Minute, "23 hours ago"},
		{24 * time.Hour, "1 days ago"},
		{71 * time.Hour, "2 days ago"},
		{-10 * time.Minute, "Just now"},
	}
	for _, tc := range cases {
		if got := RecencyLabel(now.Add(-tc.elapsed), now); got != tc.want {
			t.Fatalf("elapsed %s: expected %q got %q", tc.elapsed, tc.want, got)
		}
	}
}

func TestFilterMatches(t *testing.T) {
	high := enums.PriorityHigh
	yes := true
	no := false

	if !(Filter{}).Matches(enums.PriorityLow, false) {
		t.Fatalf("empty filter should match everything")
	}
	if (Filter{Priority: &high}).Matches(enums.PriorityMedium, true) {
		t.Fatalf("priority filter should reject other tiers")
	}
	if !(Filter{Priority: &high, HasContact: &yes}).Matches(enums.PriorityHigh, true) {
		t.Fatalf("expected match on tier and contact")
	}
	if (Filter{HasContact: &no}).Matches(enums.PriorityLow, true) {
		t.Fatalf("contact filter should reject sessions with contact")
	}
}

func TestBuildWorklistOrdersByTierThenRecency(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := []models.IncompleteLeadSession{
		sessionAt(now.Add(-3*time.Hour), "1"),
		sessionAt(now.Add(-10*time.Minute), ""),
		sessionAt(now.Add(-90*time.Minute), "2"),
		sessionAt(now.Add(-30*time.Minute), "3"),
		sessionAt(now.Add(-5*time.Hour), "4"),
	}
	for i := range rows {
		rows[i].SessionKey = string(rune('a' + i))
	}

	list := buildWorklist(rows, Filter{}, now, 0)
	got := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		got = append(got, item.SessionKey)
	}
	want := []string{"d", "c", "a", "e", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v got %v", want, got)
		}
	}
	if list.Counts[enums.PriorityHigh] != 2 || list.Counts[enums.PriorityMedium] != 2 || list.Counts[enums.PriorityLow] != 1 {
		t.Fatalf("unexpected counts %v", list.Counts)
	}

	medium := enums.PriorityMedium
	filtered := buildWorklist(rows, Filter{Priority: &medium}, now, 1)
	if len(filtered.Items) != 1 || filtered.Items[0].SessionKey != "a" {
		t.Fatalf("expected most recent medium session, got %+v", filtered.Items)
	}
	if filtered.Counts[enums.PriorityHigh] != 2 {
		t.Fatalf("counts should cover the unfiltered population, got %v", filtered.Counts)
	}
}
