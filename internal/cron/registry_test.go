package cron

import (
	"context"
	"strings"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	outbox := &stubJob{name: "outbox-retention"}
	sessions := &stubJob{name: "incomplete-session-retention"}
	registry := NewRegistry(outbox, nil, sessions)

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != outbox || jobs[1] != sessions {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	if got := strings.Join(registry.Names(), ","); got != "outbox-retention,incomplete-session-retention" {
		t.Fatalf("unexpected names %q", got)
	}

	jobs[0] = nil
	names := registry.Names()
	names[0] = "mutated"
	if registry.Jobs()[0] == nil || registry.Names()[0] != "outbox-retention" {
		t.Fatalf("registry exposed its internal slices")
	}
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "outbox-retention"})
	if err := registry.Register(&stubJob{name: "outbox-retention"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := registry.Register(&stubJob{name: "  "}); err == nil {
		t.Fatal("expected blank name error")
	}
	if _, ok := registry.Find("outbox-retention"); !ok {
		t.Fatal("expected job lookup by name")
	}
	if _, ok := registry.Find("missing"); ok {
		t.Fatal("unexpected job found")
	}
}

func TestNewRegistryPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for duplicate job")
		}
	}()
	NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"})
}

func TestZeroRegistryAcceptsJobs(t *testing.T) {
	var registry Registry
	if err := registry.Register(&stubJob{name: "a"}); err != nil {
		t.Fatalf("register on zero value: %v", err)
	}
	if _, ok := registry.Find("a"); !ok {
		t.Fatal("expected job after zero-value register")
	}
}
