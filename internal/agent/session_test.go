package agent

import (
	"strings"
	"testing"
)

func TestSessionManagerCreateWithLimit(t *testing.T) {
	sm := NewSessionManager(2)

	s1, err := sm.CreateWithLimit("/tmp/a")
	if err != nil {
		t.Fatalf("CreateWithLimit() error = %v", err)
	}
	if !strings.HasPrefix(s1.ID, "sw-") {
		t.Fatalf("session ID = %q, want sw- prefix", s1.ID)
	}
	if s1.Status != StatusRunning {
		t.Fatalf("status = %q, want %q", s1.Status, StatusRunning)
	}
	if s1.WorkDir != "/tmp/a" {
		t.Fatalf("work dir = %q, want %q", s1.WorkDir, "/tmp/a")
	}
	if s1.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}

	s2, err := sm.CreateWithLimit("/tmp/b")
	if err != nil {
		t.Fatalf("CreateWithLimit() second error = %v", err)
	}
	if s2.ID == s1.ID {
		t.Fatalf("duplicate session ID %q", s2.ID)
	}

	if _, err := sm.CreateWithLimit("/tmp/c"); err == nil {
		t.Fatal("expected error at the session limit")
	} else if !strings.Contains(err.Error(), "max sessions") {
		t.Fatalf("limit error = %v, want it to mention max sessions", err)
	}

	sm.Destroy(s2.ID)
	if _, err := sm.CreateWithLimit("/tmp/d"); err != nil {
		t.Fatalf("CreateWithLimit() after Destroy error = %v", err)
	}
}

func TestSessionManagerUnlimited(t *testing.T) {
	sm := NewSessionManager(0)
	for i := 0; i < 20; i++ {
		if _, err := sm.CreateWithLimit(""); err != nil {
			t.Fatalf("CreateWithLimit() #%d error = %v", i, err)
		}
	}
	if n := len(sm.List()); n != 20 {
		t.Fatalf("List() returned %d sessions, want 20", n)
	}
}

func TestSessionManagerGet(t *testing.T) {
	sm := NewSessionManager(0)
	s, err := sm.CreateWithLimit("/tmp/work")
	if err != nil {
		t.Fatalf("CreateWithLimit() error = %v", err)
	}

	got, ok := sm.Get(s.ID)
	if !ok {
		t.Fatalf("expected Get(%q) to return true", s.ID)
	}
	if got.ID != s.ID {
		t.Fatalf("expected session ID %q, got %q", s.ID, got.ID)
	}

	if _, ok := sm.Get("sw-does-not-exist"); ok {
		t.Fatal("expected Get of unknown ID to return false")
	}
}

func TestSessionManagerDestroyKillsProcess(t *testing.T) {
	sm := NewSessionManager(0)
	s, err := sm.CreateWithLimit("")
	if err != nil {
		t.Fatalf("CreateWithLimit() error = %v", err)
	}

	h := newFakeHandle()
	s.attach(h)

	sm.Destroy(s.ID)
	if !h.wasKilled() {
		t.Fatal("expected Destroy to kill the attached process")
	}
	if _, ok := sm.Get(s.ID); ok {
		t.Fatalf("session %q still present after Destroy", s.ID)
	}

	// Destroying an unknown ID is a no-op.
	sm.Destroy("sw-does-not-exist")
}

func TestSessionSetResult(t *testing.T) {
	sm := NewSessionManager(0)
	s, err := sm.CreateWithLimit("")
	if err != nil {
		t.Fatalf("CreateWithLimit() error = %v", err)
	}

	s.SetResult("cli-7", "did the thing", StatusCompleted)

	snap := s.Snapshot()
	if snap.CLISessionID != "cli-7" {
		t.Fatalf("CLISessionID = %q, want %q", snap.CLISessionID, "cli-7")
	}
	if snap.LastOutput != "did the thing" {
		t.Fatalf("LastOutput = %q, want %q", snap.LastOutput, "did the thing")
	}
	if snap.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", snap.Status, StatusCompleted)
	}

	// An empty CLI session id must not clobber an earlier one.
	s.SetResult("", "second pass", StatusFailed)
	snap = s.Snapshot()
	if snap.CLISessionID != "cli-7" {
		t.Fatalf("CLISessionID = %q after empty update, want %q", snap.CLISessionID, "cli-7")
	}
	if snap.Status != StatusFailed {
		t.Fatalf("Status = %q, want %q", snap.Status, StatusFailed)
	}
}
