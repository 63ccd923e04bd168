package bot

import (
	"testing"
	"time"
)

func newTestSessions() (*Sessions, *time.Time) {
	now := time.UnixMilli(1700000000000)
	s := NewSessions()
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSessions_SingleUse(t *testing.T) {
	s, _ := newTestSessions()
	token, err := s.Issue(42, "snake")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}

	if !s.Validate(token, 42, "snake") {
		t.Fatal("first Validate() = false")
	}
	if s.Validate(token, 42, "snake") {
		t.Error("token validated twice")
	}
}

func TestSessions_Mismatch(t *testing.T) {
	s, _ := newTestSessions()
	token, _ := s.Issue(42, "snake")

	if s.Validate(token, 43, "snake") {
		t.Error("wrong user accepted")
	}
	if s.Validate(token, 42, "pacman") {
		t.Error("wrong game accepted")
	}
	if s.Validate("deadbeef", 42, "snake") {
		t.Error("unknown token accepted")
	}
	// mismatches do not burn the token
	if !s.Validate(token, 42, "snake") {
		t.Error("token should still be valid")
	}
}

func TestSessions_Expiry(t *testing.T) {
	s, now := newTestSessions()
	token, _ := s.Issue(1, "memory")
	other, _ := s.Issue(2, "memory")

	*now = now.Add(SessionTTL + time.Second)
	if s.Validate(token, 1, "memory") {
		t.Error("expired token accepted")
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 after expired validate", got)
	}
	if got := s.Prune(); got != 1 {
		t.Errorf("Prune() = %d, want 1", got)
	}
	if s.Validate(other, 2, "memory") {
		t.Error("pruned token accepted")
	}
}

func TestSessions_Revoke(t *testing.T) {
	s, _ := newTestSessions()
	token, _ := s.Issue(1, "bonk")
	s.Revoke(token)
	if s.Validate(token, 1, "bonk") {
		t.Error("revoked token accepted")
	}
}
