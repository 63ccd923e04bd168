package idhash

import (
	"regexp"
	"testing"
)

func TestComputeSessionToken(t *testing.T) {
	got := ComputeSessionToken(42, "snake", 1700000000000, "abc")
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(got) {
		t.Fatalf("ComputeSessionToken() = %q, want 64 hex chars", got)
	}
	if again := ComputeSessionToken(42, "snake", 1700000000000, "abc"); again != got {
		t.Error("ComputeSessionToken() not deterministic")
	}
	if ComputeSessionToken(42, "flappy", 1700000000000, "abc") == got {
		t.Error("different game should change the token")
	}
}

func TestRandomNonce(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := RandomNonce()
		if err != nil {
			t.Fatalf("RandomNonce() error: %v", err)
		}
		if len(n) == 0 || len(n) > 11 {
			t.Fatalf("RandomNonce() = %q, bad length", n)
		}
		seen[n] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct nonces out of 50", len(seen))
	}
}
