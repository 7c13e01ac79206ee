package http

import "testing"

func TestStateStoreIssueAndConsume(t *testing.T) {
	s := newStateStore()

	state, err := s.issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(state) != 64 {
		t.Errorf("state length = %d, want 64 hex chars", len(state))
	}

	if !s.consume(state) {
		t.Error("fresh state rejected")
	}
	// Nonces are single use.
	if s.consume(state) {
		t.Error("state consumed twice")
	}
	if s.consume("never-issued") {
		t.Error("unknown state accepted")
	}
}

func TestStateStoreIssuesUniqueNonces(t *testing.T) {
	s := newStateStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := s.issue()
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if seen[state] {
			t.Fatal("duplicate nonce issued")
		}
		seen[state] = true
	}
}
