// Package http contains the Fiber handlers of the API surface.
package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// stateTTL bounds how long an OAuth consent round-trip may take.
const stateTTL = 10 * time.Minute

// generateState returns a cryptographically random state nonce.
func generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// stateStore holds pending OAuth state nonces. Single-process scope is
// enough: the callback lands on the same server that issued the nonce.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[string]time.Time)}
}

func (s *stateStore) issue() (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for st, exp := range s.states {
		if time.Now().After(exp) {
			delete(s.states, st)
		}
	}
	s.states[state] = time.Now().Add(stateTTL)
	return state, nil
}

// consume validates and burns a state nonce. Each nonce is single use.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return time.Now().Before(exp)
}
