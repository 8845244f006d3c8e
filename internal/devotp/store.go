// Package devotp keeps the plaintext of the newest OTP per (agreement, email) pair so the dev-only
// GET /dev/otp route can return it. It is never wired in production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plaintext codes for dev-only retrieval.
type Store interface {
	// Put stores code for the pair until expiresAt, replacing any earlier code.
	Put(ctx context.Context, agreementID, email, code string, expiresAt time.Time)
	// Get returns the code for the pair if present and not expired.
	Get(ctx context.Context, agreementID, email string) (code string, ok bool)
}

type key struct {
	agreementID string
	email       string
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[key]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[key]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code for the pair until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, agreementID, email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key{agreementID, email}] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for the pair if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, agreementID, email string) (string, bool) {
	k := key{agreementID, email}
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
