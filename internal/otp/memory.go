package otp

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// MemoryStore is a process-local Store. Entries are lost on restart.
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxAttempts int
	now         func() time.Time
}

func NewMemoryStore(maxAttempts int) *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]*entry),
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, phone, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[phone] = &entry{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Verify(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[phone]
	if !ok {
		return ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, phone)
		return ErrExpired
	}
	if e.code != code {
		e.attempts++
		if e.attempts >= s.maxAttempts {
			delete(s.entries, phone)
			return ErrTooManyAttempts
		}
		return ErrMismatch
	}
	delete(s.entries, phone)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, phone)
	return nil
}

// Sweep evicts expired entries and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for phone, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, phone)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
