package otp

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits how often a code may be issued per key (phone number).
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    time.Duration
	burst    int
}

func NewThrottle(every time.Duration, burst int) *Throttle {
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		every:    every,
		burst:    burst,
	}
}

func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.every), t.burst)
		t.limiters[key] = l
	}
	t.mu.Unlock()
	return l.Allow()
}

// Prune drops limiters that have fully refilled; they behave the same as new ones.
func (t *Throttle) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, l := range t.limiters {
		if l.Tokens() >= float64(t.burst) {
			delete(t.limiters, key)
			removed++
		}
	}
	return removed
}
