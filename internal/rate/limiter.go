package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleEviction = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-identifier token bucket. Identifiers are usernames or
// phone numbers; the zero identifier shares one bucket.
type Limiter struct {
	perMinute int
	burst     int

	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// New creates a limiter allowing perMinute sustained attempts with the given
// burst. Non-positive values fall back to 10/min, burst 5.
func New(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		perMinute: perMinute,
		burst:     burst,
		entries:   map[string]*entry{},
		now:       time.Now,
	}
}

// Allow reports whether one more attempt for identifier may proceed now.
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst)}
		l.entries[identifier] = e
	}
	e.lastSeen = now

	for id, other := range l.entries {
		if now.Sub(other.lastSeen) > idleEviction {
			delete(l.entries, id)
		}
	}

	return e.limiter.Allow()
}
