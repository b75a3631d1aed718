package ratelimit

import (
	"sync"
	"time"
)

// Category of a remote call, used for per-category budgets.
type Category string

const (
	CategoryTickets   Category = "tickets"
	CategoryReference Category = "reference"
)

const window = time.Minute

type call struct {
	at       time.Time
	category Category
}

// Limiter is a sliding-window admission controller for the upstream API.
// Two independent ceilings apply: an overall per-minute budget across all
// categories and a tighter budget for the high-volume ticket category.
// One instance is shared process-wide so that accounting is global.
type Limiter struct {
	mu           sync.Mutex
	overallLimit int
	ticketsLimit int
	calls        []call
	now          func() time.Time
}

func New(overallLimit, ticketsLimit int) *Limiter {
	return &Limiter{
		overallLimit: overallLimit,
		ticketsLimit: ticketsLimit,
		now:          time.Now,
	}
}

// Allow reports whether a new call in the given category fits both budgets.
// The window slides continuously, so the answer must be recomputed on every
// call: stale entries are purged first.
func (l *Limiter) Allow(category Category) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge()

	if len(l.calls) >= l.overallLimit {
		return false
	}
	if category == CategoryTickets {
		tickets := 0
		for _, c := range l.calls {
			if c.category == CategoryTickets {
				tickets++
			}
		}
		if tickets >= l.ticketsLimit {
			return false
		}
	}
	return true
}

// Record notes that a call was made. Callers record after Allow; the
// limiter does not admit and record atomically because pagination is
// strictly sequential per request.
func (l *Limiter) Record(category Category) {
	l.mu.Lock()
	l.calls = append(l.calls, call{at: l.now(), category: category})
	l.mu.Unlock()
}

// WaitTime returns how long until the oldest counted call leaves the
// window, i.e. the shortest wait after which an admission check can
// succeed again. Zero when the window is not saturated.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge()
	if len(l.calls) == 0 {
		return 0
	}
	wait := window - l.now().Sub(l.calls[0].at)
	if wait < 0 {
		return 0
	}
	return wait
}

// purge drops entries older than the window. Callers hold l.mu.
func (l *Limiter) purge() {
	cutoff := l.now().Add(-window)
	kept := l.calls[:0]
	for _, c := range l.calls {
		if c.at.After(cutoff) {
			kept = append(kept, c)
		}
	}
	l.calls = kept
}
