// Package ratelimit enforces sliding-window request limits per client
// identity across three horizons: minute, hour, and day.
//
// Each admitted request is stamped into all three windows; denied
// requests consume no quota. Windows slide continuously, so a client
// blocked at the minute limit is re-admitted as soon as its oldest
// stamp ages past sixty seconds.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	dayWindow    = 24 * time.Hour
)

// Default limits applied when configuration leaves them unset.
const (
	DefaultPerMinute = 10
	DefaultPerHour   = 100
	DefaultPerDay    = 1000
)

// Limits holds the maximum admitted requests per window.
// A limit of zero or less denies every request on that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request may proceed
	Allowed bool

	// Reason names the exhausted window when Allowed is false
	Reason string
}

// Limiter tracks request timestamps per identity. Safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	limits Limits

	minute map[string][]time.Time
	hour   map[string][]time.Time
	day    map[string][]time.Time

	now func() time.Time
}

// New creates a limiter with the given per-window caps.
func New(perMinute, perHour, perDay int) *Limiter {
	return &Limiter{
		limits: Limits{PerMinute: perMinute, PerHour: perHour, PerDay: perDay},
		minute: make(map[string][]time.Time),
		hour:   make(map[string][]time.Time),
		day:    make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Admit checks all three windows for the identity in minute, hour, day
// order and, when every window has room, records the request in all of
// them. The first exhausted window decides the denial reason.
func (l *Limiter) Admit(identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(identity, now)

	if len(l.minute[identity]) >= l.limits.PerMinute {
		return Decision{Reason: fmt.Sprintf("Rate limit exceeded: %d requests per minute", l.limits.PerMinute)}
	}
	if len(l.hour[identity]) >= l.limits.PerHour {
		return Decision{Reason: fmt.Sprintf("Rate limit exceeded: %d requests per hour", l.limits.PerHour)}
	}
	if len(l.day[identity]) >= l.limits.PerDay {
		return Decision{Reason: fmt.Sprintf("Rate limit exceeded: %d requests per day", l.limits.PerDay)}
	}

	l.minute[identity] = append(l.minute[identity], now)
	l.hour[identity] = append(l.hour[identity], now)
	l.day[identity] = append(l.day[identity], now)

	return Decision{Allowed: true}
}

// SetLimits replaces the per-window caps. Existing timestamps are kept,
// so tightening a limit takes effect on the next admission check.
func (l *Limiter) SetLimits(limits Limits) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits = limits
}

// Limits returns the current per-window caps.
func (l *Limiter) Limits() Limits {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limits
}

// prune drops timestamps that have aged out of each window for one
// identity. Identities with no live stamps are removed entirely.
// Caller must hold the mutex.
func (l *Limiter) prune(identity string, now time.Time) {
	pruneWindow(l.minute, identity, now, minuteWindow)
	pruneWindow(l.hour, identity, now, hourWindow)
	pruneWindow(l.day, identity, now, dayWindow)
}

func pruneWindow(m map[string][]time.Time, identity string, now time.Time, window time.Duration) {
	stamps := m[identity]
	if len(stamps) == 0 {
		return
	}

	kept := stamps[:0]
	for _, ts := range stamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}

	if len(kept) == 0 {
		delete(m, identity)
		return
	}
	m[identity] = kept
}
