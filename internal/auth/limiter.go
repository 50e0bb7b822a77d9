// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter throttles login attempts per client IP to slow brute
// forcing. Each IP gets a token bucket that refills over the window.
type loginLimiter struct {
	mu       sync.Mutex
	perIP    map[string]*ipLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
	lastSeen time.Duration
}

type ipLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// newLoginLimiter allows attempts tries per window per IP.
func newLoginLimiter(attempts int, window time.Duration) *loginLimiter {
	if attempts <= 0 {
		attempts = 5
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &loginLimiter{
		perIP:    make(map[string]*ipLimiter),
		limit:    rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
		now:      time.Now,
		lastSeen: 2 * window,
	}
}

// Allow reports whether this IP may attempt a login right now.
func (l *loginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.perIP[ip]
	if !ok {
		// Opportunistic cleanup keeps the map bounded without a sweeper
		// goroutine; login traffic is sparse enough for this to be cheap.
		for addr, e := range l.perIP {
			if now.Sub(e.seen) > l.lastSeen {
				delete(l.perIP, addr)
			}
		}
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.perIP[ip] = entry
	}
	entry.seen = now
	return entry.limiter.AllowN(now, 1)
}
