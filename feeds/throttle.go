package feeds

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type viewerKey struct {
	videoID int64
	userID  int64
}

type viewerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyLimiter rations view pings per (video, user) key so a looping player cannot spam
// the counter endpoint. Idle entries expire after the ttl.
type keyLimiter struct {
	mu      sync.Mutex
	entries map[viewerKey]*viewerEntry
	limit   rate.Limit
	ttl     time.Duration
	now     func() time.Time
}

func newKeyLimiter(window time.Duration) *keyLimiter {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &keyLimiter{
		entries: make(map[viewerKey]*viewerEntry),
		limit:   rate.Every(window),
		ttl:     10 * window,
		now:     time.Now,
	}
}

func (l *keyLimiter) Allow(key viewerKey) bool {
	now := l.now()

	l.mu.Lock()
	entry := l.getEntryLocked(key, now)
	l.gcLocked(now)
	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *keyLimiter) getEntryLocked(key viewerKey, now time.Time) *viewerEntry {
	if entry, ok := l.entries[key]; ok {
		entry.lastSeen = now
		return entry
	}

	entry := &viewerEntry{limiter: rate.NewLimiter(l.limit, 1), lastSeen: now}
	l.entries[key] = entry
	return entry
}

func (l *keyLimiter) gcLocked(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.ttl {
			delete(l.entries, key)
		}
	}
}
