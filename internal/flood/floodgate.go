// Package flood provides per-client request flood prevention for the HTTP host.
package flood

import (
	"context"
	"sync"
	"time"
)

const (
	// windowDuration is the fixed sliding window (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often Run prunes idle clients
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a client may stay silent before its entry is dropped
	idleTimeout = 10 * time.Minute
)

// Floodgate limits requests per client and route with a sliding window.
// A limit of zero or less disables limiting.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*clientEntry // Key: "route:client"
	mutex          sync.Mutex
	now            func() time.Time
}

type clientEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate allowing limitPerMinute requests per client and route.
func New(limitPerMinute int) *Floodgate {
	return &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		now:            time.Now,
	}
}

// Allow records a request and reports whether it is within the limit.
func (fg *Floodgate) Allow(route, client string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	key := route + ":" + client
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[key]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[key] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// Run prunes idle clients until ctx is done.
func (fg *Floodgate) Run(ctx context.Context) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.prune()
		case <-ctx.Done():
			return nil
		}
	}
}

func (fg *Floodgate) prune() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		ActiveClients:  len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
