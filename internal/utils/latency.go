package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded ring of recent request durations per endpoint.
type LatencyTracker struct {
	mu      sync.RWMutex
	rings   map[string]*latencyRing
	maxSize int
}

type latencyRing struct {
	samples []time.Duration
	next    int
	full    bool
}

// NewLatencyTracker creates a tracker storing up to maxSize samples per endpoint.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{rings: make(map[string]*latencyRing), maxSize: maxSize}
}

// Observe records a duration for endpoint, overwriting the oldest sample once full.
func (l *LatencyTracker) Observe(endpoint string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ring, ok := l.rings[endpoint]
	if !ok {
		ring = &latencyRing{samples: make([]time.Duration, l.maxSize)}
		l.rings[endpoint] = ring
	}
	ring.samples[ring.next] = d
	ring.next = (ring.next + 1) % l.maxSize
	if ring.next == 0 {
		ring.full = true
	}
}

// Percentile returns the p-th percentile (0-100) for endpoint, or zero without samples.
func (l *LatencyTracker) Percentile(endpoint string, p float64) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ring, ok := l.rings[endpoint]
	if !ok {
		return 0
	}
	sorted := ring.values()
	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[int((p/100.0)*float64(len(sorted)-1))]
}

// Count returns the number of samples held for endpoint.
func (l *LatencyTracker) Count(endpoint string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ring, ok := l.rings[endpoint]
	if !ok {
		return 0
	}
	if ring.full {
		return len(ring.samples)
	}
	return ring.next
}

// Endpoints lists every endpoint with at least one sample, sorted.
func (l *LatencyTracker) Endpoints() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.rings))
	for name := range l.rings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *latencyRing) values() []time.Duration {
	if r.full {
		return append([]time.Duration(nil), r.samples...)
	}
	return append([]time.Duration(nil), r.samples[:r.next]...)
}
