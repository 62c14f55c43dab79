// Package traffic keeps a short sliding window of chat turn outcomes for /health.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one request on the chat route.
type Outcome int

const (
	Answered Outcome = iota // reply written, including provider-error and apology replies
	Failed                  // 5xx: transport, model or deadline failure
	Denied                  // 429 from the rate limiter
	numOutcomes
)

// DefaultMaxAge bounds how long outcomes are retained.
const DefaultMaxAge = 5 * time.Minute

// Snapshot is the outcome count within one window.
type Snapshot struct {
	Answered int `json:"answered"`
	Failed   int `json:"failed"`
	Denied   int `json:"denied"`
}

// Total counts every outcome in the snapshot.
func (s Snapshot) Total() int { return s.Answered + s.Failed + s.Denied }

var defaultTracker = NewTracker(DefaultMaxAge)

// Record adds one outcome to the process-wide tracker.
func Record(o Outcome) { defaultTracker.Record(o) }

// Window returns the process-wide counts within window.
func Window(window time.Duration) Snapshot { return defaultTracker.Window(window) }

// Reset clears the process-wide tracker. For tests only.
func Reset() { defaultTracker.Reset() }

// Tracker holds outcome timestamps in append order, pruned on write.
type Tracker struct {
	mu     sync.Mutex
	maxAge time.Duration
	now    func() time.Time
	times  [numOutcomes][]time.Time
}

func NewTracker(maxAge time.Duration) *Tracker {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Tracker{maxAge: maxAge, now: time.Now}
}

// Record appends an outcome. Unknown outcomes are ignored.
func (t *Tracker) Record(o Outcome) {
	if o < 0 || o >= numOutcomes {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Window counts outcomes no older than window. Windows beyond maxAge see at most maxAge.
func (t *Tracker) Window(window time.Duration) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	return Snapshot{
		Answered: countSince(t.times[Answered], cutoff),
		Failed:   countSince(t.times[Failed], cutoff),
		Denied:   countSince(t.times[Denied], cutoff),
	}
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.times {
		t.times[i] = nil
	}
}

// countSince relies on times being ascending.
func countSince(times []time.Time, cutoff time.Time) int {
	for i, ts := range times {
		if !ts.Before(cutoff) {
			return len(times) - i
		}
	}
	return 0
}

// pruneLocked drops timestamps older than maxAge. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.maxAge)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
