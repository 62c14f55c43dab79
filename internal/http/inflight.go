package http

import (
	"context"
	"sync"
	"time"
)

// activeRequests counts requests being served, keyed by route label, so shutdown can
// report which routes are still draining.
type activeRequests struct {
	mu      sync.Mutex
	byRoute map[string]int64
	total   int64
}

func newActiveRequests() *activeRequests {
	return &activeRequests{byRoute: make(map[string]int64)}
}

// begin marks a request on route as started and returns the matching end func.
func (a *activeRequests) begin(route string) (end func()) {
	a.mu.Lock()
	a.byRoute[route]++
	a.total++
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.byRoute[route]--
			if a.byRoute[route] <= 0 {
				delete(a.byRoute, route)
			}
			a.total--
		})
	}
}

func (a *activeRequests) count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

func (a *activeRequests) snapshot() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int64, len(a.byRoute))
	for route, n := range a.byRoute {
		out[route] = n
	}
	return out
}

// drain polls every interval until nothing is active or ctx ends.
func (a *activeRequests) drain(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for a.count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

var inFlight = newActiveRequests()

// InFlightCount returns the number of requests currently being served.
func InFlightCount() int64 { return inFlight.count() }

// InFlightByRoute returns the active request count per route label (/get, /health, ...).
func InFlightByRoute() map[string]int64 { return inFlight.snapshot() }

// WaitForInFlight blocks until no requests are active or ctx is done.
func WaitForInFlight(ctx context.Context, checkInterval time.Duration) error {
	return inFlight.drain(ctx, checkInterval)
}
