package lifecycle

import "sync/atomic"

// Phase is the process lifecycle stage reported by /health.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseReady
	PhaseShuttingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseReady:
		return "ready"
	case PhaseShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// SetPhase records the current phase.
func SetPhase(p Phase) {
	phase.Store(int32(p))
}

// CurrentPhase returns the current phase. A fresh process is starting until
// catalogs and the generator are loaded.
func CurrentPhase() Phase {
	return Phase(phase.Load())
}

// MarkReady moves a starting process to ready. It never overrides shutting-down.
func MarkReady() bool {
	return phase.CompareAndSwap(int32(PhaseStarting), int32(PhaseReady))
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health handler returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	if v {
		SetPhase(PhaseShuttingDown)
		return
	}
	phase.CompareAndSwap(int32(PhaseShuttingDown), int32(PhaseReady))
}
