package tracker

import (
	"sync"
	"time"
)

// DefaultHorizon is how long an in-progress item takes to reach 100% on the
// estimated progress bar.
const DefaultHorizon = 5 * time.Minute

// Estimator computes a purely cosmetic completion percentage for in-progress
// items as min(1, elapsed/horizon). It does not reflect real backend
// progress and must be presented as a labeled estimate.
//
// The first start time observed for an id sticks: snapshots are replaced
// wholesale on every poll, but the recorded start survives so the bar never
// jumps backwards. Consumers drive rendering with their own ticker
// (typically 1s), decoupled from the poll cadence.
type Estimator struct {
	horizon time.Duration
	now     func() time.Time

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewEstimator creates an estimator. A non-positive horizon falls back to
// DefaultHorizon.
func NewEstimator(horizon time.Duration) *Estimator {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Estimator{
		horizon: horizon,
		now:     time.Now,
		starts:  make(map[string]time.Time),
	}
}

// Observe records the start time for id if none is recorded yet. A zero
// startedAt falls back to the moment the id was first seen.
func (e *Estimator) Observe(id string, startedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.starts[id]; ok {
		return
	}
	if startedAt.IsZero() {
		startedAt = e.now()
	}
	e.starts[id] = startedAt
}

// Percent returns the estimated completion for id in [0, 100]. Unknown ids
// report 0.
func (e *Estimator) Percent(id string) int {
	e.mu.Lock()
	start, ok := e.starts[id]
	now := e.now()
	e.mu.Unlock()
	if !ok {
		return 0
	}

	elapsed := now.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= e.horizon {
		return 100
	}
	return int(elapsed * 100 / e.horizon)
}

// Forget drops the recorded start for id, e.g. once it leaves the
// in-progress state.
func (e *Estimator) Forget(id string) {
	e.mu.Lock()
	delete(e.starts, id)
	e.mu.Unlock()
}
