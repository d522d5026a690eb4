package tracker

import (
	"testing"
	"time"
)

func TestEstimatorMonotonicAndClamped(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	e := NewEstimator(5 * time.Minute)
	e.now = func() time.Time { return now }

	e.Observe("c-1", base)

	prev := -1
	for i := 0; i <= 400; i += 10 {
		now = base.Add(time.Duration(i) * time.Second)
		pct := e.Percent("c-1")
		if pct < prev {
			t.Fatalf("progress went backwards at t=%ds: %d < %d", i, pct, prev)
		}
		if pct < 0 || pct > 100 {
			t.Fatalf("progress out of range at t=%ds: %d", i, pct)
		}
		prev = pct
	}

	now = base.Add(10 * time.Minute)
	if pct := e.Percent("c-1"); pct != 100 {
		t.Errorf("past the horizon: percent = %d, want 100", pct)
	}
}

func TestEstimatorStartRecordedOnce(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(2 * time.Minute)
	e := NewEstimator(5 * time.Minute)
	e.now = func() time.Time { return now }

	e.Observe("c-1", base)
	before := e.Percent("c-1")

	// Snapshots are replaced wholesale every poll; re-observing with a later
	// timestamp must not restart the bar.
	e.Observe("c-1", now)
	if after := e.Percent("c-1"); after != before {
		t.Errorf("re-observe changed percent: %d != %d", after, before)
	}
}

func TestEstimatorZeroStartFallsBackToFirstSeen(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	e := NewEstimator(5 * time.Minute)
	e.now = func() time.Time { return now }

	e.Observe("c-2", time.Time{})
	if pct := e.Percent("c-2"); pct != 0 {
		t.Errorf("percent at first-seen = %d, want 0", pct)
	}

	now = base.Add(150 * time.Second) // half the horizon
	if pct := e.Percent("c-2"); pct != 50 {
		t.Errorf("percent at half horizon = %d, want 50", pct)
	}
}

func TestEstimatorUnknownAndForgotten(t *testing.T) {
	e := NewEstimator(0)
	if e.horizon != DefaultHorizon {
		t.Errorf("horizon = %v, want default %v", e.horizon, DefaultHorizon)
	}
	if pct := e.Percent("missing"); pct != 0 {
		t.Errorf("unknown id percent = %d, want 0", pct)
	}

	e.Observe("c-3", time.Now().Add(-time.Hour))
	e.Forget("c-3")
	if pct := e.Percent("c-3"); pct != 0 {
		t.Errorf("forgotten id percent = %d, want 0", pct)
	}
}
