package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestPollerFetchesImmediatelyAndOnInterval(t *testing.T) {
	var mu sync.Mutex
	applied := 0

	fetch := func(ctx context.Context) ([]resultado, error) {
		return []resultado{{id: "r-1", status: "en_proceso"}}, nil
	}
	p := NewPoller(fetch, 20*time.Millisecond, func([]resultado) {
		mu.Lock()
		applied++
		mu.Unlock()
	}, quietLogger())

	p.Start()
	defer p.Stop()

	if !waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return applied >= 3
	}) {
		t.Fatal("expected an immediate fetch followed by interval fetches")
	}
}

func TestPollerKeepsSnapshotOnFetchError(t *testing.T) {
	var mu sync.Mutex
	call := 0
	var last []resultado

	fetch := func(ctx context.Context) ([]resultado, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n%2 == 0 {
			return nil, errors.New("backend unreachable")
		}
		return []resultado{{id: "r-1", status: "validado"}}, nil
	}
	p := NewPoller(fetch, 15*time.Millisecond, func(items []resultado) {
		mu.Lock()
		last = items
		mu.Unlock()
	}, quietLogger())

	p.Start()
	defer p.Stop()

	// Errors must neither stop the timer nor blank the held collection.
	if !waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return call >= 4 && len(last) == 1
	}) {
		t.Fatal("poller stopped after transient errors")
	}
}

func TestPollerDiscardsStaleResponse(t *testing.T) {
	var mu sync.Mutex
	call := 0
	releaseFirst := make(chan struct{})
	var applies []string

	fetch := func(ctx context.Context) ([]resultado, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n == 1 {
			// Fetch A: stalls until after a newer fetch has been applied.
			<-releaseFirst
			return []resultado{{id: "r-1", status: "stale"}}, nil
		}
		return []resultado{{id: "r-1", status: "fresh"}}, nil
	}
	p := NewPoller(fetch, 15*time.Millisecond, func(items []resultado) {
		mu.Lock()
		applies = append(applies, items[0].status)
		mu.Unlock()
	}, quietLogger())

	p.Start()
	defer p.Stop()

	if !waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applies) >= 1
	}) {
		t.Fatal("no snapshot applied")
	}

	// A resolves after B: it must be discarded, not applied.
	close(releaseFirst)
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, s := range applies {
		if s == "stale" {
			t.Fatal("stale response overwrote fresher data")
		}
	}
}

func TestPollerStopPreventsLateMutation(t *testing.T) {
	var mu sync.Mutex
	applied := 0
	release := make(chan struct{})

	fetch := func(ctx context.Context) ([]resultado, error) {
		<-release
		return []resultado{{id: "r-1", status: "validado"}}, nil
	}
	p := NewPoller(fetch, time.Minute, func([]resultado) {
		mu.Lock()
		applied++
		mu.Unlock()
	}, quietLogger())

	p.Start()
	p.Stop()
	p.Stop() // idempotent

	// The in-flight fetch resolves after teardown; nothing may mutate.
	close(release)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if applied != 0 {
		t.Fatalf("applied %d snapshots after Stop, want 0", applied)
	}
}

func TestTrackerStopIsIdempotent(t *testing.T) {
	tr := newTestTracker(t, func(ctx context.Context) ([]resultado, error) {
		return []resultado{{id: "r-1", status: "pendiente"}}, nil
	})
	tr.Start()
	tr.Stop()
	tr.Stop()
}
