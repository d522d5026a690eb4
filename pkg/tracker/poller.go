// Package tracker keeps a client-side view of long-running verification work
// fresh by polling, and lets callers layer short-lived optimistic status
// assertions on top of the server truth until the server catches up.
//
// There is no push channel: all freshness comes from fixed-interval polling.
// Overlay entries have no expiry of their own; if the backend never moves a
// pinned item forward the optimistic state is shown indefinitely. That is a
// known limitation, accepted in exchange for keeping the reconciler the single
// clearing authority.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the polling cadence used when none is configured.
const DefaultInterval = 5 * time.Second

// FetchFunc returns a full snapshot of the tracked collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Poller re-fetches a collection snapshot on a fixed interval and hands each
// successful snapshot to an apply callback. Snapshots replace the previous
// collection wholesale; fetch errors are logged and swallowed so that stale
// data keeps being shown instead of blanking the view.
type Poller[T any] struct {
	fetch    FetchFunc[T]
	interval time.Duration
	apply    func([]T)
	log      *logrus.Logger

	mu      sync.Mutex
	seq     uint64 // last issued fetch
	applied uint64 // last applied fetch
	started bool
	stopped bool
	cancel  context.CancelFunc
}

// NewPoller creates a poller. The apply callback is invoked with every
// snapshot that is still the newest one at the time its fetch resolves.
func NewPoller[T any](fetch FetchFunc[T], interval time.Duration, apply func([]T), log *logrus.Logger) *Poller[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Poller[T]{
		fetch:    fetch,
		interval: interval,
		apply:    apply,
		log:      log,
	}
}

// Start fetches once immediately and then keeps fetching every interval until
// Stop is called. Calling Start more than once has no effect.
func (p *Poller[T]) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *Poller[T]) run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll issues one fetch tagged with a monotonic sequence number. The fetch
// runs in its own goroutine so a slow response never delays the next tick; a
// response that resolves after a newer one has already been applied is
// discarded rather than allowed to overwrite fresher data.
func (p *Poller[T]) poll(ctx context.Context) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	go func() {
		items, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.log.WithError(err).Warn("tracker: poll failed, keeping previous snapshot")
			}
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped || seq <= p.applied {
			return
		}
		p.applied = seq
		p.apply(items)
	}()
}

// Stop cancels the timer and any in-flight fetch. It is idempotent, and after
// it returns no snapshot will be applied even if a fetch resolves later.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
