package tracker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config describes one tracked collection. The tracker is parameterized by
// id- and status-extraction functions so the same reconciliation logic serves
// both the consulta list and a consulta's resultado detail view.
type Config[T any] struct {
	// Fetch returns a full snapshot of the collection.
	Fetch FetchFunc[T]
	// Interval is the poll cadence. Defaults to DefaultInterval.
	Interval time.Duration
	// IDOf extracts the stable identifier of an item.
	IDOf func(T) string
	// StatusOf extracts the server-reported status of an item.
	StatusOf func(T) string
	// Retryable is the server status a pinned item is waiting to move off
	// (for resultados: "offline"). While the server still reports this
	// status the overlay is kept so the view does not flicker back to the
	// retryable treatment; any other server status clears the pin.
	Retryable string
	// Logger receives poll failures. Defaults to the logrus standard logger.
	Logger *logrus.Logger
}

// Entry is one item with its effective status resolved.
type Entry[T any] struct {
	Item   T
	Status string
	Pinned bool
}

// Tracker composes a Poller with an Overlay and reconciles the two after
// every successful poll. The effective status shown to a consumer is always
// derived, never stored: overlay status if pinned, server status otherwise.
type Tracker[T any] struct {
	poller    *Poller[T]
	overlay   *Overlay
	idOf      func(T) string
	statusOf  func(T) string
	retryable string

	mu    sync.RWMutex
	items []T
	byID  map[string]T
}

// New creates a tracker for one view. Call Start to begin polling and Stop
// when the view goes away; overlay state never outlives the tracker.
func New[T any](cfg Config[T]) (*Tracker[T], error) {
	if cfg.Fetch == nil {
		return nil, errors.New("tracker: Fetch is required")
	}
	if cfg.IDOf == nil || cfg.StatusOf == nil {
		return nil, errors.New("tracker: IDOf and StatusOf are required")
	}

	t := &Tracker[T]{
		overlay:   NewOverlay(),
		idOf:      cfg.IDOf,
		statusOf:  cfg.StatusOf,
		retryable: cfg.Retryable,
		byID:      make(map[string]T),
	}
	t.poller = NewPoller(cfg.Fetch, cfg.Interval, t.reconcile, cfg.Logger)
	return t, nil
}

// Start begins polling: one immediate fetch, then one every interval.
func (t *Tracker[T]) Start() { t.poller.Start() }

// Stop deactivates the tracker. Idempotent; no state mutates afterwards.
func (t *Tracker[T]) Stop() { t.poller.Stop() }

// reconcile replaces the held collection with a fresh snapshot and decides,
// per pinned id, whether the override is still needed. The overlay only
// exists to bridge the window between "retry dispatched" and "server snapshot
// reflects it": once the server reports anything other than the retryable
// state — including its own confirmation of the retry — the pin is redundant
// and server truth must show, so a later failure is never masked.
func (t *Tracker[T]) reconcile(items []T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byID := make(map[string]T, len(items))
	for _, item := range items {
		id := t.idOf(item)
		byID[id] = item
		if t.overlay.Has(id) && t.statusOf(item) != t.retryable {
			t.overlay.Clear(id)
		}
	}

	// Items deleted server-side drop out together with their pins.
	for _, id := range t.overlay.IDs() {
		if _, ok := byID[id]; !ok {
			t.overlay.Clear(id)
		}
	}

	t.items = items
	t.byID = byID
}

// MarkRetry pins id to the asserted status. Call it synchronously when the
// retry request is dispatched, before the server responds.
func (t *Tracker[T]) MarkRetry(id, status string) {
	t.overlay.Assert(id, status)
}

// RollbackRetry removes the pin for id. Call it when the retry request
// itself fails, so the view reverts to the true retryable state.
func (t *Tracker[T]) RollbackRetry(id string) {
	t.overlay.Clear(id)
}

// Pinned reports whether id currently has an optimistic override.
func (t *Tracker[T]) Pinned(id string) bool {
	return t.overlay.Has(id)
}

// EffectiveStatus resolves the status to display for id. The second return
// is false when the id is not part of the latest snapshot.
func (t *Tracker[T]) EffectiveStatus(id string) (string, bool) {
	t.mu.RLock()
	item, ok := t.byID[id]
	t.mu.RUnlock()
	if !ok {
		return "", false
	}
	if s, pinned := t.overlay.Status(id); pinned {
		return s, true
	}
	return t.statusOf(item), true
}

// Snapshot returns the latest collection with effective statuses resolved,
// in server order.
func (t *Tracker[T]) Snapshot() []Entry[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry[T], 0, len(t.items))
	for _, item := range t.items {
		id := t.idOf(item)
		status := t.statusOf(item)
		pinned := false
		if s, ok := t.overlay.Status(id); ok {
			status = s
			pinned = true
		}
		entries = append(entries, Entry[T]{Item: item, Status: status, Pinned: pinned})
	}
	return entries
}
