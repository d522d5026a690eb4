package tracker

import "sync"

// Overlay holds locally asserted statuses that should visually supersede the
// last-known server status. An entry is created the moment a retry is
// dispatched to the server, before the server responds, and is removed only by
// an explicit Clear: either the triggering request failed (rollback) or the
// reconciler decided the server has caught up.
type Overlay struct {
	mu     sync.RWMutex
	pinned map[string]string
}

// NewOverlay creates an empty overlay store.
func NewOverlay() *Overlay {
	return &Overlay{pinned: make(map[string]string)}
}

// Assert pins id to the given status.
func (o *Overlay) Assert(id, status string) {
	o.mu.Lock()
	o.pinned[id] = status
	o.mu.Unlock()
}

// Clear removes the pin for id, if any.
func (o *Overlay) Clear(id string) {
	o.mu.Lock()
	delete(o.pinned, id)
	o.mu.Unlock()
}

// Has reports whether id is currently pinned.
func (o *Overlay) Has(id string) bool {
	o.mu.RLock()
	_, ok := o.pinned[id]
	o.mu.RUnlock()
	return ok
}

// Status returns the asserted status for id.
func (o *Overlay) Status(id string) (string, bool) {
	o.mu.RLock()
	s, ok := o.pinned[id]
	o.mu.RUnlock()
	return s, ok
}

// IDs returns the currently pinned ids.
func (o *Overlay) IDs() []string {
	o.mu.RLock()
	ids := make([]string, 0, len(o.pinned))
	for id := range o.pinned {
		ids = append(ids, id)
	}
	o.mu.RUnlock()
	return ids
}

// Len returns the number of pinned entries.
func (o *Overlay) Len() int {
	o.mu.RLock()
	n := len(o.pinned)
	o.mu.RUnlock()
	return n
}
