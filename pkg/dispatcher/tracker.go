package dispatcher

import "sync"

// Tracker holds the slots of one run, indexed like the input frames.
// Readers may observe a mix of pending and settled slots at any time.
type Tracker struct {
	mu      sync.Mutex
	slots   []ScreenAuditResult
	settled int
	done    chan struct{}
}

// NewTracker creates a tracker with one pending slot per frame.
func NewTracker(frames []Frame) *Tracker {
	t := &Tracker{
		slots: make([]ScreenAuditResult, len(frames)),
		done:  make(chan struct{}),
	}
	for i, f := range frames {
		t.slots[i] = Pending(f)
	}
	if len(frames) == 0 {
		close(t.done)
	}
	return t
}

// Complete settles slot i. Settled slots never change again; later calls
// for the same index and out of range indices are ignored.
func (t *Tracker) Complete(i int, r ScreenAuditResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i < 0 || i >= len(t.slots) || t.slots[i].Settled() {
		return
	}
	r.IsLoading = false
	t.slots[i] = r
	t.settled++
	if t.settled == len(t.slots) {
		close(t.done)
	}
}

// Snapshot returns a copy of all slots in input order.
func (t *Tracker) Snapshot() []ScreenAuditResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ScreenAuditResult, len(t.slots))
	copy(out, t.slots)
	return out
}

// Progress returns how many slots have settled out of the total.
func (t *Tracker) Progress() (settled, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled, len(t.slots)
}

// Done is closed once every slot has settled.
func (t *Tracker) Done() <-chan struct{} { return t.done }
