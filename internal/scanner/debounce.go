// Package scanner filters the noisy stream of decoded codes coming from a
// camera decoder before it reaches the bill draft.
package scanner

import (
	"sync"
	"time"
)

// CooldownWindow is how long scanning stays suppressed after an accepted code.
const CooldownWindow = 2000 * time.Millisecond

// Debouncer suppresses duplicate and rapid rescans.
//
// It is idle until a code is accepted, then cooling for CooldownWindow. While
// cooling every code is dropped, and the last accepted code is never accepted
// twice in a row until the window has elapsed and cleared it.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time

	cooling      bool
	acceptedAt   time.Time
	lastAccepted string
}

// NewDebouncer creates a Debouncer using window and the clock now.
// A nil clock means time.Now.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{window: window, now: now}
}

// Accept reports whether code should be forwarded to the draft.
func (d *Debouncer) Accept(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expire()
	if d.cooling || code == d.lastAccepted {
		return false
	}

	d.cooling = true
	d.acceptedAt = d.now()
	d.lastAccepted = code
	return true
}

// Cooling reports whether the debouncer is inside its cooldown window.
func (d *Debouncer) Cooling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expire()
	return d.cooling
}

// Reset returns the debouncer to idle and forgets the last accepted code.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cooling = false
	d.lastAccepted = ""
}

// expire ends the cooldown once the window has elapsed since acceptance.
// Caller must hold d.mu.
func (d *Debouncer) expire() {
	if d.cooling && d.now().Sub(d.acceptedAt) >= d.window {
		d.cooling = false
		d.lastAccepted = ""
	}
}
