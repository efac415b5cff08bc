package notify

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid notification triggers into a single delayed
// SignalUpdate call. A burst of ingests within the window produces exactly
// one UI update.
type Debouncer struct {
	gate   Gate
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer signaling gate after window.
func NewDebouncer(gate Gate, window time.Duration) *Debouncer {
	return &Debouncer{gate: gate, window: window}
}

// Trigger schedules a coalesced SignalUpdate. Triggers arriving while one is
// already scheduled are absorbed into it.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.timer != nil {
		return
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()
	if !stopped {
		d.gate.SignalUpdate(true)
	}
}

// Stop cancels any scheduled signal. A pending notification may be lost;
// that is acceptable on shutdown.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
