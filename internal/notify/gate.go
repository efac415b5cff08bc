// Package notify carries the user-notification boundary: the Gate interface
// consumed by the ingestion pipeline, a coalescing debouncer in front of it,
// and a bus-backed gate used by the daemon.
package notify

import (
	"sync"
	"time"

	"github.com/mrotondi/chatengine/internal/bus"
)

// Gate decides whether and how the user is notified of stored messages.
type Gate interface {
	// IsConversationPaused reports whether the conversation with the given
	// peer or group jid is currently open in the UI, suppressing
	// notifications for it.
	IsConversationPaused(peer string) bool
	// SignalUpdate asks the UI layer to refresh its notification state.
	SignalUpdate(coalesce bool)
}

// BusGate is a Gate that publishes notification updates on the event bus
// and tracks the currently open conversation.
type BusGate struct {
	bus    *bus.Bus
	mu     sync.RWMutex
	active string
}

// NewBusGate creates a gate publishing on b.
func NewBusGate(b *bus.Bus) *BusGate {
	return &BusGate{bus: b}
}

// SetActive records the conversation currently open in the UI.
func (g *BusGate) SetActive(peer string) {
	g.mu.Lock()
	g.active = peer
	g.mu.Unlock()
}

// ClearActive records that no conversation is open.
func (g *BusGate) ClearActive() {
	g.SetActive("")
}

// IsConversationPaused implements Gate.
func (g *BusGate) IsConversationPaused(peer string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active != "" && g.active == peer
}

// SignalUpdate implements Gate.
func (g *BusGate) SignalUpdate(coalesce bool) {
	g.bus.Publish(bus.Event{Kind: "notify.update", At: time.Now(), Payload: coalesce})
}
