package bus

import "time"

// Event is a domain event published on the bus.
//
// Kinds are dot-separated namespaces, e.g. "transport.message",
// "message.stored", "notify.update".
type Event struct {
	Kind    string
	At      time.Time
	Payload any
}
