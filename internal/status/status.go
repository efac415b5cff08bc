package status

import "slices"

// State represents a message delivery status.
type State string

const (
	// Received is the terminal state for incoming messages.
	Received State = "received"
	// Queued means a binary message is waiting for media preparation.
	Queued State = "queued"
	// Sending means the message has been handed to the transport.
	Sending State = "sending"
	// Sent means the transport acknowledged delivery.
	Sent State = "sent"
	// Failed means the transport reported a permanent error.
	Failed State = "failed"
	// Pending means the message is held back waiting for a trust decision
	// on the recipient's key.
	Pending State = "pending"
)

// validTransitions defines allowed delivery status transitions.
// Retry is deliberately not modeled here: a user- or trust-initiated retry
// forces Sending regardless of the current state.
var validTransitions = map[State][]State{
	Queued:  {Sending, Failed},
	Sending: {Sent, Failed, Pending},
	Pending: {Sending},
}

// Valid reports whether moving from one delivery state to another is an
// allowed transition.
func Valid(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// Terminal reports whether a state admits no further transitions.
func Terminal(s State) bool {
	return len(validTransitions[s]) == 0
}
