// Package transport carries messages between the engine and the network.
// The loopback dispatcher is the in-process stand-in used until a real
// server connection is wired: it acknowledges every send immediately and
// lets callers inject incoming traffic onto the bus.
package transport

import (
	"time"

	"github.com/mrotondi/chatengine/internal/bus"
	"github.com/mrotondi/chatengine/internal/ingest"
	"go.uber.org/zap"
)

// Acker confirms delivery back to the outgoing lifecycle. The outbox
// manager implements it.
type Acker interface {
	MarkSent(id int64) error
}

// Loopback is a dispatcher that treats every send as delivered.
type Loopback struct {
	bus    *bus.Bus
	acker  Acker
	logger *zap.Logger
}

// NewLoopback creates a loopback dispatcher publishing on b.
func NewLoopback(b *bus.Bus, logger *zap.Logger) *Loopback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loopback{bus: b, logger: logger}
}

// SetAcker attaches the delivery confirmation target. Attached separately
// to break the construction cycle with the outbox manager.
func (l *Loopback) SetAcker(a Acker) {
	l.acker = a
}

// SendText acknowledges the message immediately.
func (l *Loopback) SendText(peer, body string, encrypted bool, messageID int64, wireID string) error {
	l.logger.Debug("loopback send",
		zap.String("peer", peer),
		zap.Int64("message", messageID),
		zap.Bool("encrypted", encrypted))
	return l.ack(messageID)
}

// SendGroupText acknowledges the message immediately.
func (l *Loopback) SendGroupText(groupJID, subject string, members []string, body string, encrypted bool, messageID int64, wireID string) error {
	l.logger.Debug("loopback group send",
		zap.String("group", groupJID),
		zap.Int("members", len(members)),
		zap.Int64("message", messageID))
	return l.ack(messageID)
}

// Deliver injects an incoming message as if it arrived from the network.
func (l *Loopback) Deliver(msg *ingest.DecodedMessage) {
	l.bus.Publish(bus.Event{
		Kind:    "transport.message",
		At:      time.Now(),
		Payload: msg,
	})
}

func (l *Loopback) ack(messageID int64) error {
	if l.acker == nil {
		return nil
	}
	if err := l.acker.MarkSent(messageID); err != nil {
		l.logger.Warn("acknowledge send", zap.Int64("message", messageID), zap.Error(err))
	}
	return nil
}
