// Package outbox owns the outgoing message lifecycle: creating locally
// queued messages, tracking their delivery status, and releasing messages
// held back on trust decisions.
package outbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mrotondi/chatengine/internal/bus"
	"github.com/mrotondi/chatengine/internal/config"
	"github.com/mrotondi/chatengine/internal/status"
	"github.com/mrotondi/chatengine/internal/store"
	"go.uber.org/zap"
)

// Dispatcher hands finished messages to the transport layer.
type Dispatcher interface {
	SendText(peer, body string, encrypted bool, messageID int64, wireID string) error
	SendGroupText(groupJID, subject string, members []string, body string, encrypted bool, messageID int64, wireID string) error
}

// Preparer processes outgoing media (thumbnails, recompression) before a
// binary message may be sent. It reports back via Manager.MediaPrepared.
type Preparer interface {
	Prepare(messageID int64, wireID string, sourceURI, mime string, isMedia bool, compress int)
}

// Manager creates outgoing messages and drives their status transitions.
type Manager struct {
	db         *store.DB
	dispatcher Dispatcher
	preparer   Preparer
	bus        *bus.Bus
	cfg        *config.Config
	logger     *zap.Logger
}

// NewManager creates an outgoing lifecycle manager.
func NewManager(db *store.DB, dispatcher Dispatcher, preparer Preparer, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{db: db, dispatcher: dispatcher, preparer: preparer, bus: b, cfg: cfg, logger: logger}
}

// SendText creates an outgoing text message for the peer or group and hands
// it to the transport. The body is stored cleartext; only the security flags
// record whether the wire transmission is encrypted.
func (m *Manager) SendText(peer, body string) (int64, error) {
	threadID, err := m.db.EnsureThread(peer)
	if err != nil {
		return 0, err
	}
	th, err := m.db.GetThread(threadID)
	if err != nil {
		return 0, err
	}
	encrypted := m.cfg.SendEncrypted(th.Encryption)

	wireID := uuid.NewString()
	rec := &store.Message{
		WireID:        wireID,
		Peer:          peer,
		Direction:     store.DirectionOut,
		Status:        status.Sending,
		BodyMime:      "text/plain",
		BodyContent:   []byte(body),
		Timestamp:     time.Now().UnixMilli(),
		Encrypted:     false,
		SecurityFlags: securityFlags(encrypted),
	}
	id, err := m.db.InsertMessage(rec, peer)
	if err != nil {
		return 0, fmt.Errorf("insert outgoing message: %w", err)
	}

	m.dispatch(id, wireID, peer, body, encrypted)
	m.publish("message.queued", id, peer)
	return id, nil
}

// SendBinary creates an outgoing binary message in queued state and hands it
// to the media preparer. The message moves to sending once MediaPrepared is
// called back.
func (m *Manager) SendBinary(peer, sourceURI, mime string, isMedia bool) (int64, error) {
	threadID, err := m.db.EnsureThread(peer)
	if err != nil {
		return 0, err
	}
	th, err := m.db.GetThread(threadID)
	if err != nil {
		return 0, err
	}
	encrypted := m.cfg.SendEncrypted(th.Encryption)

	compress := 0
	if strings.HasPrefix(mime, "image/") {
		compress = m.cfg.Messages.ImageCompression
	}

	wireID := uuid.NewString()
	rec := &store.Message{
		WireID:        wireID,
		Peer:          peer,
		Direction:     store.DirectionOut,
		Status:        status.Queued,
		Timestamp:     time.Now().UnixMilli(),
		Encrypted:     false,
		SecurityFlags: securityFlags(encrypted),
		Attachment: &store.Attachment{
			Mime:     mime,
			LocalURI: sourceURI,
			Compress: compress,
		},
	}
	id, err := m.db.InsertMessage(rec, peer)
	if err != nil {
		return 0, fmt.Errorf("insert outgoing media message: %w", err)
	}

	m.preparer.Prepare(id, wireID, sourceURI, mime, isMedia, compress)
	m.publish("message.queued", id, peer)
	return id, nil
}

// MediaPrepared fills a media message with its final local uri and preview
// and moves it from queued to sending.
func (m *Manager) MediaPrepared(id int64, previewPath, localURI string, length int64) error {
	msg, err := m.db.GetMessage(id)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message %d not found", id)
	}
	if !status.Valid(msg.Status, status.Sending) {
		return fmt.Errorf("invalid transition from %s to %s", msg.Status, status.Sending)
	}
	return m.db.UpdateMedia(id, previewPath, localURI, length)
}

// Retry marks a message as sending regardless of its current status and
// rewrites its security flags for the new attempt.
func (m *Manager) Retry(id int64, encrypted bool) error {
	return m.db.RetryMessage(id, encrypted)
}

// RetryAllPendingTo releases every message to peer held back in pending
// state, recomputing the encryption decision from the thread setting for
// each. Messages without a thread are skipped. Returns the number of
// messages released.
func (m *Manager) RetryAllPendingTo(peer string) (int, error) {
	ids, err := m.db.PendingMessagesTo(peer)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		threadID, err := m.db.ThreadIDByMessage(id)
		if err != nil {
			return count, err
		}
		if threadID == store.NoThread {
			continue
		}
		th, err := m.db.GetThread(threadID)
		if err != nil {
			return count, err
		}
		if th == nil {
			continue
		}
		if err := m.db.RetryMessage(id, m.cfg.SendEncrypted(th.Encryption)); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		m.logger.Info("released pending messages", zap.String("peer", peer), zap.Int("count", count))
	}
	return count, nil
}

// SetTrustLevelAndRetry records the trust level for the peer's key and, when
// the level clears the usability threshold, releases held-back messages to
// that peer. Reports whether a release occurred.
func (m *Manager) SetTrustLevelAndRetry(peer, fingerprint string, level int) (bool, error) {
	if err := m.db.SetTrustLevel(peer, fingerprint, level); err != nil {
		return false, err
	}
	if level < store.TrustIgnored {
		return false, nil
	}
	if _, err := m.RetryAllPendingTo(peer); err != nil {
		return true, err
	}
	return true, nil
}

// MarkSent records transport acknowledgment of a message.
func (m *Manager) MarkSent(id int64) error {
	return m.transition(id, status.Sent)
}

// MarkFailed records a permanent transport error for a message.
func (m *Manager) MarkFailed(id int64) error {
	return m.transition(id, status.Failed)
}

// MarkPending records that a message is held back waiting for a trust
// decision on the recipient's key.
func (m *Manager) MarkPending(id int64) error {
	return m.transition(id, status.Pending)
}

func (m *Manager) transition(id int64, to status.State) error {
	msg, err := m.db.GetMessage(id)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message %d not found", id)
	}
	if !status.Valid(msg.Status, to) {
		return fmt.Errorf("invalid transition from %s to %s", msg.Status, to)
	}
	if err := m.db.UpdateStatus(id, to); err != nil {
		return err
	}
	m.publish("message.status", id, msg.Peer)
	return nil
}

// dispatch hands a stored text message to the transport. Group messages are
// sent with the current subject and confirmed member list. Transport errors
// are logged; redelivery is the transport's responsibility, the message
// stays in sending.
func (m *Manager) dispatch(id int64, wireID, peer, body string, encrypted bool) {
	g, err := m.db.GetGroup(peer)
	if err != nil {
		m.logger.Error("lookup group for dispatch", zap.String("peer", peer), zap.Error(err))
		return
	}
	if g == nil {
		if err := m.dispatcher.SendText(peer, body, encrypted, id, wireID); err != nil {
			m.logger.Error("dispatch text", zap.Int64("id", id), zap.Error(err))
		}
		return
	}

	members, err := m.db.ListMembers(peer, store.MembersConfirmed)
	if err != nil {
		m.logger.Error("list group members for dispatch", zap.String("group", peer), zap.Error(err))
		return
	}
	peers := make([]string, len(members))
	for i, member := range members {
		peers[i] = member.Peer
	}
	if err := m.dispatcher.SendGroupText(peer, g.Subject, peers, body, encrypted, id, wireID); err != nil {
		m.logger.Error("dispatch group text", zap.Int64("id", id), zap.Error(err))
	}
}

func (m *Manager) publish(kind string, id int64, peer string) {
	m.bus.Publish(bus.Event{
		Kind:    kind,
		At:      time.Now(),
		Payload: map[string]any{"id": id, "peer": peer},
	})
}

func securityFlags(encrypted bool) int {
	if encrypted {
		return store.SecurityBasic
	}
	return store.SecurityCleartext
}
