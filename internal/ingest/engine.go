// Package ingest is the entry point for incoming messages. The engine
// persists each decoded message exactly once, applies embedded group
// commands, and decides on notification and attachment auto-fetch.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mrotondi/chatengine/internal/bus"
	"github.com/mrotondi/chatengine/internal/config"
	"github.com/mrotondi/chatengine/internal/group"
	"github.com/mrotondi/chatengine/internal/notify"
	"github.com/mrotondi/chatengine/internal/status"
	"github.com/mrotondi/chatengine/internal/store"
	"github.com/mrotondi/chatengine/internal/tasks"
	"go.uber.org/zap"
)

// DefaultGroupType is recorded on group rows created from incoming
// group-info fragments.
const DefaultGroupType = "chat"

// Fetcher starts an attachment download for a stored message.
type Fetcher interface {
	Start(messageID int64, sender string, timestamp int64, encrypted bool, fetchURL string)
}

// Engine handles idempotent ingestion of decoded messages into the store.
// It subscribes to "transport." events on the bus and processes them.
type Engine struct {
	db       *store.DB
	groups   *group.Processor
	bus      *bus.Bus
	gate     notify.Gate
	debounce *notify.Debouncer
	fetcher  Fetcher
	tasks    *tasks.Runner
	cfg      *config.Config
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewEngine creates an ingestion engine.
func NewEngine(
	db *store.DB,
	groups *group.Processor,
	b *bus.Bus,
	gate notify.Gate,
	debounce *notify.Debouncer,
	fetcher Fetcher,
	runner *tasks.Runner,
	cfg *config.Config,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:       db,
		groups:   groups,
		bus:      b,
		gate:     gate,
		debounce: debounce,
		fetcher:  fetcher,
		tasks:    runner,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start subscribes to inbound transport events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("transport.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	if evt.Kind != "transport.message" {
		return
	}
	msg, ok := evt.Payload.(*DecodedMessage)
	if !ok {
		return
	}
	if _, err := e.Ingest(msg); err != nil {
		e.logger.Error("failed to ingest message", zap.Error(err), zap.String("wire_id", msg.WireID))
	}
}

// Ingest processes a single decoded message. It is idempotent under
// duplicate delivery: a redelivered wire id returns the existing message id
// without a second notification or download. Only a storage failure on the
// message insert itself is returned; every other sub-step is best effort.
func (e *Engine) Ingest(msg *DecodedMessage) (int64, error) {
	sender := msg.Sender

	rec := &store.Message{
		WireID:        msg.WireID,
		Peer:          sender,
		Direction:     store.DirectionIn,
		Status:        msg.Status,
		BodyMime:      msg.BodyMime,
		BodyContent:   msg.Body,
		Timestamp:     time.Now().UnixMilli(),
		Encrypted:     msg.Encrypted,
		SecurityFlags: msg.SecurityFlags,
	}
	if rec.Status == "" {
		rec.Status = status.Received
	}
	if att := msg.firstAttachment(); att != nil {
		rec.Attachment = &store.Attachment{
			Mime:        att.Mime,
			FetchURL:    att.FetchURL,
			LocalURI:    att.LocalURI,
			Length:      att.Length,
			PreviewPath: att.PreviewPath,
		}
	}

	// Only group creation and departures notify; routine membership and
	// subject changes stay silent.
	cmd := msg.GroupCommand
	notifyUser := cmd == nil || cmd.Notifies()
	rec.Unread = notifyUser
	rec.New = notifyUser

	threadPeer := sender
	if gi := msg.GroupInfo; gi != nil {
		threadPeer = gi.JID
		if threadID, err := e.db.EnsureThread(gi.JID); err != nil {
			e.logger.Error("ensure group thread", zap.String("group", gi.JID), zap.Error(err))
		} else if err := e.db.UpsertGroup(gi.JID, DefaultGroupType, gi.Subject, threadID); err != nil {
			e.logger.Error("upsert group", zap.String("group", gi.JID), zap.Error(err))
		}

		if cmd != nil {
			// Idempotent: reapplying the same command on a duplicate
			// delivery leaves the rows unchanged.
			e.groups.Apply(gi.JID, cmd)
		}
	}

	id, err := e.db.InsertMessage(rec, threadPeer)
	duplicate := false
	if store.IsDuplicate(err) {
		duplicate = true
		id, err = e.db.MessageIDByWire(threadPeer, msg.WireID)
		if err != nil {
			return 0, fmt.Errorf("lookup duplicate message: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	if msg.GroupInfo == nil {
		// Mark the sender as a known registered contact, off the critical
		// path. An already-known contact is not an error.
		e.tasks.Submit("register-contact", func() error {
			if err := e.db.MarkRegistered(sender); err != nil && !store.IsDuplicate(err) {
				return err
			}
			return nil
		})
	}

	// Fire a notification only for a freshly inserted row, and not while
	// the conversation is open on screen.
	if notifyUser && !duplicate && !e.gate.IsConversationPaused(threadPeer) {
		e.debounce.Trigger()
	}

	if !duplicate {
		e.maybeAutoFetch(id, sender, rec.Timestamp, msg)
		e.bus.Publish(bus.Event{
			Kind: "message.stored",
			At:   time.Now(),
			Payload: map[string]any{
				"id":      id,
				"peer":    threadPeer,
				"wire_id": msg.WireID,
			},
		})
	}

	return id, nil
}

// maybeAutoFetch starts a download for the first attachment fragment, in
// priority order, that has a remote location and fits the configured size
// limit. At most one fetch per message.
func (e *Engine) maybeAutoFetch(id int64, sender string, timestamp int64, msg *DecodedMessage) {
	for _, kind := range autoFetchOrder {
		att := msg.attachment(kind)
		if att == nil || att.FetchURL == "" {
			continue
		}
		if !e.cfg.CanAutoDownload(att.Length) {
			continue
		}
		encrypted := att.SecurityFlags != store.SecurityCleartext
		e.fetcher.Start(id, sender, timestamp, encrypted, att.FetchURL)
		return
	}
}
