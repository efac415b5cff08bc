package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrotondi/chatengine/internal/bus"
	"github.com/mrotondi/chatengine/internal/config"
	"github.com/mrotondi/chatengine/internal/fetch"
	"github.com/mrotondi/chatengine/internal/group"
	"github.com/mrotondi/chatengine/internal/ingest"
	"github.com/mrotondi/chatengine/internal/lock"
	"github.com/mrotondi/chatengine/internal/media"
	"github.com/mrotondi/chatengine/internal/notify"
	"github.com/mrotondi/chatengine/internal/outbox"
	"github.com/mrotondi/chatengine/internal/status"
	"github.com/mrotondi/chatengine/internal/store"
	"github.com/mrotondi/chatengine/internal/tasks"
	"github.com/mrotondi/chatengine/internal/transport"
)

// TestDaemonRoundTrip wires the components the way registerLifecycle does
// and drives a message in and a message out through the loopback transport.
func TestDaemonRoundTrip(t *testing.T) {
	dir := t.TempDir()

	lk, err := lock.Acquire(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	db, err := store.Open(filepath.Join(dir, "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Account.Peer = "me@example.net"
	cfg.Downloads.Dir = filepath.Join(dir, "downloads")
	cfg.Notifications.DebounceMs = 10

	b := bus.New()
	runner := tasks.NewRunner(64, nil)
	gate := notify.NewBusGate(b)
	debounce := notify.NewDebouncer(gate, cfg.DebounceWindow())
	processor := group.NewProcessor(db, cfg.IsSelf, nil)
	downloader := fetch.NewDownloader(db, runner, b, cfg.Downloads.Dir, nil)
	preparer := media.NewPreparer(runner, nil)
	loopback := transport.NewLoopback(b, nil)
	engine := ingest.NewEngine(db, processor, b, gate, debounce, downloader, runner, cfg, nil)
	manager := outbox.NewManager(db, loopback, preparer, b, cfg, nil)

	loopback.SetAcker(manager)
	preparer.SetSink(manager)

	runner.Start(context.Background())
	defer runner.Stop()
	engine.Start(context.Background())
	defer engine.Stop()
	defer debounce.Stop()

	stored, unsubscribe := b.Subscribe("message.stored", 8)
	defer unsubscribe()

	// Inbound: deliver over the loopback and wait for the engine to store it.
	loopback.Deliver(&ingest.DecodedMessage{
		WireID:   "in-1",
		Sender:   "alice@example.net",
		BodyMime: "text/plain",
		Body:     []byte("hi"),
	})
	select {
	case <-stored:
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message was not stored")
	}
	id, err := db.MessageIDByWire("alice@example.net", "in-1")
	if err != nil || id == 0 {
		t.Fatalf("inbound message not found: id=%d err=%v", id, err)
	}

	// Outbound: the loopback acknowledges immediately, so the message lands
	// in sent state.
	outID, err := manager.SendText("alice@example.net", "hello back")
	if err != nil {
		t.Fatalf("send text: %v", err)
	}
	msg, err := db.GetMessage(outID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if msg.Status != status.Sent {
		t.Fatalf("outbound status = %s, want %s", msg.Status, status.Sent)
	}

	// Both directions share the thread.
	if msg.ThreadID == 0 {
		t.Fatal("outbound message has no thread")
	}
	inThread, err := db.ThreadIDByMessage(id)
	if err != nil {
		t.Fatal(err)
	}
	if inThread != msg.ThreadID {
		t.Fatalf("threads differ: in=%d out=%d", inThread, msg.ThreadID)
	}
}
