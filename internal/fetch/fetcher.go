// Package fetch downloads incoming attachments into the profile download
// directory. Downloads run off the ingest path on the background task
// runner; a failed download leaves the message untouched and can be retried
// manually from the stored fetch url.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrotondi/chatengine/internal/bus"
	"github.com/mrotondi/chatengine/internal/store"
	"github.com/mrotondi/chatengine/internal/tasks"
	"go.uber.org/zap"
)

// Downloader fetches attachment payloads over http and records the local
// file on the owning message. It implements the ingest fetcher contract.
type Downloader struct {
	db     *store.DB
	tasks  *tasks.Runner
	bus    *bus.Bus
	client *http.Client
	dir    string
	logger *zap.Logger
}

// NewDownloader creates a downloader saving files under dir.
func NewDownloader(db *store.DB, runner *tasks.Runner, b *bus.Bus, dir string, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		db:     db,
		tasks:  runner,
		bus:    b,
		client: &http.Client{Timeout: 2 * time.Minute},
		dir:    dir,
		logger: logger,
	}
}

// Start schedules a download for the attachment of messageID. It returns
// immediately; completion is reported on the bus as "attachment.fetched".
func (d *Downloader) Start(messageID int64, sender string, timestamp int64, encrypted bool, fetchURL string) {
	d.tasks.Submit("fetch-attachment", func() error {
		return d.fetch(messageID, fetchURL)
	})
}

func (d *Downloader) fetch(messageID int64, fetchURL string) error {
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	resp, err := d.client.Get(fetchURL)
	if err != nil {
		return fmt.Errorf("fetch attachment %d: %w", messageID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch attachment %d: unexpected status %s", messageID, resp.Status)
	}

	dest := filepath.Join(d.dir, fileName(messageID, fetchURL))
	tmp, err := os.CreateTemp(d.dir, ".fetch-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write attachment %d: %w", messageID, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("move attachment %d into place: %w", messageID, err)
	}

	if err := d.db.AttachmentFetched(messageID, "file://"+dest, n); err != nil {
		return fmt.Errorf("record attachment %d: %w", messageID, err)
	}

	d.logger.Debug("attachment fetched",
		zap.Int64("message", messageID),
		zap.String("path", dest),
		zap.Int64("bytes", n))
	d.bus.Publish(bus.Event{
		Kind:    "attachment.fetched",
		At:      time.Now(),
		Payload: map[string]any{"id": messageID, "path": dest},
	})
	return nil
}

// fileName derives a stable local name from the url path, prefixed with the
// message id to avoid collisions between peers uploading the same name.
func fileName(messageID int64, fetchURL string) string {
	base := ""
	if u, err := url.Parse(fetchURL); err == nil {
		base = path.Base(u.Path)
	}
	base = strings.Trim(base, "./")
	if base == "" || base == "/" {
		base = "attachment"
	}
	return fmt.Sprintf("%d-%s", messageID, base)
}
