// Package media prepares outgoing attachments for transmission. The
// passthrough preparer measures the source file and reports it back
// unchanged; recompression hooks in here when a codec is wired.
package media

import (
	"fmt"
	"os"
	"strings"

	"github.com/mrotondi/chatengine/internal/tasks"
	"go.uber.org/zap"
)

// Sink receives prepared media. The outbox manager implements it.
type Sink interface {
	MediaPrepared(id int64, previewPath, localURI string, length int64) error
}

// Preparer runs media preparation off the send path.
type Preparer struct {
	tasks  *tasks.Runner
	sink   Sink
	logger *zap.Logger
}

// NewPreparer creates a preparer. The sink is attached separately to break
// the construction cycle with the outbox manager.
func NewPreparer(runner *tasks.Runner, logger *zap.Logger) *Preparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preparer{tasks: runner, logger: logger}
}

// SetSink attaches the receiver of prepared media. Must be called before
// the first Prepare.
func (p *Preparer) SetSink(sink Sink) {
	p.sink = sink
}

// Prepare schedules preparation of the message's source file.
func (p *Preparer) Prepare(messageID int64, wireID string, sourceURI, mime string, isMedia bool, compress int) {
	p.tasks.Submit("prepare-media", func() error {
		return p.prepare(messageID, sourceURI, compress)
	})
}

func (p *Preparer) prepare(messageID int64, sourceURI string, compress int) error {
	path := strings.TrimPrefix(sourceURI, "file://")
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat media source for message %d: %w", messageID, err)
	}
	if compress > 0 {
		p.logger.Debug("image compression requested, sending original",
			zap.Int64("message", messageID), zap.Int("threshold", compress))
	}
	return p.sink.MediaPrepared(messageID, "", sourceURI, info.Size())
}
