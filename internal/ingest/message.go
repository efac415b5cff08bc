package ingest

import (
	"github.com/mrotondi/chatengine/internal/group"
	"github.com/mrotondi/chatengine/internal/status"
)

// AttachmentKind identifies an attachment fragment variant.
type AttachmentKind int

const (
	AttachmentImage AttachmentKind = iota
	AttachmentVCard
	AttachmentFile
	AttachmentAudio
)

// autoFetchOrder is the fixed priority in which attachment fragments are
// considered for auto-download. The first eligible fragment wins.
var autoFetchOrder = []AttachmentKind{AttachmentImage, AttachmentVCard, AttachmentFile, AttachmentAudio}

// Attachment is a media fragment on a decoded message.
type Attachment struct {
	Kind          AttachmentKind
	Mime          string
	FetchURL      string
	LocalURI      string
	Length        int64
	PreviewPath   string
	SecurityFlags int
}

// GroupInfo identifies the group a message belongs to, with an optional
// subject refresh.
type GroupInfo struct {
	JID     string
	Subject string
}

// DecodedMessage is an incoming message as handed over by the transport
// layer: already authenticated, decrypted and parsed into its closed set of
// fragments.
type DecodedMessage struct {
	WireID string
	// Sender is the real originating peer; for group messages the
	// transport resolves it to the member, never the group jid.
	Sender        string
	Status        status.State
	BodyMime      string
	Body          []byte
	Encrypted     bool
	SecurityFlags int

	GroupInfo    *GroupInfo
	GroupCommand *group.Command
	Attachments  []Attachment
}

// attachment returns the fragment of the given kind, or nil.
func (m *DecodedMessage) attachment(kind AttachmentKind) *Attachment {
	for i := range m.Attachments {
		if m.Attachments[i].Kind == kind {
			return &m.Attachments[i]
		}
	}
	return nil
}

// firstAttachment returns the highest-priority fragment, or nil.
func (m *DecodedMessage) firstAttachment() *Attachment {
	for _, kind := range autoFetchOrder {
		if att := m.attachment(kind); att != nil {
			return att
		}
	}
	return nil
}
