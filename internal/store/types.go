package store

import "github.com/mrotondi/chatengine/internal/status"

// Message direction values.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Security flag values recorded on a message. Outgoing bodies are always
// stored cleartext; the flag only records how the wire transmission is (or
// was) protected.
const (
	SecurityCleartext = 0
	SecurityBasic     = 1
)

// Trust levels recorded for a peer's key fingerprint. TrustIgnored is the
// minimum level at which held-back messages may be released.
const (
	TrustUnknown  = 0
	TrustIgnored  = 1
	TrustVerified = 2
)

// NoThread is the sentinel returned by thread lookups when a message has no
// associated thread. It is a value, not an error; callers check explicitly.
const NoThread int64 = 0

// Message is a stored message row.
type Message struct {
	ID            int64
	ThreadID      int64
	WireID        string // sender-assigned id, unique within a thread
	Peer          string // originating peer for incoming, recipient for outgoing
	Direction     string
	Status        status.State
	Unread        bool
	New           bool
	BodyMime      string
	BodyContent   []byte
	Timestamp     int64 // unix millis
	Encrypted     bool
	SecurityFlags int
	Attachment    *Attachment
}

// Attachment holds the media columns of a message row.
type Attachment struct {
	Mime        string
	FetchURL    string
	LocalURI    string
	Length      int64
	PreviewPath string
	Compress    int
}

// Thread is a conversation with a peer or group.
type Thread struct {
	ID         int64
	Peer       string
	Draft      string
	Encryption bool
}

// Membership is the local user's state in a group. It is tracked on the
// group row; the local user never appears in group_members.
type Membership int

const (
	MembershipNone Membership = iota
	MembershipMember
	MembershipParted
	MembershipKicked
)

// Group is a stored group row.
type Group struct {
	JID        string
	ThreadID   int64
	Type       string
	Subject    string
	Membership Membership
}

// Pending marks a group member row as awaiting confirmation.
type Pending int

const (
	PendingNone    Pending = 0
	PendingAdded   Pending = 1
	PendingRemoved Pending = 2
)

// GroupMember is a stored group membership row.
type GroupMember struct {
	GroupJID string
	Peer     string
	Pending  Pending
}

// MemberQuery selects which member rows a ListMembers call returns.
type MemberQuery int

const (
	// MembersAll returns every row regardless of pending flags.
	MembersAll MemberQuery = iota
	// MembersConfirmed returns rows with no pending flags set.
	MembersConfirmed
	// MembersPendingAdded returns rows flagged as not-yet-confirmed additions.
	MembersPendingAdded
	// MembersPendingRemoved returns rows flagged as pending departures.
	MembersPendingRemoved
)
