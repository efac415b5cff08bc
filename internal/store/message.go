package store

import (
	"database/sql"
	"time"

	"github.com/mrotondi/chatengine/internal/status"
)

// InsertMessage inserts a message into the thread identified by threadPeer,
// creating the thread row on first contact. A second insert with the same
// wire id in the same thread returns ErrDuplicate and leaves existing state
// untouched.
func (db *DB) InsertMessage(m *Message, threadPeer string) (int64, error) {
	threadID, err := db.EnsureThread(threadPeer)
	if err != nil {
		return 0, err
	}
	m.ThreadID = threadID

	var att Attachment
	if m.Attachment != nil {
		att = *m.Attachment
	}
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO messages (thread_id, msg_id, peer, direction, unread, is_new,
			body_mime, body_content, body_length, timestamp, status, encrypted, security_flags,
			att_mime, att_fetch_url, att_local_uri, att_length, att_preview_path, att_compress,
			created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		threadID, m.WireID, m.Peer, m.Direction, m.Unread, m.New,
		m.BodyMime, m.BodyContent, len(m.BodyContent), m.Timestamp, string(m.Status), m.Encrypted, m.SecurityFlags,
		att.Mime, att.FetchURL, att.LocalURI, att.Length, att.PreviewPath, att.Compress,
		now)
	if err != nil {
		return 0, asDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

// MessageIDByWire returns the stored id of the message with the given wire id
// in threadPeer's thread, or zero if none exists.
func (db *DB) MessageIDByWire(threadPeer, wireID string) (int64, error) {
	var id int64
	err := db.QueryRow(`
		SELECT m.id FROM messages m
		JOIN threads t ON m.thread_id = t.id
		WHERE t.peer = ? AND m.msg_id = ?`, threadPeer, wireID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

// GetMessage returns a message by id, or nil if it does not exist.
func (db *DB) GetMessage(id int64) (*Message, error) {
	var m Message
	var st string
	var bodyMime, attMime, attFetch, attLocal, attPreview sql.NullString
	var attLength sql.NullInt64
	var attCompress sql.NullInt64
	err := db.QueryRow(`
		SELECT id, thread_id, msg_id, peer, direction, unread, is_new,
			body_mime, body_content, timestamp, status, encrypted, security_flags,
			att_mime, att_fetch_url, att_local_uri, att_length, att_preview_path, att_compress
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ThreadID, &m.WireID, &m.Peer, &m.Direction, &m.Unread, &m.New,
			&bodyMime, &m.BodyContent, &m.Timestamp, &st, &m.Encrypted, &m.SecurityFlags,
			&attMime, &attFetch, &attLocal, &attLength, &attPreview, &attCompress)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Status = status.State(st)
	m.BodyMime = bodyMime.String
	if attMime.String != "" || attFetch.String != "" || attLocal.String != "" {
		m.Attachment = &Attachment{
			Mime:        attMime.String,
			FetchURL:    attFetch.String,
			LocalURI:    attLocal.String,
			Length:      attLength.Int64,
			PreviewPath: attPreview.String,
			Compress:    int(attCompress.Int64),
		}
	}
	return &m, nil
}

// ThreadIDByMessage returns the thread id of a message, or NoThread if the
// message does not exist. NoThread is not an error; callers check for it.
func (db *DB) ThreadIDByMessage(id int64) (int64, error) {
	var threadID int64
	err := db.QueryRow(`SELECT thread_id FROM messages WHERE id = ?`, id).Scan(&threadID)
	if err == sql.ErrNoRows {
		return NoThread, nil
	}
	if err != nil {
		return NoThread, err
	}
	return threadID, nil
}

// UpdateStatus sets the delivery status of a message.
func (db *DB) UpdateStatus(id int64, st status.State) error {
	_, err := db.Exec(`UPDATE messages SET status = ? WHERE id = ?`, string(st), id)
	return err
}

// RetryMessage marks a message as sending regardless of its current status
// and rewrites its security flags for the new send attempt.
func (db *DB) RetryMessage(id int64, encrypted bool) error {
	flags := SecurityCleartext
	if encrypted {
		flags = SecurityBasic
	}
	_, err := db.Exec(`UPDATE messages SET status = ?, security_flags = ? WHERE id = ?`,
		string(status.Sending), flags, id)
	return err
}

// PendingMessagesTo returns the ids of all messages to peer that are held
// back waiting for a trust decision, in insertion order.
func (db *DB) PendingMessagesTo(peer string) ([]int64, error) {
	rows, err := db.Query(`
		SELECT id FROM messages
		WHERE peer = ? AND status = ?
		ORDER BY id`, peer, string(status.Pending))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateMedia fills a media message with preview file and local uri, for use
// after media preparation. Also moves the message to sending.
func (db *DB) UpdateMedia(id int64, previewPath, localURI string, length int64) error {
	_, err := db.Exec(`
		UPDATE messages
		SET att_preview_path = ?, att_local_uri = ?, att_length = ?, status = ?
		WHERE id = ?`,
		previewPath, localURI, length, string(status.Sending), id)
	return err
}

// AttachmentFetched records the local file of a downloaded incoming
// attachment. Status is untouched, incoming messages keep theirs.
func (db *DB) AttachmentFetched(id int64, localURI string, length int64) error {
	_, err := db.Exec(`
		UPDATE messages SET att_local_uri = ?, att_length = ? WHERE id = ?`,
		localURI, length, id)
	return err
}

// DeleteMessage removes a single message row.
func (db *DB) DeleteMessage(id int64) error {
	_, err := db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	return err
}

// ListMessages returns messages for a thread using keyset pagination by
// timestamp.
func (db *DB) ListMessages(threadID int64, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, thread_id, msg_id, peer, direction, unread, is_new,
			body_mime, body_content, timestamp, status, encrypted, security_flags
		FROM messages
		WHERE thread_id = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`, threadID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		var st string
		var bodyMime sql.NullString
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.WireID, &m.Peer, &m.Direction, &m.Unread, &m.New,
			&bodyMime, &m.BodyContent, &m.Timestamp, &st, &m.Encrypted, &m.SecurityFlags); err != nil {
			return nil, err
		}
		m.Status = status.State(st)
		m.BodyMime = bodyMime.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
