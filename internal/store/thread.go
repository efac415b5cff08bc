package store

import (
	"database/sql"
	"fmt"
	"time"
)

// EnsureThread returns the thread id for peer, creating the thread row if it
// does not exist yet. New threads default to encryption enabled.
func (db *DB) EnsureThread(peer string) (int64, error) {
	now := time.Now().UnixMilli()
	if _, err := db.Exec(`
		INSERT INTO threads (peer, encryption, created_at)
		VALUES (?, 1, ?)
		ON CONFLICT(peer) DO NOTHING`,
		peer, now); err != nil {
		return NoThread, fmt.Errorf("ensure thread: %w", err)
	}
	var id int64
	if err := db.QueryRow(`SELECT id FROM threads WHERE peer = ?`, peer).Scan(&id); err != nil {
		return NoThread, fmt.Errorf("lookup thread: %w", err)
	}
	return id, nil
}

// GetThread returns a thread by id, or nil if it does not exist.
func (db *DB) GetThread(id int64) (*Thread, error) {
	var t Thread
	var draft sql.NullString
	err := db.QueryRow(`SELECT id, peer, draft, encryption FROM threads WHERE id = ?`, id).
		Scan(&t.ID, &t.Peer, &draft, &t.Encryption)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Draft = draft.String
	return &t, nil
}

// ThreadByPeer returns the thread for a peer or group jid, or nil.
func (db *DB) ThreadByPeer(peer string) (*Thread, error) {
	var t Thread
	var draft sql.NullString
	err := db.QueryRow(`SELECT id, peer, draft, encryption FROM threads WHERE peer = ?`, peer).
		Scan(&t.ID, &t.Peer, &draft, &t.Encryption)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Draft = draft.String
	return &t, nil
}

// InsertEmptyThread creates a thread with no messages, optionally holding a
// draft. Returns the new thread id, or the existing one if the peer already
// has a thread.
func (db *DB) InsertEmptyThread(peer, draft string) (int64, error) {
	id, err := db.EnsureThread(peer)
	if err != nil {
		return NoThread, err
	}
	if draft != "" {
		if err := db.UpdateDraft(id, draft); err != nil {
			return NoThread, err
		}
	}
	return id, nil
}

// UpdateDraft sets or clears the draft text of a thread.
func (db *DB) UpdateDraft(threadID int64, draft string) error {
	var value any
	if draft != "" {
		value = draft
	}
	_, err := db.Exec(`UPDATE threads SET draft = ? WHERE id = ?`, value, threadID)
	return err
}

// SetEncryption sets the per-thread encryption preference.
func (db *DB) SetEncryption(threadID int64, enabled bool) error {
	_, err := db.Exec(`UPDATE threads SET encryption = ? WHERE id = ?`, enabled, threadID)
	return err
}

// DeleteThread removes a thread and all its messages. Unless keepGroup is
// set, the associated group row and member rows are removed as well.
func (db *DB) DeleteThread(id int64, keepGroup bool) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE thread_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if !keepGroup {
		if _, err := tx.Exec(`
			DELETE FROM group_members
			WHERE group_jid IN (SELECT jid FROM groups WHERE thread_id = ?)`, id); err != nil {
			return fmt.Errorf("delete group members: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM groups WHERE thread_id = ?`, id); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM threads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return tx.Commit()
}
