package store

import (
	"database/sql"
	"time"
)

// MarkRegistered records a peer as a known registered contact. Returns
// ErrDuplicate if the peer is already known; callers off the critical path
// swallow it.
func (db *DB) MarkRegistered(peer string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`INSERT INTO contacts (peer, registered, updated_at) VALUES (?, 1, ?)`, peer, now)
	return asDuplicate(err)
}

// IsRegistered reports whether a peer is a known registered contact.
func (db *DB) IsRegistered(peer string) (bool, error) {
	var registered bool
	err := db.QueryRow(`SELECT registered FROM contacts WHERE peer = ?`, peer).Scan(&registered)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return registered, err
}
