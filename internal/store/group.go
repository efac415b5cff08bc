package store

import (
	"database/sql"
	"fmt"
)

// UpsertGroup creates the group row if it does not exist and refreshes the
// subject when a non-empty one is supplied. Membership state is preserved on
// updates.
func (db *DB) UpsertGroup(jid, groupType, subject string, threadID int64) error {
	_, err := db.Exec(`
		INSERT INTO groups (jid, thread_id, group_type, subject, membership)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
		ON CONFLICT(jid) DO UPDATE SET
			thread_id = excluded.thread_id,
			subject = COALESCE(excluded.subject, groups.subject)`,
		jid, threadID, groupType, subject, int(MembershipNone))
	return err
}

// GroupExists reports whether a group row exists for jid.
func (db *DB) GroupExists(jid string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM groups WHERE jid = ?`, jid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// GetGroup returns a group by jid, or nil if it does not exist.
func (db *DB) GetGroup(jid string) (*Group, error) {
	var g Group
	var subject sql.NullString
	var membership int
	err := db.QueryRow(`SELECT jid, thread_id, group_type, subject, membership FROM groups WHERE jid = ?`, jid).
		Scan(&g.JID, &g.ThreadID, &g.Type, &subject, &membership)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.Subject = subject.String
	g.Membership = Membership(membership)
	return &g, nil
}

// SetGroupSubject overwrites the subject of a group. An empty subject clears
// it.
func (db *DB) SetGroupSubject(jid, subject string) error {
	var value any
	if subject != "" {
		value = subject
	}
	_, err := db.Exec(`UPDATE groups SET subject = ? WHERE jid = ?`, value, jid)
	return err
}

// SetMembership records the local user's membership state for a group.
func (db *DB) SetMembership(jid string, m Membership) error {
	_, err := db.Exec(`UPDATE groups SET membership = ? WHERE jid = ?`, int(m), jid)
	return err
}

// CreateGroup creates a group with its (empty) thread and initial confirmed
// member rows, returning the thread id.
func (db *DB) CreateGroup(jid, groupType, subject string, members []string, draft string) (int64, error) {
	threadID, err := db.InsertEmptyThread(jid, draft)
	if err != nil {
		return NoThread, err
	}
	if err := db.UpsertGroup(jid, groupType, subject, threadID); err != nil {
		return NoThread, fmt.Errorf("upsert group: %w", err)
	}
	if err := db.AddGroupMembers(jid, members, false); err != nil {
		return NoThread, fmt.Errorf("add members: %w", err)
	}
	return threadID, nil
}

// AddGroupMembers upserts member rows for the given peers. With pending set,
// rows are flagged as not-yet-confirmed additions; otherwise they are
// confirmed members. Re-adding an existing member only updates its flag.
func (db *DB) AddGroupMembers(jid string, peers []string, pending bool) error {
	flag := PendingNone
	if pending {
		flag = PendingAdded
	}
	for _, peer := range peers {
		if _, err := db.Exec(`
			INSERT INTO group_members (group_jid, peer, pending)
			VALUES (?, ?, ?)
			ON CONFLICT(group_jid, peer) DO UPDATE SET pending = excluded.pending`,
			jid, peer, int(flag)); err != nil {
			return fmt.Errorf("add member %q: %w", peer, err)
		}
	}
	return nil
}

// RemoveGroupMembers removes the given peers from a group. With pending set,
// rows are only flagged as pending departures; otherwise they are deleted
// outright.
func (db *DB) RemoveGroupMembers(jid string, peers []string, pending bool) error {
	for _, peer := range peers {
		var err error
		if pending {
			_, err = db.Exec(`UPDATE group_members SET pending = ? WHERE group_jid = ? AND peer = ?`,
				int(PendingRemoved), jid, peer)
		} else {
			_, err = db.Exec(`DELETE FROM group_members WHERE group_jid = ? AND peer = ?`, jid, peer)
		}
		if err != nil {
			return fmt.Errorf("remove member %q: %w", peer, err)
		}
	}
	return nil
}

// RemoveGroupMember deletes a single member row (a peer leaving on its own).
func (db *DB) RemoveGroupMember(jid, peer string) error {
	_, err := db.Exec(`DELETE FROM group_members WHERE group_jid = ? AND peer = ?`, jid, peer)
	return err
}

// ListMembers returns the member rows of a group selected by the query mode.
func (db *DB) ListMembers(jid string, q MemberQuery) ([]GroupMember, error) {
	query := `SELECT group_jid, peer, pending FROM group_members WHERE group_jid = ?`
	args := []any{jid}
	switch q {
	case MembersConfirmed:
		query += ` AND pending = ?`
		args = append(args, int(PendingNone))
	case MembersPendingAdded:
		query += ` AND pending = ?`
		args = append(args, int(PendingAdded))
	case MembersPendingRemoved:
		query += ` AND pending = ?`
		args = append(args, int(PendingRemoved))
	}
	query += ` ORDER BY peer`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var members []GroupMember
	for rows.Next() {
		var m GroupMember
		var pending int
		if err := rows.Scan(&m.GroupJID, &m.Peer, &pending); err != nil {
			return nil, err
		}
		m.Pending = Pending(pending)
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsMember reports whether peer is a confirmed member of the group.
func (db *DB) IsMember(jid, peer string) (bool, error) {
	var pending int
	err := db.QueryRow(`SELECT pending FROM group_members WHERE group_jid = ? AND peer = ?`, jid, peer).
		Scan(&pending)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return Pending(pending) == PendingNone, nil
}
