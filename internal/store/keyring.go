package store

import "database/sql"

// SetTrustLevel records the trust level for a (peer, fingerprint) pair,
// overwriting any previous decision.
func (db *DB) SetTrustLevel(peer, fingerprint string, level int) error {
	_, err := db.Exec(`
		INSERT INTO trusted_keys (peer, fingerprint, trust_level)
		VALUES (?, ?, ?)
		ON CONFLICT(peer, fingerprint) DO UPDATE SET trust_level = excluded.trust_level`,
		peer, fingerprint, level)
	return err
}

// TrustLevel returns the recorded trust level for a (peer, fingerprint)
// pair, or TrustUnknown if none was recorded.
func (db *DB) TrustLevel(peer, fingerprint string) (int, error) {
	var level int
	err := db.QueryRow(`SELECT trust_level FROM trusted_keys WHERE peer = ? AND fingerprint = ?`,
		peer, fingerprint).Scan(&level)
	if err == sql.ErrNoRows {
		return TrustUnknown, nil
	}
	return level, err
}
