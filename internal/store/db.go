package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection for the profile-owned chat.db.
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}

// ErrDuplicate is returned when an insert collides with an existing row on a
// unique key (duplicate wire id within a thread, already-known contact).
// Callers treat it as a successful no-op.
var ErrDuplicate = errors.New("duplicate entry")

// IsDuplicate reports whether err is (or wraps) a duplicate-entry collision.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// asDuplicate maps SQLite unique-constraint violations to ErrDuplicate and
// leaves every other error untouched.
func asDuplicate(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}
