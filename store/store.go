// Package store persists the wallet record.
//
// Pure persistence, no cryptographic logic. The database is local,
// unencrypted and assumed attacker-readable: nothing is written except
// ciphertext and public identifiers.
package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	// For sqlite3 (sqlcipher driver).
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// Store is the durable wallet record store.
type Store struct {
	db *sqlx.DB
}

// New opens the store at path, creating tables if needed.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db")
	}
	if err := initTables(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func initTables(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallet (
			id TEXT NOT NULL PRIMARY KEY,
			credentialId BLOB NOT NULL,
			publicKey TEXT NOT NULL,
			wrappedKey TEXT NOT NULL,
			encryptedSecret TEXT NOT NULL,
			encryptedPhrase TEXT,
			salt BLOB NOT NULL,
			createdAt TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Save writes the record, replacing any existing one.
// A save is a whole-record overwrite: the new record is written in the same
// transaction that removes the old one.
func (s *Store) Save(record *Record) error {
	if record == nil {
		return errors.Errorf("nil record")
	}
	if !record.Valid() {
		return errors.Errorf("invalid record")
	}
	return transact(s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("DELETE FROM wallet WHERE id != $1", record.ID); err != nil {
			return err
		}
		sql := `INSERT OR REPLACE INTO wallet
			(id, credentialId, publicKey, wrappedKey, encryptedSecret, encryptedPhrase, salt, createdAt)
			VALUES
			(:id, :credentialId, :publicKey, :wrappedKey, :encryptedSecret, :encryptedPhrase, :salt, :createdAt)`
		if _, err := tx.NamedExec(sql, record); err != nil {
			return err
		}
		return nil
	})
}

// Load returns the wallet record, or nil if there is none.
// A malformed record is logged and returned as nil so the caller can fall
// back to "no wallet" rather than crash.
func (s *Store) Load() (*Record, error) {
	var record Record
	if err := s.db.Get(&record, "SELECT * FROM wallet LIMIT 1"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Infof("Failed to load record: %s", err)
		return nil, nil
	}
	if !record.Valid() {
		logger.Infof("Malformed record %s", record.ID)
		return nil, nil
	}
	return &record, nil
}

// Exists returns true if a (valid) wallet record exists.
func (s *Store) Exists() (bool, error) {
	record, err := s.Load()
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Delete removes the wallet record and any legacy record.
// Irreversible, there is no rollback state.
func (s *Store) Delete() error {
	return transact(s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("DELETE FROM wallet"); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM config WHERE key = $1", legacyConfigKey); err != nil {
			return err
		}
		return nil
	})
}

// transact creates and executes a transaction.
func transact(db *sqlx.DB, txFn func(*sqlx.Tx) error) (err error) {
	if db == nil {
		return errors.Errorf("db not open")
	}
	tx, err := db.Beginx()
	if err != nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // Re-throw panic after Rollback
		} else if err != nil {
			_ = tx.Rollback() // err is non-nil; don't change it
		} else {
			err = tx.Commit() // err is nil; returns Commit error
		}
	}()
	err = txFn(tx)
	return err
}
