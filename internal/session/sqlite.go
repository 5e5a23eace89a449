package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	keyDeviceSecret = "device_secret"
	keyCredentials  = "credentials"
)

// SQLiteStore implements CredentialStore on a local SQLite file. The token
// blob is sealed under a key derived from a per-install device secret, so a
// copied database file is useless without the originating install.
type SQLiteStore struct {
	db     *sql.DB
	secret []byte
}

// OpenSQLiteStore opens (creating if needed) the credential database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS plume_state (
                key TEXT PRIMARY KEY,
                value BLOB NOT NULL
        )`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure state table: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.loadOrCreateSecret(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) loadOrCreateSecret(ctx context.Context) error {
	var secret []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM plume_state WHERE key = ?`, keyDeviceSecret).Scan(&secret)
	switch {
	case err == nil:
		s.secret = secret
		return nil
	case errors.Is(err, sql.ErrNoRows):
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate device secret: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO plume_state (key, value) VALUES (?, ?)`, keyDeviceSecret, secret); err != nil {
			return fmt.Errorf("store device secret: %w", err)
		}
		s.secret = secret
		return nil
	default:
		return fmt.Errorf("read device secret: %w", err)
	}
}

// Save seals and upserts the credentials.
func (s *SQLiteStore) Save(ctx context.Context, creds Credentials) error {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	blob, err := seal(s.secret, plaintext)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO plume_state (key, value) VALUES (?, ?)
                ON CONFLICT(key) DO UPDATE SET value = excluded.value`, keyCredentials, blob); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// Load returns the stored credentials. A blob that fails to unseal or decode
// is removed and reported absent.
func (s *SQLiteStore) Load(ctx context.Context) (Credentials, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM plume_state WHERE key = ?`, keyCredentials).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}

	plaintext, ok := open(s.secret, blob)
	if !ok {
		_ = s.Clear(ctx)
		return Credentials{}, false, nil
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		_ = s.Clear(ctx)
		return Credentials{}, false, nil
	}
	return creds, true, nil
}

// Clear removes any stored credentials. The device secret is kept.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plume_state WHERE key = ?`, keyCredentials); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
