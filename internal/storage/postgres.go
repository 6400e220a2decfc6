package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"waste-marketplace/onboarding/internal/db"
)

const (
	upsertQuery = `INSERT INTO client_storage (namespace, key, value, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	getQuery    = `SELECT value FROM client_storage WHERE namespace = $1 AND key = $2`
	deleteQuery = `DELETE FROM client_storage WHERE namespace = $1 AND key = $2`
	listQuery   = `SELECT key, value FROM client_storage WHERE namespace = $1`
)

// PostgresStore keeps key/value pairs in the client_storage table (see internal/db/migrations).
type PostgresStore struct {
	db        *sql.DB
	namespace string
	nowF      func() time.Time
}

// NewPostgresStore returns a store over an already opened database.
func NewPostgresStore(conn *sql.DB, namespace string) *PostgresStore {
	return &PostgresStore{db: conn, namespace: namespace, nowF: func() time.Time { return time.Now().UTC() }}
}

// OpenPostgresStore opens dsn and returns a store that owns the connection. Caller must call Close.
func OpenPostgresStore(ctx context.Context, dsn, namespace string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("storage: DATABASE_URL is required for the postgres driver")
	}
	conn, err := db.OpenContext(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgresStore(conn, namespace), nil
}

// Set upserts value under key.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, upsertQuery, s.namespace, key, value, s.nowF())
	return err
}

// SetMany upserts every pair in one transaction.
func (s *PostgresStore) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := s.nowF()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, upsertQuery, s.namespace, k, v, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Get returns the value for key, or ok false if not found.
// It returns an error only for database failures, not for missing rows.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, getQuery, s.namespace, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Delete removes key from the namespace.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, deleteQuery, s.namespace, key)
	return err
}

// All returns every pair in the namespace.
func (s *PostgresStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, listQuery, s.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PingContext checks the database connection.
func (s *PostgresStore) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
