package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS document_cache (
		cache_key TEXT PRIMARY KEY,
		payload   BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_cache_stored_at ON document_cache (stored_at)`,
}

// SQLite persiste o cache em disco, limitado a capacity entradas
// (as mais antigas saem primeiro).
type SQLite struct {
	db       *sql.DB
	capacity int
}

// NewSQLite abre (ou cria) o banco no caminho informado. Use ":memory:" em testes.
func NewSQLite(path string, capacity int) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// sqlite não lida bem com escrita concorrente; ":memory:" também exige conexão única
	db.SetMaxOpenConns(1)

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate cache db: %w", err)
		}
	}

	if capacity < 1 {
		capacity = 1
	}
	return &SQLite{db: db, capacity: capacity}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (*Entry, error) {
	var payload []byte
	var storedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT payload, stored_at FROM document_cache WHERE cache_key = ?`, key,
	).Scan(&payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	return &Entry{Key: key, Payload: payload, StoredAt: time.Unix(0, storedAt)}, nil
}

func (s *SQLite) Put(ctx context.Context, entry Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO document_cache (cache_key, payload, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		entry.Key, []byte(entry.Payload), entry.StoredAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", entry.Key, err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM document_cache WHERE cache_key NOT IN (
			SELECT cache_key FROM document_cache ORDER BY stored_at DESC LIMIT ?
		)`, s.capacity,
	)
	if err != nil {
		return fmt.Errorf("sqlite trim: %w", err)
	}

	return tx.Commit()
}

// Len devolve quantas entradas estão gravadas.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_cache`).Scan(&n)
	return n, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
