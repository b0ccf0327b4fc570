package state

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

var errNotOpened = errors.New("database not opened")

// SQLiteStore is the contract cache backed by SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// NewWithDB wraps an already opened database. The schema is assumed to be
// migrated.
func NewWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens the database at path, creating parent directories, and runs
// the migrations. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the contract cached under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*core.ContractSpec, bool, error) {
	if s.db == nil {
		return nil, false, errNotOpened
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT contract_json FROM contract_cache WHERE cache_key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached contract: %w", err)
	}

	c, err := core.ReadContract(bytes.NewReader([]byte(payload)))
	if err != nil {
		return nil, false, fmt.Errorf("cached contract %s is unreadable: %w", key, err)
	}
	return c, true, nil
}

// Put stores c under key, replacing any previous entry for that key.
func (s *SQLiteStore) Put(ctx context.Context, key, dialect, sourcePath string, c *core.ContractSpec) error {
	if s.db == nil {
		return errNotOpened
	}

	payload, err := c.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to encode contract: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contract_cache
			(id, cache_key, program, dialect, source_path, line_length, record_count, contract_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			program = excluded.program,
			dialect = excluded.dialect,
			source_path = excluded.source_path,
			line_length = excluded.line_length,
			record_count = excluded.record_count,
			contract_json = excluded.contract_json,
			created_at = excluded.created_at`,
		uuid.New().String(), key, c.SourceProgram, dialect, sourcePath,
		c.LineLength, len(c.RecordTypes), string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to cache contract: %w", err)
	}
	return nil
}

// List returns every entry, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cache_key, program, dialect, source_path, line_length, record_count, created_at
		FROM contract_cache ORDER BY created_at DESC, program`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached contracts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Key, &e.Program, &e.Dialect, &e.SourcePath, &e.LineLength, &e.RecordCount, &created); err != nil {
			return nil, fmt.Errorf("failed to scan cached contract: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("invalid timestamp for %s: %w", e.Key, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cached contracts: %w", err)
	}
	return entries, nil
}

// DeleteSource drops every entry built from sourcePath.
func (s *SQLiteStore) DeleteSource(ctx context.Context, sourcePath string) (int64, error) {
	return s.exec(ctx, `DELETE FROM contract_cache WHERE source_path = ?`, sourcePath)
}

// Clear drops every entry.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	return s.exec(ctx, `DELETE FROM contract_cache`)
}

func (s *SQLiteStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	if s.db == nil {
		return 0, errNotOpened
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cached contracts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete cached contracts: %w", err)
	}
	return n, nil
}
