// Package ledger records which extensions pgextdemo installed on each target
// database, so a later teardown-only run knows it may remove them.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/bcomnes/pgextdemo"
)

var _ pgextdemo.Ledger = (*Store)(nil)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS installed_extensions (
  target       TEXT NOT NULL,
  extname      TEXT NOT NULL,
  installed_at TEXT NOT NULL,
  PRIMARY KEY (target, extname)
);`

// Store is a SQLite-backed ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger table: %w", err)
	}
	return &Store{db: db}, nil
}

// Owned returns the extensions recorded for target, sorted by name.
func (s *Store) Owned(ctx context.Context, target string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
      SELECT extname
      FROM installed_extensions
      WHERE target = ?
      ORDER BY extname;`, target)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Record marks extensions as installed by the demo on target.
func (s *Store) Record(ctx context.Context, target string, extensions []string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, ext := range extensions {
			_, err := tx.ExecContext(ctx, `
          INSERT OR REPLACE INTO installed_extensions (target, extname, installed_at)
          VALUES (?, ?, ?);`, target, ext, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Forget removes extensions from target's record.
func (s *Store) Forget(ctx context.Context, target string, extensions []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, ext := range extensions {
			_, err := tx.ExecContext(ctx, `
          DELETE FROM installed_extensions
          WHERE target = ? AND extname = ?;`, target, ext)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
