package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"audioflow/pkg/audiometa"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audio_records (
	id              TEXT PRIMARY KEY,
	chapter_name    TEXT NOT NULL,
	company_name    TEXT NOT NULL,
	company_website TEXT NOT NULL DEFAULT '',
	audio_url       TEXT NOT NULL
)`

// SQLite serves records from the audio_records table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Lookup selects the row for id.
func (s *SQLite) Lookup(ctx context.Context, id string) (*audiometa.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chapter_name, company_name, company_website, audio_url
		 FROM audio_records WHERE id = ?`, id)

	var record audiometa.Record
	err := row.Scan(&record.ID, &record.ChapterName, &record.CompanyName,
		&record.CompanyWebsite, &record.AudioURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", audiometa.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audiometa.ErrUnavailable, err)
	}

	return &record, nil
}

// IDs returns every identifier in the table.
func (s *SQLite) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM audio_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Seed upserts records in a single transaction.
func (s *SQLite) Seed(ctx context.Context, records []audiometa.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audio_records (id, chapter_name, company_name, company_website, audio_url)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			chapter_name = excluded.chapter_name,
			company_name = excluded.company_name,
			company_website = excluded.company_website,
			audio_url = excluded.audio_url`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.ChapterName, r.CompanyName, r.CompanyWebsite, r.AudioURL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
