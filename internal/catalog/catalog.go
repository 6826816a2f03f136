// Package catalog persists extraction results to a SQLite ledger so past
// runs can be listed and looked up by content hash.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/toridasu/internal/models"
)

// Catalog stores one row per extracted document and one row per batch run.
type Catalog struct {
	db *sql.DB
}

// Entry is one document row.
type Entry struct {
	FileHash          string    `json:"file_hash"`
	FilePath          string    `json:"file_path"`
	PageCount         int       `json:"page_count"`
	TotalWords        int       `json:"total_words"`
	TotalChars        int       `json:"total_chars"`
	ImagesCount       int       `json:"images_count"`
	FileSizeMB        float64   `json:"file_size_mb"`
	ExtractionSeconds float64   `json:"extraction_seconds"`
	OutputPath        string    `json:"output_path"`
	RunID             string    `json:"run_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Open opens or creates the catalog database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		file_hash TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		total_words INTEGER NOT NULL,
		total_chars INTEGER NOT NULL,
		images_count INTEGER NOT NULL,
		file_size_mb REAL NOT NULL,
		extraction_seconds REAL NOT NULL,
		output_path TEXT NOT NULL,
		run_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
	CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		input_dir TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		elapsed_seconds REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRecord upserts the catalog row for record, keyed by its content hash.
// Re-extracting the same bytes replaces the previous row.
func (c *Catalog) SaveRecord(ctx context.Context, record *models.DocumentRecord, outputPath, runID string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records
		 (file_hash, file_path, page_count, total_words, total_chars,
		  images_count, file_size_mb, extraction_seconds, output_path, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.FileHash, record.FilePath, record.PageCount, record.TotalWords,
		record.TotalChars, record.ImagesCount, record.FileSizeMB,
		record.ExtractionTime, outputPath, runID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// GetByHash returns the catalog entry for a content hash.
func (c *Catalog) GetByHash(ctx context.Context, hash string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT file_hash, file_path, page_count, total_words, total_chars,
		        images_count, file_size_mb, extraction_seconds, output_path,
		        COALESCE(run_id, ''), created_at
		 FROM records WHERE file_hash = ?`, hash)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record not found: %s", hash)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns up to limit entries, most recent first.
func (c *Catalog) List(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT file_hash, file_path, page_count, total_words, total_chars,
		        images_count, file_size_mb, extraction_seconds, output_path,
		        COALESCE(run_id, ''), created_at
		 FROM records ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	err := s.Scan(&e.FileHash, &e.FilePath, &e.PageCount, &e.TotalWords,
		&e.TotalChars, &e.ImagesCount, &e.FileSizeMB, &e.ExtractionSeconds,
		&e.OutputPath, &e.RunID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveRun records the aggregate stats of one batch run.
func (c *Catalog) SaveRun(ctx context.Context, stats *models.BatchStats) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, input_dir, succeeded, failed, skipped, elapsed_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stats.RunID, stats.InputDir, stats.Succeeded, stats.Failed,
		stats.Skipped, stats.Elapsed, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// CountRecords returns the number of cataloged documents.
func (c *Catalog) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// CountRuns returns the number of recorded batch runs.
func (c *Catalog) CountRuns(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
