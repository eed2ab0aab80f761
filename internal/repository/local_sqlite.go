package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"tycoon-engine/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteLocalSaveRepository implements LocalSaveRepository using SQLite.
// It plays the role of the browser's local storage: one row per save key.
type SQLiteLocalSaveRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteLocalSaveRepository opens (and creates if needed) the save database.
// dbPath is the path to the SQLite database file (e.g., "./data/saves.db")
func NewSQLiteLocalSaveRepository(dbPath string) (*SQLiteLocalSaveRepository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createLocalSaveTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteLocalSave] Initialized with database: %s", dbPath)
	return &SQLiteLocalSaveRepository{db: db}, nil
}

// createLocalSaveTables creates the local_saves table.
func createLocalSaveTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS local_saves (
		save_key TEXT PRIMARY KEY,
		codec TEXT NOT NULL,
		checksum TEXT NOT NULL,
		payload BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// PutSave inserts or replaces the save stored under rec.Key.
func (r *SQLiteLocalSaveRepository) PutSave(ctx context.Context, rec model.SaveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO local_saves (save_key, codec, checksum, payload, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(save_key) DO UPDATE SET
			codec = excluded.codec,
			checksum = excluded.checksum,
			payload = excluded.payload,
			saved_at = excluded.saved_at`

	_, err := r.db.ExecContext(ctx, query, rec.Key, rec.Codec, rec.Checksum, rec.Payload, rec.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert local save: %w", err)
	}
	return nil
}

// GetSave returns the save stored under key, or nil if there is none.
func (r *SQLiteLocalSaveRepository) GetSave(ctx context.Context, key string) (*model.SaveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT codec, checksum, payload, saved_at FROM local_saves WHERE save_key = ?`

	rec := model.SaveRecord{Key: key}
	var savedAt int64
	err := r.db.QueryRowContext(ctx, query, key).Scan(&rec.Codec, &rec.Checksum, &rec.Payload, &savedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get local save: %w", err)
	}
	rec.SavedAt = time.UnixMilli(savedAt)
	return &rec, nil
}

// DeleteSave removes the save stored under key.
func (r *SQLiteLocalSaveRepository) DeleteSave(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_saves WHERE save_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete local save: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteLocalSaveRepository) Close() error {
	return r.db.Close()
}
