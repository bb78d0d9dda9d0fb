package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kuchikomi/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id INTEGER NOT NULL,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(collection, source);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocuments writes docs in a single transaction. Either all rows are written or none.
func (s *SQLiteStorage) UpsertDocuments(ctx context.Context, collection string, docs []StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (collection, id, source, content, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET
			source = excluded.source,
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, d := range docs {
		md := d.Document.Metadata
		if _, err := stmt.ExecContext(ctx, collection, md.ID, md.Source, d.Document.Content, d.ContentHash, now, now); err != nil {
			return fmt.Errorf("upsert document %d: %w", md.ID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by id. Returns ErrNotFound when missing.
func (s *SQLiteStorage) GetDocument(ctx context.Context, collection string, id int) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, content FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&doc.Metadata.ID, &doc.Metadata.Source, &doc.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ContentHashes returns the stored fingerprint of every document in the collection.
func (s *SQLiteStorage) ContentHashes(ctx context.Context, collection string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var id int
		var hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, err
		}
		out[id] = hash
	}
	return out, rows.Err()
}

// DeleteDocuments removes the given ids from the collection in a single transaction.
// Unknown ids are ignored.
func (s *SQLiteStorage) DeleteDocuments(ctx context.Context, collection string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, collection, id); err != nil {
			return fmt.Errorf("delete document %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// CountDocuments returns the number of documents in the collection.
func (s *SQLiteStorage) CountDocuments(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
