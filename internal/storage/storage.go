// Package storage defines the persistence interface for document collections.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kuchikomi/internal/models"
)

// ErrNotFound is returned when a document does not exist in a collection.
var ErrNotFound = errors.New("document not found")

// StoredDocument is a document row with its content fingerprint.
type StoredDocument struct {
	Document    models.Document
	ContentHash string
}

// Storage defines collection-scoped document persistence.
// Documents are keyed by (collection, metadata id); writing an existing key replaces it.
type Storage interface {
	UpsertDocuments(ctx context.Context, collection string, docs []StoredDocument) error
	GetDocument(ctx context.Context, collection string, id int) (*models.Document, error)
	ContentHashes(ctx context.Context, collection string) (map[int]string, error)
	DeleteDocuments(ctx context.Context, collection string, ids []int) error
	CountDocuments(ctx context.Context, collection string) (int64, error)
	Close() error
}
