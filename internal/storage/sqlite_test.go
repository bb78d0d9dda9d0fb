package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kuchikomi/internal/models"
)

func doc(source string, id int, content string) StoredDocument {
	return StoredDocument{
		Document: models.Document{
			Content:  content,
			Metadata: models.DocumentMetadata{Source: source, ID: id},
		},
		ContentHash: "sha256:" + content,
	}
}

func TestSQLiteStorage_UpsertAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.UpsertDocuments(ctx, "RestaurantDB", []StoredDocument{
		doc("tokyo", 0, "a"),
		doc("tokyo", 1, "b"),
		doc("osaka", 2, "c"),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetDocument(ctx, "RestaurantDB", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "c" || got.Metadata.Source != "osaka" || got.Metadata.ID != 2 {
		t.Errorf("got %+v", got)
	}

	n, _ := store.CountDocuments(ctx, "RestaurantDB")
	if n != 3 {
		t.Errorf("expected 3 docs, got %d", n)
	}
}

func TestSQLiteStorage_UpsertReplaces(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	_ = store.UpsertDocuments(ctx, "c", []StoredDocument{doc("s", 0, "old")})
	if err := store.UpsertDocuments(ctx, "c", []StoredDocument{doc("s", 0, "new")}); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountDocuments(ctx, "c")
	if n != 1 {
		t.Errorf("re-upsert must not duplicate, count %d", n)
	}
	got, _ := store.GetDocument(ctx, "c", 0)
	if got.Content != "new" {
		t.Errorf("content %q", got.Content)
	}
	hashes, err := store.ContentHashes(ctx, "c")
	if err != nil {
		t.Fatal(err)
	}
	if hashes[0] != "sha256:new" {
		t.Errorf("hash %q", hashes[0])
	}
}

func TestSQLiteStorage_CollectionsAreIsolated(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	_ = store.UpsertDocuments(ctx, "one", []StoredDocument{doc("s", 0, "x")})
	_ = store.UpsertDocuments(ctx, "two", []StoredDocument{doc("s", 0, "y"), doc("s", 1, "z")})

	n1, _ := store.CountDocuments(ctx, "one")
	n2, _ := store.CountDocuments(ctx, "two")
	if n1 != 1 || n2 != 2 {
		t.Errorf("counts %d %d", n1, n2)
	}
	got, err := store.GetDocument(ctx, "two", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "z" {
		t.Errorf("content = %q, want z", got.Content)
	}
}

func TestSQLiteStorage_DeleteDocuments(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.UpsertDocuments(ctx, "c", []StoredDocument{doc("s", 0, "a"), doc("s", 1, "b"), doc("s", 2, "c")}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertDocuments(ctx, "other", []StoredDocument{doc("s", 2, "kept")}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteDocuments(ctx, "c", []int{2, 9}); err != nil {
		t.Fatal(err)
	}

	if n, _ := store.CountDocuments(ctx, "c"); n != 2 {
		t.Errorf("count after delete = %d, want 2", n)
	}
	if _, err := store.GetDocument(ctx, "c", 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted id, got %v", err)
	}
	if _, err := store.GetDocument(ctx, "other", 2); err != nil {
		t.Errorf("delete leaked into another collection: %v", err)
	}
	if err := store.DeleteDocuments(ctx, "c", nil); err != nil {
		t.Errorf("empty delete: %v", err)
	}
}

func TestSQLiteStorage_GetMissing(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.GetDocument(context.Background(), "c", 7)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_UpsertRollsBackOnCancel(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.UpsertDocuments(ctx, "c", []StoredDocument{doc("s", 0, "x")}); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	n, _ := store.CountDocuments(context.Background(), "c")
	if n != 0 {
		t.Errorf("nothing should be written, count %d", n)
	}
}
