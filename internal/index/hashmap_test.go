package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/storage"
)

func newHashMapFixture(t *testing.T) *HashMapIndex {
	t.Helper()
	dir, err := os.MkdirTemp("", "patrickdb_hashmap_test")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	fh, err := storage.NewFileHandler(filepath.Join(dir, "data.db"), false)
	if err != nil {
		t.Fatalf("NewFileHandler: %v", err)
	}
	idx, err := NewHashMapIndex(storage.NewOperations(fh))
	if err != nil {
		t.Fatalf("NewHashMapIndex: %v", err)
	}
	return idx
}

func TestHashMapIndex_InsertSearchDeleteUpdate(t *testing.T) {
	idx := newHashMapFixture(t)

	doc := Document{ID: []byte("a"), Value: []byte("1")}
	if err := idx.Insert(doc); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := idx.Search([]byte("a"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if string(got.Value) != "1" {
		t.Fatalf("Value = %q, want %q", got.Value, "1")
	}

	if err := idx.Update([]byte("a"), Document{ID: []byte("a"), Value: []byte("2")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = idx.Search([]byte("a"))
	if err != nil {
		t.Fatalf("Search after update: %v", err)
	}
	if string(got.Value) != "2" {
		t.Fatalf("Value after update = %q, want %q", got.Value, "2")
	}

	if err := idx.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := idx.Search([]byte("a")); !errors.Is(err, dberrors.ErrNotFound) {
		t.Fatalf("Search after delete = %v, want ErrNotFound", err)
	}
}

func TestHashMapIndex_DuplicateInsertRejected(t *testing.T) {
	idx := newHashMapFixture(t)

	doc := Document{ID: []byte("dup"), Value: []byte("1")}
	if err := idx.Insert(doc); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(doc); !errors.Is(err, dberrors.ErrAlreadyExists) {
		t.Fatalf("duplicate Insert = %v, want ErrAlreadyExists", err)
	}
}

func TestHashMapIndex_SearchDeleteUpdateMissingIsNotFound(t *testing.T) {
	idx := newHashMapFixture(t)

	if _, err := idx.Search([]byte("missing")); !errors.Is(err, dberrors.ErrNotFound) {
		t.Fatalf("Search missing = %v, want ErrNotFound", err)
	}
	if err := idx.Delete([]byte("missing")); !errors.Is(err, dberrors.ErrNotFound) {
		t.Fatalf("Delete missing = %v, want ErrNotFound", err)
	}
	if err := idx.Update([]byte("missing"), Document{ID: []byte("missing"), Value: []byte("x")}); !errors.Is(err, dberrors.ErrNotFound) {
		t.Fatalf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestHashMapIndex_BootstrapRecoversLiveEntries(t *testing.T) {
	dir, err := os.MkdirTemp("", "patrickdb_hashmap_bootstrap_test")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "data.db")

	fh, err := storage.NewFileHandler(path, false)
	if err != nil {
		t.Fatalf("NewFileHandler: %v", err)
	}
	idx, err := NewHashMapIndex(storage.NewOperations(fh))
	if err != nil {
		t.Fatalf("NewHashMapIndex: %v", err)
	}
	if err := idx.Insert(Document{ID: []byte("a"), Value: []byte("1")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(Document{ID: []byte("b"), Value: []byte("2")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Delete([]byte("b")); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	fh2, err := storage.NewFileHandler(path, false)
	if err != nil {
		t.Fatalf("NewFileHandler (reopen): %v", err)
	}
	reopened, err := NewHashMapIndex(storage.NewOperations(fh2))
	if err != nil {
		t.Fatalf("NewHashMapIndex (reopen): %v", err)
	}

	if _, err := reopened.Search([]byte("a")); err != nil {
		t.Fatalf("Search(a) after reopen: %v", err)
	}
	if _, err := reopened.Search([]byte("b")); !errors.Is(err, dberrors.ErrNotFound) {
		t.Fatalf("Search(b) after reopen = %v, want ErrNotFound (tombstoned)", err)
	}
}
