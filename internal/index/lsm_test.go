package index

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/storage"
)

func newLSMFixture(t *testing.T, treeSize int) (*LSMIndex, string) {
	t.Helper()
	dir := t.TempDir()
	fh, err := storage.NewFileHandler(filepath.Join(dir, "data.db"), false)
	if err != nil {
		t.Fatalf("NewFileHandler: %v", err)
	}
	t.Cleanup(func() { fh.(interface{ Close() error }).Close() })
	ops := storage.NewOperations(fh)

	ssDir := filepath.Join(dir, "ss_tables")
	idx, err := NewLSMIndex(ops, ssDir, treeSize, 1024)
	if err != nil {
		t.Fatalf("NewLSMIndex: %v", err)
	}
	return idx, ssDir
}

// S2: 100 ids with tree_size 10 produce 10 flushed SS-table files.
func TestLSMIndex_FlushesOnTreeSize(t *testing.T) {
	idx, ssDir := newLSMFixture(t, 10)

	for i := 0; i < 100; i++ {
		id := []byte(fmt.Sprintf("id-%03d", i))
		if err := idx.Insert(Document{ID: id, Value: []byte("v")}); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(ssDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("want 10 ss-table files, got %d", len(entries))
	}

	doc, err := idx.Search([]byte("id-055"))
	if err != nil {
		t.Fatalf("Search flushed id: %v", err)
	}
	if string(doc.Value) != "v" {
		t.Fatalf("unexpected value %q", doc.Value)
	}
}

func TestLSMIndex_InsertSearchDeleteInMemtable(t *testing.T) {
	idx, _ := newLSMFixture(t, 100)

	id := []byte("k1")
	if err := idx.Insert(Document{ID: id, Value: []byte("v1")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	doc, err := idx.Search(id)
	if err != nil || string(doc.Value) != "v1" {
		t.Fatalf("Search: %v %v", doc, err)
	}
	if err := idx.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := idx.Search(id); err != dberrors.ErrNotFound {
		t.Fatalf("Search after delete: want ErrNotFound, got %v", err)
	}
}

func TestLSMIndex_SearchMissingIsNotFound(t *testing.T) {
	idx, _ := newLSMFixture(t, 10)
	if _, err := idx.Search([]byte("nope")); err != dberrors.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLSMIndex_UpdateAfterFlushReplacesFlushedEntry(t *testing.T) {
	idx, _ := newLSMFixture(t, 5)

	for i := 0; i < 5; i++ {
		id := []byte(fmt.Sprintf("id-%d", i))
		if err := idx.Insert(Document{ID: id, Value: []byte("old")}); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	// The memtable has just flushed, so id-2 now lives in ss_table_0.
	if err := idx.Update([]byte("id-2"), Document{ID: []byte("id-2"), Value: []byte("new")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc, err := idx.Search([]byte("id-2"))
	if err != nil {
		t.Fatalf("Search after update: %v", err)
	}
	if string(doc.Value) != "new" {
		t.Fatalf("want updated value, got %q", doc.Value)
	}
}

func TestLSMIndex_DeleteMissingIsNotFound(t *testing.T) {
	idx, _ := newLSMFixture(t, 10)
	if err := idx.Delete([]byte("nope")); err != dberrors.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLSMIndex_InsertDuplicateWhileInMemtable(t *testing.T) {
	idx, _ := newLSMFixture(t, 100)
	id := []byte("dup")
	if err := idx.Insert(Document{ID: id, Value: []byte("a")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(Document{ID: id, Value: []byte("b")}); err != dberrors.ErrAlreadyExists {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}
