package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestFileHandler(t *testing.T) (FileHandler, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "patrickdb_file_test")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "data.db")
	fh, err := NewFileHandler(path, false)
	if err != nil {
		t.Fatalf("NewFileHandler: %v", err)
	}
	return fh, path
}

func TestFileHandler_AppendReturnsOffsetBeforeWrite(t *testing.T) {
	fh, _ := newTestFileHandler(t)

	data := []byte("hello, world!")
	offset, err := fh.Append(data)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if offset != 0 {
		t.Fatalf("first append offset = %d, want 0", offset)
	}

	offset2, err := fh.Append(data)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if offset2 != uint64(len(data)) {
		t.Fatalf("second append offset = %d, want %d", offset2, len(data))
	}
}

func TestFileHandler_ReadReadsExactRange(t *testing.T) {
	fh, _ := newTestFileHandler(t)

	data := []byte("hello, world!")
	if _, err := fh.Append(data); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := fh.Read(0, uint64(len(data)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Read = %q, want %q", got, data)
	}
}

func TestFileHandler_ReadFailsOnShortRead(t *testing.T) {
	fh, _ := newTestFileHandler(t)

	if _, err := fh.Append([]byte("abc")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := fh.Read(0, 100); err == nil {
		t.Fatal("Read beyond EOF should fail")
	}
}

func TestFileHandler_ReadAllReturnsEverything(t *testing.T) {
	fh, _ := newTestFileHandler(t)

	if _, err := fh.Append([]byte("abc")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := fh.Append([]byte("defg")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := fh.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "abcdefg" {
		t.Fatalf("ReadAll = %q, want %q", got, "abcdefg")
	}
}

func TestFileHandler_UpdateOverwritesInPlace(t *testing.T) {
	fh, _ := newTestFileHandler(t)

	if _, err := fh.Append([]byte("Hello, world")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := fh.Update(0, []byte("Hello, Patrk")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := fh.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "Hello, Patrk" {
		t.Fatalf("ReadAll after update = %q", got)
	}
}
