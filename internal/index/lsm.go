package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"patrickdb/internal/bloom"
	"patrickdb/internal/dberrors"
	"patrickdb/internal/storage"
)

// ssEntry is the (range, deleted-flag) pair §4.3.4 stores both in the
// memtable and in each flushed SS-table file.
type ssEntry struct {
	Range   storage.OffsetSize
	Deleted bool
}

// LSMIndex is the log-structured merge tree strategy of §4.3.4: an
// in-memory ordered memtable, a counting Bloom filter, and a directory of
// previously-flushed sorted runs.
type LSMIndex struct {
	mu   sync.Mutex
	ops  storage.Operations
	txid uint64

	memtable map[string]*ssEntry
	memKeys  []string // sorted

	bloom *bloom.Filter

	treeSize   int
	ssTablePath string
	ssTables    []string // file names, in flush order
}

// NewLSMIndex clears ssTablePath, then bootstraps by scanning the backing
// file from offset 0, flushing the memtable to disk whenever it reaches
// treeSize, exactly as §4.3.4 specifies.
func NewLSMIndex(ops storage.Operations, ssTablePath string, treeSize int, bloomFilterSize uint64) (*LSMIndex, error) {
	if err := os.MkdirAll(ssTablePath, 0755); err != nil {
		return nil, fmt.Errorf("index: lsm ss-table dir: %w", err)
	}
	if err := clearDir(ssTablePath); err != nil {
		return nil, err
	}

	l := &LSMIndex{
		ops:         ops,
		memtable:    make(map[string]*ssEntry),
		bloom:       bloom.New(bloomFilterSize),
		treeSize:    treeSize,
		ssTablePath: ssTablePath,
	}

	entries, err := bootstrap(ops)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		key := idKey(e.doc.ID)
		l.memtable[key] = &ssEntry{Range: e.offset}
		l.insertMemKey(key)
		l.bloom.Insert(e.doc.ID)
		if len(l.memtable) == l.treeSize {
			if err := l.flush(); err != nil {
				return nil, err
			}
		}
	}
	l.txid = uint64(len(entries))

	return l, nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("index: lsm read ss-table dir: %w", err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("index: lsm clear ss-table dir: %w", err)
		}
	}
	return nil
}

func (l *LSMIndex) nextTxID() uint64 {
	t := l.txid
	l.txid++
	return t
}

func (l *LSMIndex) insertMemKey(key string) {
	i := sort.SearchStrings(l.memKeys, key)
	l.memKeys = append(l.memKeys, "")
	copy(l.memKeys[i+1:], l.memKeys[i:])
	l.memKeys[i] = key
}

func (l *LSMIndex) removeMemKey(key string) {
	i := sort.SearchStrings(l.memKeys, key)
	if i < len(l.memKeys) && l.memKeys[i] == key {
		l.memKeys = append(l.memKeys[:i], l.memKeys[i+1:]...)
	}
}

// flush serializes the memtable to a new ss_table_<k> file (k = the
// pre-existing file count) and clears the memtable.
func (l *LSMIndex) flush() error {
	k := len(l.ssTables)
	name := fmt.Sprintf("ss_table_%d", k)
	path := filepath.Join(l.ssTablePath, name)

	snapshot := make(map[string]ssEntry, len(l.memtable))
	for key, e := range l.memtable {
		snapshot[key] = *e
	}
	if err := writeSSTable(path, snapshot); err != nil {
		return err
	}

	l.ssTables = append(l.ssTables, name)
	l.memtable = make(map[string]*ssEntry)
	l.memKeys = nil
	return nil
}

func writeSSTable(path string, m map[string]ssEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("index: lsm write ss-table %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("index: lsm encode ss-table %s: %w", path, err)
	}
	return nil
}

// readSSTable always opens by full path (filepath.Join(ssTablePath,
// name)), resolving the reference source's open question: it used to
// open SS tables by bare file name.
func readSSTable(path string) (map[string]ssEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: lsm read ss-table %s: %w", path, err)
	}
	defer f.Close()

	m := make(map[string]ssEntry)
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("index: lsm decode ss-table %s: %w", path, err)
	}
	return m, nil
}

// Insert adds a new live document, flushing the memtable to disk if it
// has just reached treeSize.
func (l *LSMIndex) Insert(doc Document) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := idKey(doc.ID)
	if _, exists := l.memtable[key]; exists {
		return dberrors.ErrAlreadyExists
	}
	if l.bloom.Check(doc.ID) {
		for _, name := range l.ssTables {
			m, err := readSSTable(filepath.Join(l.ssTablePath, name))
			if err != nil {
				return err
			}
			if e, ok := m[key]; ok && !e.Deleted {
				return dberrors.ErrAlreadyExists
			}
		}
	}

	r, err := l.ops.Insert(encodeDocument(doc), l.nextTxID())
	if err != nil {
		return err
	}
	l.memtable[key] = &ssEntry{Range: r}
	l.insertMemKey(key)
	l.bloom.Insert(doc.ID)

	if len(l.memtable) == l.treeSize {
		return l.flush()
	}
	return nil
}

// Search: if the Bloom filter reports absent, NotFound; otherwise look in
// the memtable, then scan flushed files in flush order and
// return the first match whose entry is not tombstoned.
func (l *LSMIndex) Search(id []byte) (Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.bloom.Check(id) {
		return Document{}, dberrors.ErrNotFound
	}

	key := idKey(id)
	if e, ok := l.memtable[key]; ok && !e.Deleted {
		tuple, err := l.ops.ReadWithOffset(e.Range)
		if err != nil {
			return Document{}, err
		}
		return decodeDocument(tuple.Payload)
	}

	for _, name := range l.ssTables {
		m, err := readSSTable(filepath.Join(l.ssTablePath, name))
		if err != nil {
			return Document{}, err
		}
		if e, ok := m[key]; ok && !e.Deleted {
			tuple, err := l.ops.ReadWithOffset(e.Range)
			if err != nil {
				return Document{}, err
			}
			return decodeDocument(tuple.Payload)
		}
	}

	return Document{}, dberrors.ErrNotFound
}

// Delete: if in-memory, delete via the operations layer, drop the
// memtable entry, and remove one Bloom count. Otherwise find the first
// live entry across the flushed files, mark it deleted, overwrite its
// backing file, delete via the operations layer, and remove one Bloom
// count. Missing everywhere is NotFound.
func (l *LSMIndex) Delete(id []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := idKey(id)
	if e, ok := l.memtable[key]; ok && !e.Deleted {
		if err := l.ops.DeleteWithOffset(e.Range, l.nextTxID()); err != nil {
			return err
		}
		delete(l.memtable, key)
		l.removeMemKey(key)
		l.bloom.Remove(id)
		return nil
	}

	for _, name := range l.ssTables {
		path := filepath.Join(l.ssTablePath, name)
		m, err := readSSTable(path)
		if err != nil {
			return err
		}
		e, ok := m[key]
		if !ok || e.Deleted {
			continue
		}
		if err := l.ops.DeleteWithOffset(e.Range, l.nextTxID()); err != nil {
			return err
		}
		e.Deleted = true
		m[key] = e
		if err := writeSSTable(path, m); err != nil {
			return err
		}
		l.bloom.Remove(id)
		return nil
	}

	return dberrors.ErrNotFound
}

// Update: if in-memory, perform UpdateWithOffset and replace the
// memtable entry. Otherwise mark-deleted in the flushed files (as
// Delete's flushed-file path does), then insert the new document, which
// may itself trigger a flush.
func (l *LSMIndex) Update(id []byte, doc Document) error {
	l.mu.Lock()

	key := idKey(id)
	if e, ok := l.memtable[key]; ok && !e.Deleted {
		newRange, err := l.ops.UpdateWithOffset(e.Range, encodeDocument(doc), l.nextTxID())
		if err != nil {
			l.mu.Unlock()
			return err
		}
		if idKey(doc.ID) != key {
			delete(l.memtable, key)
			l.removeMemKey(key)
			l.memtable[idKey(doc.ID)] = &ssEntry{Range: newRange}
			l.insertMemKey(idKey(doc.ID))
		} else {
			l.memtable[key].Range = newRange
		}
		l.mu.Unlock()
		return nil
	}

	for _, name := range l.ssTables {
		path := filepath.Join(l.ssTablePath, name)
		m, err := readSSTable(path)
		if err != nil {
			l.mu.Unlock()
			return err
		}
		e, ok := m[key]
		if !ok || e.Deleted {
			continue
		}
		if err := l.ops.DeleteWithOffset(e.Range, l.nextTxID()); err != nil {
			l.mu.Unlock()
			return err
		}
		e.Deleted = true
		m[key] = e
		if err := writeSSTable(path, m); err != nil {
			l.mu.Unlock()
			return err
		}
		l.mu.Unlock()
		return l.Insert(doc)
	}

	l.mu.Unlock()
	return dberrors.ErrNotFound
}
