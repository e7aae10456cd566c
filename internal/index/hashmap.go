package index

import (
	"sync"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/storage"
)

// HashMapIndex is the unordered id → range map of §4.3.2. Unlike the
// original source (whose HashMap insert silently overwrote on a
// duplicate id), this implementation rejects duplicates with
// ErrAlreadyExists, unifying its contract with the other strategies as
// §4.3.2 directs.
type HashMapIndex struct {
	mu   sync.Mutex
	ops  storage.Operations
	m    map[string]storage.OffsetSize
	txid uint64
}

// NewHashMapIndex bootstraps a HashMapIndex over ops.
func NewHashMapIndex(ops storage.Operations) (*HashMapIndex, error) {
	entries, err := bootstrap(ops)
	if err != nil {
		return nil, err
	}
	m := make(map[string]storage.OffsetSize, len(entries))
	for _, e := range entries {
		m[idKey(e.doc.ID)] = e.offset
	}
	return &HashMapIndex{ops: ops, m: m, txid: uint64(len(entries))}, nil
}

func (h *HashMapIndex) nextTxID() uint64 {
	t := h.txid
	h.txid++
	return t
}

func (h *HashMapIndex) Insert(doc Document) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := idKey(doc.ID)
	if _, exists := h.m[key]; exists {
		return dberrors.ErrAlreadyExists
	}
	r, err := h.ops.Insert(encodeDocument(doc), h.nextTxID())
	if err != nil {
		return err
	}
	h.m[key] = r
	return nil
}

func (h *HashMapIndex) Search(id []byte) (Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.m[idKey(id)]
	if !ok {
		return Document{}, dberrors.ErrNotFound
	}
	tuple, err := h.ops.ReadWithOffset(r)
	if err != nil {
		return Document{}, err
	}
	return decodeDocument(tuple.Payload)
}

func (h *HashMapIndex) Delete(id []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := idKey(id)
	r, ok := h.m[key]
	if !ok {
		return dberrors.ErrNotFound
	}
	if err := h.ops.DeleteWithOffset(r, h.nextTxID()); err != nil {
		return err
	}
	delete(h.m, key)
	return nil
}

func (h *HashMapIndex) Update(id []byte, doc Document) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := idKey(id)
	r, ok := h.m[key]
	if !ok {
		return dberrors.ErrNotFound
	}
	newRange, err := h.ops.UpdateWithOffset(r, encodeDocument(doc), h.nextTxID())
	if err != nil {
		return err
	}
	h.m[idKey(doc.ID)] = newRange
	return nil
}
