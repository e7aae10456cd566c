package index

import (
	"sort"
	"sync"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/storage"
)

// OrderedMapIndex has the same contract as HashMapIndex (§4.3.3): insert,
// search, delete, update are semantically identical. What differs is
// that the underlying map is kept ordered by id, via a sorted key slice
// alongside the map, so a future range operation could walk it in order
// (not exposed by the Index interface today).
type OrderedMapIndex struct {
	mu   sync.Mutex
	ops  storage.Operations
	m    map[string]storage.OffsetSize
	keys []string // sorted
	txid uint64
}

// NewOrderedMapIndex bootstraps an OrderedMapIndex over ops.
func NewOrderedMapIndex(ops storage.Operations) (*OrderedMapIndex, error) {
	entries, err := bootstrap(ops)
	if err != nil {
		return nil, err
	}
	m := make(map[string]storage.OffsetSize, len(entries))
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		k := idKey(e.doc.ID)
		m[k] = e.offset
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &OrderedMapIndex{ops: ops, m: m, keys: keys, txid: uint64(len(entries))}, nil
}

func (o *OrderedMapIndex) nextTxID() uint64 {
	t := o.txid
	o.txid++
	return t
}

func (o *OrderedMapIndex) insertKey(key string) {
	i := sort.SearchStrings(o.keys, key)
	o.keys = append(o.keys, "")
	copy(o.keys[i+1:], o.keys[i:])
	o.keys[i] = key
}

func (o *OrderedMapIndex) removeKey(key string) {
	i := sort.SearchStrings(o.keys, key)
	if i < len(o.keys) && o.keys[i] == key {
		o.keys = append(o.keys[:i], o.keys[i+1:]...)
	}
}

func (o *OrderedMapIndex) Insert(doc Document) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := idKey(doc.ID)
	if _, exists := o.m[key]; exists {
		return dberrors.ErrAlreadyExists
	}
	r, err := o.ops.Insert(encodeDocument(doc), o.nextTxID())
	if err != nil {
		return err
	}
	o.m[key] = r
	o.insertKey(key)
	return nil
}

func (o *OrderedMapIndex) Search(id []byte) (Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.m[idKey(id)]
	if !ok {
		return Document{}, dberrors.ErrNotFound
	}
	tuple, err := o.ops.ReadWithOffset(r)
	if err != nil {
		return Document{}, err
	}
	return decodeDocument(tuple.Payload)
}

func (o *OrderedMapIndex) Delete(id []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := idKey(id)
	r, ok := o.m[key]
	if !ok {
		return dberrors.ErrNotFound
	}
	if err := o.ops.DeleteWithOffset(r, o.nextTxID()); err != nil {
		return err
	}
	delete(o.m, key)
	o.removeKey(key)
	return nil
}

func (o *OrderedMapIndex) Update(id []byte, doc Document) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := idKey(id)
	r, ok := o.m[key]
	if !ok {
		return dberrors.ErrNotFound
	}
	newRange, err := o.ops.UpdateWithOffset(r, encodeDocument(doc), o.nextTxID())
	if err != nil {
		return err
	}
	o.m[idKey(doc.ID)] = newRange
	return nil
}
