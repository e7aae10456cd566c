package index

import (
	"sync/atomic"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/storage"
)

// NoIndex is the sequential-scan strategy of §4.3.1: no in-memory map,
// every operation scans ReadAll and matches the id linearly. Duplicate
// ids are permitted on insert; search returns the first match.
type NoIndex struct {
	ops   storage.Operations
	txid  atomic.Uint64
}

// NewNoIndex bootstraps a NoIndex over ops. Bootstrap for NoIndex only
// needs the count of live tuples to seed the transaction id, since there
// is no in-memory map to populate.
func NewNoIndex(ops storage.Operations) (*NoIndex, error) {
	entries, err := bootstrap(ops)
	if err != nil {
		return nil, err
	}
	n := &NoIndex{ops: ops}
	n.txid.Store(uint64(len(entries)))
	return n, nil
}

func (n *NoIndex) nextTxID() uint64 {
	return n.txid.Add(1) - 1
}

// Insert never fails with AlreadyExists: duplicate ids are permitted.
func (n *NoIndex) Insert(doc Document) error {
	_, err := n.ops.Insert(encodeDocument(doc), n.nextTxID())
	return err
}

// Search scans the file and returns the first live tuple matching id.
func (n *NoIndex) Search(id []byte) (Document, error) {
	rows, err := n.ops.ReadAll()
	if err != nil {
		return Document{}, err
	}
	for _, row := range rows {
		if !row.Header.Live() {
			continue
		}
		doc, err := decodeDocument(row.Payload)
		if err != nil {
			return Document{}, err
		}
		if idKey(doc.ID) == idKey(id) {
			return doc, nil
		}
	}
	return Document{}, dberrors.ErrNotFound
}

// Delete scans the file, maintaining a running offset, and tombstones the
// first live match.
func (n *NoIndex) Delete(id []byte) error {
	rows, err := n.ops.ReadAll()
	if err != nil {
		return err
	}
	var offset uint64
	for _, row := range rows {
		size := row.Header.TupleLength
		if row.Header.Live() {
			doc, err := decodeDocument(row.Payload)
			if err != nil {
				return err
			}
			if idKey(doc.ID) == idKey(id) {
				err := n.ops.DeleteWithOffset(storage.OffsetSize{Offset: offset, Size: size}, n.nextTxID())
				return err
			}
		}
		offset += size
	}
	return dberrors.ErrNotFound
}

// Update scans the file, maintaining a running offset, and supersedes the
// first live match.
func (n *NoIndex) Update(id []byte, doc Document) error {
	rows, err := n.ops.ReadAll()
	if err != nil {
		return err
	}
	data := encodeDocument(doc)
	var offset uint64
	for _, row := range rows {
		size := row.Header.TupleLength
		if row.Header.Live() {
			existing, err := decodeDocument(row.Payload)
			if err != nil {
				return err
			}
			if idKey(existing.ID) == idKey(id) {
				_, err := n.ops.UpdateWithOffset(storage.OffsetSize{Offset: offset, Size: size}, data, n.nextTxID())
				return err
			}
		}
		offset += size
	}
	return dberrors.ErrNotFound
}
