// Package index implements the four interchangeable index strategies of
// §4.3: NoIndex, HashMap, OrderedMap, and LSM. All four wrap a
// storage.Operations and maintain an in-memory document-id → offset/size
// map (LSM additionally spills to on-disk sorted runs).
package index

import (
	"encoding/binary"
	"fmt"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/storage"
)

// Document is an (id, value) pair; both are opaque byte sequences (§3).
type Document struct {
	ID    []byte
	Value []byte
}

// Index is the uniform contract every strategy implements.
type Index interface {
	Insert(doc Document) error
	Search(id []byte) (Document, error)
	Delete(id []byte) error
	Update(id []byte, doc Document) error
}

// encodeDocument serializes a Document as [idLen uint32][id][value],
// the Go analogue of the original's bincode-serialized Document<K, V>.
func encodeDocument(doc Document) []byte {
	buf := make([]byte, 4+len(doc.ID)+len(doc.Value))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(doc.ID)))
	copy(buf[4:], doc.ID)
	copy(buf[4+len(doc.ID):], doc.Value)
	return buf
}

// decodeDocument is the inverse of encodeDocument.
func decodeDocument(data []byte) (Document, error) {
	if len(data) < 4 {
		return Document{}, fmt.Errorf("index: document payload too short")
	}
	idLen := binary.BigEndian.Uint32(data[0:4])
	if uint64(4+idLen) > uint64(len(data)) {
		return Document{}, fmt.Errorf("index: document payload truncated")
	}
	id := append([]byte(nil), data[4:4+idLen]...)
	value := append([]byte(nil), data[4+idLen:]...)
	return Document{ID: id, Value: value}, nil
}

func idKey(id []byte) string { return string(id) }

// bootstrapEntry is one live tuple recovered during bootstrap.
type bootstrapEntry struct {
	doc    Document
	offset storage.OffsetSize
}

// bootstrap scans the file via ReadAll, skipping tombstoned tuples while
// still advancing the running offset by their TupleLength, exactly as §9
// warns: "the running offset must still advance ... otherwise later live
// tuples are recorded with wrong ranges."
func bootstrap(ops storage.Operations) ([]bootstrapEntry, error) {
	rows, err := ops.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("index: bootstrap read_all: %w", err)
	}

	var entries []bootstrapEntry
	var offset uint64
	for _, row := range rows {
		size := row.Header.TupleLength
		if !row.Header.Live() {
			offset += size
			continue
		}
		doc, err := decodeDocument(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("index: bootstrap decode at offset %d: %w", offset, err)
		}
		entries = append(entries, bootstrapEntry{
			doc:    doc,
			offset: storage.OffsetSize{Offset: offset, Size: size},
		})
		offset += size
	}
	return entries, nil
}

// NotFound and AlreadyExists are re-exported for callers that want to
// errors.Is against the index layer without importing dberrors directly.
var (
	ErrNotFound      = dberrors.ErrNotFound
	ErrAlreadyExists = dberrors.ErrAlreadyExists
)
