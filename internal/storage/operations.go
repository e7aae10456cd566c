package storage

import "fmt"

// OffsetSize is the byte range of a tuple in the backing file (§3).
type OffsetSize struct {
	Offset uint64
	Size   uint64
}

// Operations is the Tuple Operations layer of §4.2: it wraps a
// FileHandler and exposes logical insert/read/update/delete-by-offset.
type Operations interface {
	Insert(payload []byte, txid uint64) (OffsetSize, error)
	ReadWithOffset(r OffsetSize) (Tuple, error)
	ReadAll() ([]Tuple, error)
	UpdateWithOffset(old OffsetSize, payload []byte, txid uint64) (OffsetSize, error)
	DeleteWithOffset(r OffsetSize, txid uint64) error
}

type opsImpl struct {
	file     FileHandler
	compress bool
}

// NewOperations wraps a FileHandler with the tuple-level API.
func NewOperations(file FileHandler) Operations {
	return &opsImpl{file: file}
}

// NewCompressedOperations wraps a FileHandler the same way NewOperations
// does, but zstd-compresses every payload before it reaches the file and
// decompresses it on the way back out (internal/storage/compress.go),
// honoring Config.Compress.
func NewCompressedOperations(file FileHandler) Operations {
	return &opsImpl{file: file, compress: true}
}

// Insert constructs a live header (xmin=cmin=txid, xmax=cmax=MAX),
// appends header+payload, and returns the range just written.
func (o *opsImpl) Insert(payload []byte, txid uint64) (OffsetSize, error) {
	if o.compress {
		payload = CompressBytes(payload)
	}

	h := Header{
		Xmin:  txid,
		Xmax:  NoneSentinel,
		Cmin:  txid,
		Cmax:  NoneSentinel,
	}
	h.TupleLength = uint64(HeaderSize + len(payload))

	buf := EncodeTuple(Tuple{Header: h, Payload: payload})
	offset, err := o.file.Append(buf)
	if err != nil {
		return OffsetSize{}, fmt.Errorf("storage: insert append: %w", err)
	}
	return OffsetSize{Offset: offset, Size: uint64(len(buf))}, nil
}

// ReadWithOffset performs a positional read of the range and decodes a
// single tuple.
func (o *opsImpl) ReadWithOffset(r OffsetSize) (Tuple, error) {
	buf, err := o.file.Read(r.Offset, r.Size)
	if err != nil {
		return Tuple{}, fmt.Errorf("storage: read at offset %d: %w", r.Offset, err)
	}
	t, err := DecodeTuple(buf)
	if err != nil {
		return Tuple{}, err
	}
	if o.compress && len(t.Payload) > 0 {
		t.Payload, err = DecompressBytes(t.Payload)
		if err != nil {
			return Tuple{}, fmt.Errorf("storage: decompress payload at offset %d: %w", r.Offset, err)
		}
	}
	return t, nil
}

// ReadAll decodes tuples sequentially from offset 0 until the decoder can
// make no further progress.
func (o *opsImpl) ReadAll() ([]Tuple, error) {
	buf, err := o.file.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read_all: %w", err)
	}

	var tuples []Tuple
	pos := 0
	for pos+HeaderSize <= len(buf) {
		t, err := DecodeTuple(buf[pos:])
		if err != nil {
			break
		}
		pos += int(t.Header.TupleLength)
		if o.compress && len(t.Payload) > 0 {
			decompressed, err := DecompressBytes(t.Payload)
			if err != nil {
				return nil, fmt.Errorf("storage: decompress payload: %w", err)
			}
			t.Payload = decompressed
		}
		tuples = append(tuples, t)
	}
	return tuples, nil
}

// UpdateWithOffset reads the old tuple, marks it superseded in place
// (xmax=txid, tuple_length unchanged), then appends the new version.
func (o *opsImpl) UpdateWithOffset(old OffsetSize, payload []byte, txid uint64) (OffsetSize, error) {
	row, err := o.ReadWithOffset(old)
	if err != nil {
		return OffsetSize{}, err
	}
	row.Header.Xmax = txid
	row.Header.Cmax = txid
	if err := o.file.Update(old.Offset, EncodeHeader(row.Header)); err != nil {
		return OffsetSize{}, fmt.Errorf("storage: update_with_offset overwrite header: %w", err)
	}
	return o.Insert(payload, txid)
}

// DeleteWithOffset reads the tuple and overwrites only its header
// (xmax=txid), leaving tuple_length unchanged so read_all stays
// recoverable.
func (o *opsImpl) DeleteWithOffset(r OffsetSize, txid uint64) error {
	row, err := o.ReadWithOffset(r)
	if err != nil {
		return err
	}
	row.Header.Xmax = txid
	row.Header.Cmax = txid
	if err := o.file.Update(r.Offset, EncodeHeader(row.Header)); err != nil {
		return fmt.Errorf("storage: delete_with_offset overwrite header: %w", err)
	}
	return nil
}
