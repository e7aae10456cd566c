package storage

import (
	"encoding/binary"
	"fmt"
)

// NoneSentinel marks a tuple header field as "unset" — a live tuple has
// Xmax == Cmax == NoneSentinel (§3).
const NoneSentinel = ^uint64(0)

// HeaderSize is the fixed, self-describing on-disk header size: seven
// uint64 fields, big-endian, modeled on the teacher's fixed-width
// EntryHeader in internal/storage/entry.go (a byte-0 size prefix plus
// fixed fields) but shaped to the MVCC header §3 specifies.
const HeaderSize = 7 * 8

// Header is the fixed tuple header of §3. A tuple is live iff
// Cmax == NoneSentinel (equivalently Xmax == NoneSentinel).
type Header struct {
	Xmin        uint64
	Xmax        uint64
	TupleLength uint64
	TableOID    uint64
	Ctid        uint64
	Cmin        uint64
	Cmax        uint64
}

// Live reports whether this header's tuple is the current version.
func (h Header) Live() bool {
	return h.Cmax == NoneSentinel
}

// Tuple is a header concatenated with its opaque payload.
type Tuple struct {
	Header  Header
	Payload []byte
}

// EncodeHeader writes a Header to its fixed 56-byte representation.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint64(buf[0:8], h.Xmin)
	binary.BigEndian.PutUint64(buf[8:16], h.Xmax)
	binary.BigEndian.PutUint64(buf[16:24], h.TupleLength)
	binary.BigEndian.PutUint64(buf[24:32], h.TableOID)
	binary.BigEndian.PutUint64(buf[32:40], h.Ctid)
	binary.BigEndian.PutUint64(buf[40:48], h.Cmin)
	binary.BigEndian.PutUint64(buf[48:56], h.Cmax)
	return buf
}

// DecodeHeader reads a Header from its fixed representation.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("storage: header needs %d bytes, got %d", HeaderSize, len(buf))
	}
	return Header{
		Xmin:        binary.BigEndian.Uint64(buf[0:8]),
		Xmax:        binary.BigEndian.Uint64(buf[8:16]),
		TupleLength: binary.BigEndian.Uint64(buf[16:24]),
		TableOID:    binary.BigEndian.Uint64(buf[24:32]),
		Ctid:        binary.BigEndian.Uint64(buf[32:40]),
		Cmin:        binary.BigEndian.Uint64(buf[40:48]),
		Cmax:        binary.BigEndian.Uint64(buf[48:56]),
	}, nil
}

// EncodeTuple serializes a Tuple to header+payload bytes.
func EncodeTuple(t Tuple) []byte {
	buf := make([]byte, 0, HeaderSize+len(t.Payload))
	buf = append(buf, EncodeHeader(t.Header)...)
	buf = append(buf, t.Payload...)
	return buf
}

// DecodeTuple decodes a single tuple from the front of buf. It is
// self-describing: the header's TupleLength field tells the caller how
// many bytes were consumed, which is how read_all drives sequential
// decoding over the file without a separate length prefix.
func DecodeTuple(buf []byte) (Tuple, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Tuple{}, err
	}
	if h.TupleLength < HeaderSize || uint64(len(buf)) < h.TupleLength {
		return Tuple{}, fmt.Errorf("storage: truncated tuple, want %d bytes, have %d", h.TupleLength, len(buf))
	}
	payload := make([]byte, h.TupleLength-HeaderSize)
	copy(payload, buf[HeaderSize:h.TupleLength])
	return Tuple{Header: h, Payload: payload}, nil
}
