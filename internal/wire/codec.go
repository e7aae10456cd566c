package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// WriteEnvelope writes e to w with the same 4-byte big-endian length
// prefix the teacher's network server uses, gob-encoding the envelope
// itself (the teacher's own persistence format, reused here for
// transport framing in place of generated protobuf service stubs).
func WriteEnvelope(w io.Writer, e Envelope) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(e); err != nil {
		return fmt.Errorf("wire: encode envelope: %w", err)
	}

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(body.Len()))
	if _, err := w.Write(lenBuf); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("wire: write envelope body: %w", err)
	}
	return nil
}

// ReadEnvelope reads one length-prefixed envelope from r.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return Envelope{}, err
	}
	msgLen := binary.BigEndian.Uint32(lenBuf)

	body := make([]byte, msgLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, fmt.Errorf("wire: read envelope body: %w", err)
	}

	var e Envelope
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&e); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	return e, nil
}
