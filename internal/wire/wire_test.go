package wire

import (
	"bytes"
	"testing"
)

func TestScalarRoundTrip(t *testing.T) {
	data := []byte("hello, world")
	enc, err := EncodeScalar(data)
	if err != nil {
		t.Fatalf("EncodeScalar: %v", err)
	}
	dec, err := DecodeScalar(enc)
	if err != nil {
		t.Fatalf("DecodeScalar: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("DecodeScalar = %q, want %q", dec, data)
	}
}

func TestScalarRoundTripArbitraryBytes(t *testing.T) {
	data := []byte{0x00, 0xff, 0x10, 0x80, 0x7f}
	enc, err := EncodeScalar(data)
	if err != nil {
		t.Fatalf("EncodeScalar: %v", err)
	}
	dec, err := DecodeScalar(enc)
	if err != nil {
		t.Fatalf("DecodeScalar: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("DecodeScalar = %v, want %v", dec, data)
	}
}

func TestEnvelopeWriteReadRoundTrip(t *testing.T) {
	key, _ := EncodeScalar([]byte("k1"))
	value, _ := EncodeScalar([]byte("v1"))
	e := Envelope{
		Method:    MethodCreate,
		RequestID: "req-1",
		Key:       key,
		Value:     value,
	}

	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, e); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if got.Method != e.Method || got.RequestID != e.RequestID {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	gotKey, err := DecodeScalar(got.Key)
	if err != nil {
		t.Fatalf("DecodeScalar key: %v", err)
	}
	if string(gotKey) != "k1" {
		t.Fatalf("key = %q", gotKey)
	}
}

func TestEnvelopeWriteReadError(t *testing.T) {
	e := Envelope{
		Method:       MethodGet,
		RequestID:    "req-2",
		ErrorCode:    "not_found",
		ErrorMessage: "no such key",
	}

	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, e); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if !got.Failed() {
		t.Fatal("expected Failed() to be true")
	}
	if got.ErrorCode != "not_found" {
		t.Fatalf("ErrorCode = %q", got.ErrorCode)
	}
}
