package wire

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var marshalOpts = proto.MarshalOptions{Deterministic: true}

// EncodeScalar wraps an opaque byte sequence (a document id or value, §3)
// in a structpb.Value so it round-trips through the wire self-describing
// the way the original source's prost_types::Value scalars did, then
// marshals that to protobuf bytes. Bytes are base64-encoded first since
// structpb.Value's only string-like kind requires valid UTF-8.
func EncodeScalar(data []byte) ([]byte, error) {
	v, err := structpb.NewValue(base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, fmt.Errorf("wire: build scalar value: %w", err)
	}
	buf, err := marshalOpts.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal scalar value: %w", err)
	}
	return buf, nil
}

// DecodeScalar is the inverse of EncodeScalar.
func DecodeScalar(buf []byte) ([]byte, error) {
	var v structpb.Value
	if err := proto.Unmarshal(buf, &v); err != nil {
		return nil, fmt.Errorf("wire: unmarshal scalar value: %w", err)
	}
	s, ok := v.AsInterface().(string)
	if !ok {
		return nil, fmt.Errorf("wire: scalar value is not a string")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("wire: decode scalar base64: %w", err)
	}
	return data, nil
}
