package coordination

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Instance is the registration record written to the service-registry
// znode, gob-encoded the way the teacher's forward_index.go persists its
// own structured records rather than JSON or protobuf.
type Instance struct {
	ID       string
	Address  string
	IsLeader bool
}

func encodeInstance(in Instance) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(in); err != nil {
		return nil, fmt.Errorf("coordination: encode instance: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeInstance(data []byte) (Instance, error) {
	var in Instance
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&in); err != nil {
		return Instance{}, fmt.Errorf("coordination: decode instance: %w", err)
	}
	return in, nil
}
