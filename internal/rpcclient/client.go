// Package rpcclient is the small RPC client shared by the replicator and
// the router: both only ever need to dial a node's address and issue one
// of the four KV operations over the wire framing in internal/wire.
package rpcclient

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/wire"
)

// Client is a connection to one node's RPC listener.
type Client struct {
	conn net.Conn
}

// Dial opens a TCP connection to address.
func Dial(address string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial %s: %w", address, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func newRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (c *Client) call(method wire.Method, key, value []byte, internal bool) (wire.Envelope, error) {
	encKey, err := wire.EncodeScalar(key)
	if err != nil {
		return wire.Envelope{}, err
	}
	req := wire.Envelope{Method: method, RequestID: newRequestID(), Key: encKey, Internal: internal}
	if value != nil {
		encValue, err := wire.EncodeScalar(value)
		if err != nil {
			return wire.Envelope{}, err
		}
		req.Value = encValue
	}

	if err := wire.WriteEnvelope(c.conn, req); err != nil {
		return wire.Envelope{}, err
	}
	resp, err := wire.ReadEnvelope(c.conn)
	if err != nil {
		return wire.Envelope{}, err
	}
	return resp, nil
}

func mapError(e wire.Envelope) error {
	switch e.ErrorCode {
	case "not_found":
		return dberrors.ErrNotFound
	case "already_exists":
		return dberrors.ErrAlreadyExists
	case "unavailable":
		return dberrors.ErrNotLeader
	default:
		return fmt.Errorf("rpcclient: %s: %s", e.ErrorCode, e.ErrorMessage)
	}
}

// Get fetches the value for key.
func (c *Client) Get(key []byte) ([]byte, error) {
	resp, err := c.call(wire.MethodGet, key, nil, false)
	if err != nil {
		return nil, err
	}
	if resp.Failed() {
		return nil, mapError(resp)
	}
	return wire.DecodeScalar(resp.Value)
}

// Create inserts (key, value) as a client request, subject to the
// target's leader-only write guard.
func (c *Client) Create(key, value []byte) error {
	resp, err := c.call(wire.MethodCreate, key, value, false)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return mapError(resp)
	}
	return nil
}

// Update replaces the value for key as a client request.
func (c *Client) Update(key, value []byte) error {
	resp, err := c.call(wire.MethodUpdate, key, value, false)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return mapError(resp)
	}
	return nil
}

// Delete removes key as a client request.
func (c *Client) Delete(key []byte) error {
	resp, err := c.call(wire.MethodDelete, key, nil, false)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return mapError(resp)
	}
	return nil
}

// ReplicateCreate is Create issued by a leader's replicator: it
// carries Envelope.Internal so the follower bypasses its leader-only
// write guard.
func (c *Client) ReplicateCreate(key, value []byte) error {
	resp, err := c.call(wire.MethodCreate, key, value, true)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return mapError(resp)
	}
	return nil
}

// ReplicateUpdate is the internal counterpart of Update.
func (c *Client) ReplicateUpdate(key, value []byte) error {
	resp, err := c.call(wire.MethodUpdate, key, value, true)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return mapError(resp)
	}
	return nil
}

// ReplicateDelete is the internal counterpart of Delete.
func (c *Client) ReplicateDelete(key []byte) error {
	resp, err := c.call(wire.MethodDelete, key, nil, true)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return mapError(resp)
	}
	return nil
}
