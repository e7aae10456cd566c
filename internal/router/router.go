// Package router implements the stateless router of §4.7: a consistent
// hash over the key selects a partition, then reads go to a random
// address in that partition and writes go to its leader.
package router

import (
	"fmt"
	"math/rand/v2"

	"github.com/zeebo/xxh3"

	"patrickdb/internal/rpcclient"
)

// PartitionSource is the address-discovery surface a router needs for
// one partition (coordination.AddressManager satisfies this).
type PartitionSource interface {
	AllAddresses() []string
	LeaderAddress() (string, error)
}

// Router selects a partition for a key by hash64(key) mod len(partitions)
// and dials that partition's nodes directly.
type Router struct {
	partitions []PartitionSource
}

// New builds a Router over partitions, indexed 0..N-1 the same order
// they were configured in.
func New(partitions []PartitionSource) *Router {
	return &Router{partitions: partitions}
}

func (r *Router) partitionFor(key []byte) PartitionSource {
	h := xxh3.Hash(key)
	return r.partitions[h%uint64(len(r.partitions))]
}

// Get routes to a random address within the key's partition — any
// replica can serve a read.
func (r *Router) Get(key []byte) ([]byte, error) {
	addrs := r.partitionFor(key).AllAddresses()
	if len(addrs) == 0 {
		return nil, fmt.Errorf("router: no addresses available for key %q", key)
	}
	addr := addrs[rand.IntN(len(addrs))]

	client, err := rpcclient.Dial(addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Get(key)
}

// Create routes to the key's partition leader — only the leader accepts
// writes.
func (r *Router) Create(key, value []byte) error {
	client, err := r.dialLeader(key)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Create(key, value)
}

// Update routes to the key's partition leader.
func (r *Router) Update(key, value []byte) error {
	client, err := r.dialLeader(key)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Update(key, value)
}

// Delete routes to the key's partition leader.
func (r *Router) Delete(key []byte) error {
	client, err := r.dialLeader(key)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Delete(key)
}

func (r *Router) dialLeader(key []byte) (*rpcclient.Client, error) {
	addr, err := r.partitionFor(key).LeaderAddress()
	if err != nil {
		return nil, fmt.Errorf("router: find leader for key %q: %w", key, err)
	}
	return rpcclient.Dial(addr)
}
