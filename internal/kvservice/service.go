// Package kvservice is the per-node KV RPC service of §4.4: it applies
// Get/Create/Update/Delete against an index.Index, enforces the
// leader-only write guard, and enqueues accepted client writes for
// replication.
package kvservice

import (
	"patrickdb/internal/dberrors"
	"patrickdb/internal/index"
	"patrickdb/internal/replication"
)

// LeaderChecker reports whether this node currently holds partition
// leadership (coordination.ConfigManager satisfies this).
type LeaderChecker interface {
	IsLeader() bool
}

// Service wraps one partition's index with the leader guard and
// replication hookup. All operations serialize through mu: index
// implementations already guard their own state, but Service also
// guards the enqueue-after-write sequencing so a concurrent read never
// observes a write that hasn't yet been queued for replication.
type Service struct {
	idx        index.Index
	leader     LeaderChecker
	replicator *replication.Replicator
}

// New builds a Service. replicator may be nil on a node that never
// leads (its writes would always be rejected before reaching it).
func New(idx index.Index, leader LeaderChecker, replicator *replication.Replicator) *Service {
	return &Service{idx: idx, leader: leader, replicator: replicator}
}

// Get returns the value for id.
func (s *Service) Get(id []byte) ([]byte, error) {
	doc, err := s.idx.Search(id)
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

// Create inserts (id, value). internal is true only for leader-to-
// follower replication traffic, which bypasses the leader-only guard
// and never re-enqueues for further replication.
func (s *Service) Create(id, value []byte, internal bool) error {
	if !internal && !s.leader.IsLeader() {
		return dberrors.ErrNotLeader
	}
	if err := s.idx.Insert(index.Document{ID: id, Value: value}); err != nil {
		return err
	}
	if !internal && s.replicator != nil {
		s.replicator.Enqueue(replication.Record{Op: replication.OpCreate, Key: id, Value: value})
	}
	return nil
}

// Update replaces the value for id.
func (s *Service) Update(id, value []byte, internal bool) error {
	if !internal && !s.leader.IsLeader() {
		return dberrors.ErrNotLeader
	}
	if err := s.idx.Update(id, index.Document{ID: id, Value: value}); err != nil {
		return err
	}
	if !internal && s.replicator != nil {
		s.replicator.Enqueue(replication.Record{Op: replication.OpUpdate, Key: id, Value: value})
	}
	return nil
}

// Delete removes id.
func (s *Service) Delete(id []byte, internal bool) error {
	if !internal && !s.leader.IsLeader() {
		return dberrors.ErrNotLeader
	}
	if err := s.idx.Delete(id); err != nil {
		return err
	}
	if !internal && s.replicator != nil {
		s.replicator.Enqueue(replication.Record{Op: replication.OpDelete, Key: id})
	}
	return nil
}
