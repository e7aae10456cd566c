package replication

import (
	"patrickdb/internal/logger"
)

// followerClient is the subset of rpcclient.Client the replicator needs;
// narrowing it to an interface is what makes replicator_test.go able to
// fake out the network. It is an alias so that callers outside this
// package can pass a dial func whose result is the same method set
// written as an interface literal.
type followerClient = interface {
	ReplicateCreate(key, value []byte) error
	ReplicateUpdate(key, value []byte) error
	ReplicateDelete(key []byte) error
	Close() error
}

// followerSource supplies the current set of follower addresses for the
// partition this node leads.
type followerSource interface {
	FollowerAddresses() ([]string, error)
}

// leaderChecker reports whether this node currently holds partition
// leadership (coordination.ConfigManager satisfies this).
type leaderChecker interface {
	IsLeader() bool
}

// queueCapacity is the bounded channel size §4.5 specifies: large enough
// to absorb a burst of writes without the accepting goroutine blocking on
// every single one, small enough to bound memory if followers stall.
const queueCapacity = 1000

// Replicator is the single background dispatcher that drains accepted
// writes and forwards each one to every current follower, modeled on the
// teacher's transaction.Manager request-channel dispatch loop.
type Replicator struct {
	ch        chan Record
	leader    leaderChecker
	followers followerSource
	dial      func(address string) (followerClient, error)
	stop      chan struct{}
}

// NewReplicator builds a Replicator. Call Start to begin draining.
func NewReplicator(leader leaderChecker, followers followerSource, dial func(address string) (followerClient, error)) *Replicator {
	return &Replicator{
		ch:        make(chan Record, queueCapacity),
		leader:    leader,
		followers: followers,
		dial:      dial,
		stop:      make(chan struct{}),
	}
}

// Start launches the background drain loop.
func (r *Replicator) Start() {
	go r.run()
}

// Close stops the drain loop. Records already dispatched are not waited
// on.
func (r *Replicator) Close() {
	close(r.stop)
}

// Enqueue queues rec for replication, blocking if the channel is full.
func (r *Replicator) Enqueue(rec Record) {
	select {
	case r.ch <- rec:
	case <-r.stop:
	}
}

// run drains the channel serially, one record at a time: §4.5/§5 require
// that each follower see its records in the order they were enqueued at
// the leader, which a single drain loop with a serial per-record fan-out
// guarantees without any extra bookkeeping.
func (r *Replicator) run() {
	for {
		select {
		case rec := <-r.ch:
			r.dispatch(rec)
		case <-r.stop:
			return
		}
	}
}

// dispatch re-checks leadership (§4.5 step 1: a node that lost
// leadership between enqueue and drain discards rather than replicates)
// and then issues rec to every current follower in a serial loop. The
// loop is intentionally not parallelized across followers: a slow or
// unreachable follower delays the followers after it in the list and
// every record behind it, but doing so serially is what keeps each
// follower's own delivery order intact. Concurrent drains across distinct records
// never happen (run is the only caller), so cross-follower interleave
// can only come from the followers list itself changing between calls,
// which §5 permits.
func (r *Replicator) dispatch(rec Record) {
	if !r.leader.IsLeader() {
		logger.Info("replication: no longer leader, discarding record")
		return
	}

	addrs, err := r.followers.FollowerAddresses()
	if err != nil {
		logger.Error("replication: list followers: %v", err)
		return
	}
	for _, addr := range addrs {
		r.send(addr, rec)
	}
}

func (r *Replicator) send(addr string, rec Record) {
	client, err := r.dial(addr)
	if err != nil {
		logger.Error("replication: dial follower %s: %v", addr, err)
		return
	}
	defer client.Close()

	switch rec.Op {
	case OpCreate:
		err = client.ReplicateCreate(rec.Key, rec.Value)
	case OpUpdate:
		err = client.ReplicateUpdate(rec.Key, rec.Value)
	case OpDelete:
		err = client.ReplicateDelete(rec.Key)
	}
	if err != nil {
		logger.Error("replication: replicate to %s: %v", addr, err)
	}
}
