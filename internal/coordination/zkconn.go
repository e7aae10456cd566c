package coordination

import "github.com/go-zookeeper/zk"

// conn is the subset of *zk.Conn this package depends on. Narrowing it to
// an interface is what lets client_test.go exercise the watch/latch logic
// against a fake without a live ZooKeeper ensemble.
type conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	ChildrenW(path string) ([]string, *zk.Stat, <-chan zk.Event, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Delete(path string, version int32) error
	Close()
}

var worldACL = zk.WorldACL(zk.PermAll)
