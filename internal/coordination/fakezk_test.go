package coordination

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-zookeeper/zk"
)

// fakeConn is a minimal in-memory stand-in for *zk.Conn, just enough to
// drive ConfigManager/AddressManager's create/watch/get/set logic
// deterministically in tests, without a live ensemble.
type fakeConn struct {
	mu       sync.Mutex
	data     map[string][]byte
	seq      map[string]int // next sequence number per parent path
	watchers map[string][]chan zk.Event
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		data:     make(map[string][]byte),
		seq:      make(map[string]int),
		watchers: make(map[string][]chan zk.Event),
	}
}

func (f *fakeConn) Exists(path string) (bool, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[path]
	return ok, nil, nil
}

func (f *fakeConn) Create(path string, data []byte, flags int32, _ []zk.ACL) (string, error) {
	f.mu.Lock()
	full := path
	if flags&zk.FlagSequence != 0 {
		n := f.seq[path]
		f.seq[path] = n + 1
		full = fmt.Sprintf("%s%010d", path, n)
	}
	f.data[full] = data
	f.mu.Unlock()

	f.fireParent(full)
	return full, nil
}

func (f *fakeConn) fireParent(path string) {
	parent := path[:strings.LastIndex(path, "/")]
	if parent == "" {
		parent = "/"
	}
	f.mu.Lock()
	chans := f.watchers[parent]
	f.watchers[parent] = nil
	f.mu.Unlock()
	for _, ch := range chans {
		ch <- zk.Event{Type: zk.EventNodeChildrenChanged, Path: parent}
	}
}

func (f *fakeConn) Children(path string) ([]string, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := path + "/"
	var out []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) && !strings.Contains(k[len(prefix):], "/") {
			out = append(out, k[len(prefix):])
		}
	}
	sort.Strings(out)
	return out, nil, nil
}

func (f *fakeConn) ChildrenW(path string) ([]string, *zk.Stat, <-chan zk.Event, error) {
	children, stat, err := f.Children(path)
	ch := make(chan zk.Event, 1)
	f.mu.Lock()
	f.watchers[path] = append(f.watchers[path], ch)
	f.mu.Unlock()
	return children, stat, ch, err
}

func (f *fakeConn) Get(path string) ([]byte, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[path]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return d, nil, nil
}

func (f *fakeConn) Set(path string, data []byte, _ int32) (*zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[path] = data
	return nil, nil
}

func (f *fakeConn) Delete(path string, _ int32) error {
	f.mu.Lock()
	delete(f.data, path)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() {}
