package coordination

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/logger"
)

// AddressManager is the router-side reduction of ConfigManager (§4.6a):
// it watches one partition's service registry for address queries only —
// no registration, no leader latch.
type AddressManager struct {
	c                   conn
	serviceRegistryPath string

	mu        sync.RWMutex
	instances []Instance

	closed chan struct{}
}

// NewAddressManager connects to zookeeperServers and starts watching
// serviceRegistryPath.
func NewAddressManager(zookeeperServers []string, serviceRegistryPath string) (*AddressManager, error) {
	zc, _, err := zk.Connect(zookeeperServers, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("coordination: connect to zookeeper: %w", err)
	}
	return newAddressManager(zc, serviceRegistryPath)
}

func newAddressManager(c conn, serviceRegistryPath string) (*AddressManager, error) {
	if err := ensureNode(c, serviceRegistryPath); err != nil {
		return nil, err
	}

	am := &AddressManager{
		c:                   c,
		serviceRegistryPath: serviceRegistryPath,
		closed:              make(chan struct{}),
	}

	if err := am.refresh(); err != nil {
		return nil, err
	}
	go am.watch()

	return am, nil
}

func (am *AddressManager) refresh() error {
	children, _, err := am.c.Children(am.serviceRegistryPath)
	if err != nil {
		return fmt.Errorf("coordination: children of %s: %w", am.serviceRegistryPath, err)
	}

	instances := make([]Instance, 0, len(children))
	for _, child := range children {
		data, _, err := am.c.Get(am.serviceRegistryPath + "/" + child)
		if err != nil {
			logger.Error("coordination: get instance %s: %v", child, err)
			continue
		}
		in, err := decodeInstance(data)
		if err != nil {
			logger.Error("coordination: decode instance %s: %v", child, err)
			continue
		}
		instances = append(instances, in)
	}

	am.mu.Lock()
	am.instances = instances
	am.mu.Unlock()
	return nil
}

func (am *AddressManager) watch() {
	for {
		_, _, events, err := am.c.ChildrenW(am.serviceRegistryPath)
		if err != nil {
			logger.Error("coordination: watch registry %s: %v", am.serviceRegistryPath, err)
			return
		}
		select {
		case <-events:
			if err := am.refresh(); err != nil {
				logger.Error("coordination: refresh instances: %v", err)
			}
		case <-am.closed:
			return
		}
	}
}

// LeaderAddress returns the partition's current leader address.
func (am *AddressManager) LeaderAddress() (string, error) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	for _, in := range am.instances {
		if in.IsLeader {
			return in.Address, nil
		}
	}
	return "", dberrors.ErrNotFound
}

// FollowerAddresses returns the partition's non-leader addresses.
func (am *AddressManager) FollowerAddresses() ([]string, error) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	var out []string
	for _, in := range am.instances {
		if !in.IsLeader {
			out = append(out, in.Address)
		}
	}
	return out, nil
}

// AllAddresses returns every address registered for the partition.
func (am *AddressManager) AllAddresses() []string {
	am.mu.RLock()
	defer am.mu.RUnlock()
	out := make([]string, len(am.instances))
	for i, in := range am.instances {
		out[i] = in.Address
	}
	return out
}

// Close stops the watch goroutine and the underlying connection.
func (am *AddressManager) Close() {
	close(am.closed)
	am.c.Close()
}
