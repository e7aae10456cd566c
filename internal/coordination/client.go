// Package coordination is the Go counterpart of the original source's
// ZooKeeperConfigManager/ZooKeeperAddressManager (§4.6): ephemeral
// instance registration, children-watch based service discovery, and a
// sequential-ephemeral-node leader latch, all against
// github.com/go-zookeeper/zk.
package coordination

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/logger"
)

// ConfigManager is the per-node coordination handle: it knows whether
// this node currently holds partition leadership and keeps a live view
// of every registered instance's address.
type ConfigManager struct {
	c conn

	serviceID           string
	serviceRegistryPath string
	leaderElectionPath  string
	latchPath           string
	address             string

	mu        sync.RWMutex
	instances []Instance
	isLeader  bool

	closed chan struct{}
}

// NewConfigManager connects to zookeeperServers, registers instanceAddress
// under serviceRegistryPath, joins the leader latch rooted at
// leaderElectionPath, and starts the background watches that keep both
// up to date.
func NewConfigManager(zookeeperServers []string, serviceRegistryPath, leaderElectionPath, instanceAddress string) (*ConfigManager, error) {
	zc, _, err := zk.Connect(zookeeperServers, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("coordination: connect to zookeeper: %w", err)
	}
	return newConfigManager(zc, serviceRegistryPath, leaderElectionPath, instanceAddress)
}

func newConfigManager(c conn, serviceRegistryPath, leaderElectionPath, instanceAddress string) (*ConfigManager, error) {
	if err := ensureNode(c, serviceRegistryPath); err != nil {
		return nil, err
	}
	if err := ensureNode(c, leaderElectionPath); err != nil {
		return nil, err
	}

	serviceID, err := genServiceID()
	if err != nil {
		return nil, fmt.Errorf("coordination: generate service id: %w", err)
	}

	latchPath, err := c.Create(leaderElectionPath+"/n-", nil, zk.FlagEphemeral|zk.FlagSequence, worldACL)
	if err != nil {
		return nil, fmt.Errorf("coordination: create leader latch node: %w", err)
	}

	cm := &ConfigManager{
		c:                   c,
		serviceID:           serviceID,
		serviceRegistryPath: serviceRegistryPath,
		leaderElectionPath:  leaderElectionPath,
		latchPath:           latchPath,
		address:             instanceAddress,
		closed:              make(chan struct{}),
	}

	isLeader, err := cm.computeLeadership()
	if err != nil {
		return nil, err
	}
	cm.isLeader = isLeader

	if err := cm.register(); err != nil {
		return nil, err
	}

	if err := cm.refreshInstances(); err != nil {
		return nil, err
	}

	go cm.watchRegistry()
	go cm.watchLatch()

	return cm, nil
}

func genServiceID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ensureNode creates path as a persistent node, creating any missing
// parent directories along the way.
func ensureNode(c conn, path string) error {
	if path == "" || path == "/" {
		return nil
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for _, p := range parts {
		cur += "/" + p
		exists, _, err := c.Exists(cur)
		if err != nil {
			return fmt.Errorf("coordination: exists %s: %w", cur, err)
		}
		if exists {
			continue
		}
		if _, err := c.Create(cur, nil, 0, worldACL); err != nil {
			return fmt.Errorf("coordination: create %s: %w", cur, err)
		}
	}
	return nil
}

func (cm *ConfigManager) register() error {
	in := Instance{ID: cm.serviceID, Address: cm.address, IsLeader: cm.isLeader}
	data, err := encodeInstance(in)
	if err != nil {
		return err
	}
	path := cm.serviceRegistryPath + "/" + cm.serviceID
	if _, err := cm.c.Create(path, data, zk.FlagEphemeral, worldACL); err != nil {
		return fmt.Errorf("coordination: register service %s: %w", cm.serviceID, err)
	}
	return nil
}

func (cm *ConfigManager) updateRegistration() error {
	in := Instance{ID: cm.serviceID, Address: cm.address, IsLeader: cm.IsLeader()}
	data, err := encodeInstance(in)
	if err != nil {
		return err
	}
	path := cm.serviceRegistryPath + "/" + cm.serviceID
	_, err = cm.c.Set(path, data, -1)
	if err != nil {
		return fmt.Errorf("coordination: update service %s: %w", cm.serviceID, err)
	}
	return nil
}

// computeLeadership reports whether latchPath currently holds the lowest
// sequence number among leaderElectionPath's children.
func (cm *ConfigManager) computeLeadership() (bool, error) {
	children, _, err := cm.c.Children(cm.leaderElectionPath)
	if err != nil {
		return false, fmt.Errorf("coordination: children of %s: %w", cm.leaderElectionPath, err)
	}
	sort.Slice(children, func(i, j int) bool {
		return sequenceOf(children[i]) < sequenceOf(children[j])
	})
	ourName := cm.latchPath[strings.LastIndex(cm.latchPath, "/")+1:]
	return len(children) > 0 && children[0] == ourName, nil
}

func sequenceOf(node string) int {
	if len(node) < 10 {
		return -1
	}
	n, err := strconv.Atoi(node[len(node)-10:])
	if err != nil {
		return -1
	}
	return n
}

func (cm *ConfigManager) refreshInstances() error {
	children, _, err := cm.c.Children(cm.serviceRegistryPath)
	if err != nil {
		return fmt.Errorf("coordination: children of %s: %w", cm.serviceRegistryPath, err)
	}

	instances := make([]Instance, 0, len(children))
	for _, child := range children {
		data, _, err := cm.c.Get(cm.serviceRegistryPath + "/" + child)
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

	cm.mu.Lock()
	cm.instances = instances
	cm.mu.Unlock()
	return nil
}

// watchRegistry re-arms a children-watch on serviceRegistryPath forever,
// refreshing the instance list on every fire, until Close.
func (cm *ConfigManager) watchRegistry() {
	for {
		_, _, events, err := cm.c.ChildrenW(cm.serviceRegistryPath)
		if err != nil {
			logger.Error("coordination: watch registry %s: %v", cm.serviceRegistryPath, err)
			return
		}
		select {
		case <-events:
			if err := cm.refreshInstances(); err != nil {
				logger.Error("coordination: refresh instances: %v", err)
			}
		case <-cm.closed:
			return
		}
	}
}

// watchLatch re-arms a children-watch on leaderElectionPath forever,
// recomputing leadership on every fire and pushing the change into this
// node's own registry entry, until Close.
func (cm *ConfigManager) watchLatch() {
	for {
		_, _, events, err := cm.c.ChildrenW(cm.leaderElectionPath)
		if err != nil {
			logger.Error("coordination: watch leader election %s: %v", cm.leaderElectionPath, err)
			return
		}
		select {
		case <-events:
			isLeader, err := cm.computeLeadership()
			if err != nil {
				logger.Error("coordination: compute leadership: %v", err)
				continue
			}
			cm.mu.Lock()
			changed := cm.isLeader != isLeader
			cm.isLeader = isLeader
			cm.mu.Unlock()
			if changed {
				logger.Info("coordination: leadership changed for %s: leader=%v", cm.serviceID, isLeader)
				if err := cm.updateRegistration(); err != nil {
					logger.Error("coordination: update registration: %v", err)
				}
			}
		case <-cm.closed:
			return
		}
	}
}

// IsLeader reports whether this node currently holds partition leadership.
func (cm *ConfigManager) IsLeader() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.isLeader
}

// Name returns this node's generated service id.
func (cm *ConfigManager) Name() string {
	return cm.serviceID
}

// LeaderAddress returns the currently registered leader's address.
func (cm *ConfigManager) LeaderAddress() (string, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, in := range cm.instances {
		if in.IsLeader {
			return in.Address, nil
		}
	}
	return "", dberrors.ErrNotFound
}

// FollowerAddresses returns every registered non-leader address.
func (cm *ConfigManager) FollowerAddresses() ([]string, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	var out []string
	for _, in := range cm.instances {
		if !in.IsLeader {
			out = append(out, in.Address)
		}
	}
	return out, nil
}

// AllAddresses returns every registered instance's address, leader
// included, for the router's read-path selection.
func (cm *ConfigManager) AllAddresses() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make([]string, len(cm.instances))
	for i, in := range cm.instances {
		out[i] = in.Address
	}
	return out
}

// Close releases the watch goroutines and the underlying connection. The
// ephemeral registration and latch nodes are removed by ZooKeeper when
// the session closes.
func (cm *ConfigManager) Close() {
	close(cm.closed)
	cm.c.Close()
}
