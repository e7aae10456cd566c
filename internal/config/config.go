// Package config loads the node/router configuration, following the same
// defaults-then-env-override precedence the rest of the pack uses for
// config loading (see jptalukdar-waddlemap-db's DBSchemaConfig and
// calvinalkan-agent-task's env-var precedence in config.go), with an
// optional JSON overlay file decoded via goccy/go-json.
package config

import (
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"patrickdb/internal/logger"
)

// IndexEngine selects one of the four index strategies of §4.3.
type IndexEngine string

const (
	EngineBTree   IndexEngine = "BTree"
	EngineLSMTree IndexEngine = "LSMTree"
	EngineNoIndex IndexEngine = "NoIndex"
	EngineHashMap IndexEngine = "HashMap"
)

// Config holds a single node's configuration.
type Config struct {
	// FileName is the path to the backing storage file.
	FileName string `json:"file_name"`
	// ZookeeperServers is the comma-separated list of coordination
	// endpoints (ZOOKEEPER_SERVERS).
	ZookeeperServers string `json:"zookeeper_servers"`
	// ServerAddress is the bind address for the node's RPC listener.
	ServerAddress string `json:"server_address"`
	// ServerURL is the address advertised to the coordination service.
	ServerURL string `json:"server_url"`
	// LeaderElectionPath is the znode path used for the leader latch.
	LeaderElectionPath string `json:"leader_election_path"`
	// ServiceRegistryPath is the znode path used for instance registration.
	ServiceRegistryPath string `json:"service_registry_path"`
	// IndexEngine selects the index strategy.
	IndexEngine IndexEngine `json:"index_engine"`
	// LSMTreeSize is the memtable flush threshold for the LSM engine.
	LSMTreeSize int `json:"lsm_tree_size"`
	// LSMSSTablePath is the directory LSM SS tables are written to.
	LSMSSTablePath string `json:"lsm_ss_table_path"`
	// BloomFilterSize is the bit-array size of the LSM's Bloom filter.
	BloomFilterSize int `json:"bloom_filter_size"`
	// SyncWrites causes the file handler to fsync after every append.
	SyncWrites bool `json:"sync_writes"`
	// Compress enables zstd payload compression (see internal/storage/compress.go).
	Compress bool `json:"compress"`
}

// Default returns the zero-configured node defaults.
func Default() Config {
	return Config{
		FileName:            "patrick.db",
		ServerAddress:       "0.0.0.0:6969",
		ServerURL:           "127.0.0.1:6969",
		LeaderElectionPath:  "/patrickdb/leader-election",
		ServiceRegistryPath: "/patrickdb/service-registry",
		IndexEngine:         EngineHashMap,
		LSMTreeSize:         100,
		LSMSSTablePath:      "./ss_tables",
		BloomFilterSize:     10000,
		SyncWrites:          true,
		Compress:            false,
	}
}

// Load returns a Config built from defaults, an optional JSON file overlay
// (if path is non-empty and exists), and finally environment overrides —
// the same precedence order the pack uses elsewhere (defaults, then file,
// then env wins).
func Load(overlayPath string) Config {
	cfg := Default()

	if overlayPath != "" {
		if data, err := os.ReadFile(overlayPath); err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				logger.Error("config: ignoring malformed overlay %s: %v", overlayPath, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v, ok := lookupEnv("STORAGE_FILE_NAME", "FILE"); ok {
		cfg.FileName = v
	}
	if v := os.Getenv("ZOOKEEPER_SERVERS"); v != "" {
		cfg.ZookeeperServers = v
	}
	if v, ok := lookupEnv("SERVER_ADDRESS"); ok {
		cfg.ServerAddress = v
	}
	if v, ok := lookupEnv("SERVER_URL"); ok {
		cfg.ServerURL = v
	}
	if v := os.Getenv("LEADER_ELECTION_PATH"); v != "" {
		cfg.LeaderElectionPath = v
	}
	if v, ok := lookupEnv("SERVICE_REGISTRY_PATH", "SERVICE_REGISTRY_PATHS"); ok {
		cfg.ServiceRegistryPath = v
	}
	if v := os.Getenv("index_engine"); v != "" {
		cfg.IndexEngine = IndexEngine(v)
	}
}

func lookupEnv(names ...string) (string, bool) {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v, true
		}
	}
	return "", false
}

// ZookeeperEndpoints splits ZookeeperServers into a slice, trimming
// whitespace around each entry.
func (c Config) ZookeeperEndpoints() []string {
	if c.ZookeeperServers == "" {
		return nil
	}
	parts := strings.Split(c.ZookeeperServers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RouterConfig holds the router's configuration: one shared coordination
// endpoint list and one service-registry path per partition
// (SERVICE_REGISTRY_PATHS, comma-separated).
type RouterConfig struct {
	ZookeeperServers     string
	ServiceRegistryPaths []string
	ServerAddress        string
}

// LoadRouter returns the router configuration from the environment.
func LoadRouter() RouterConfig {
	rc := RouterConfig{
		ZookeeperServers: os.Getenv("ZOOKEEPER_SERVERS"),
		ServerAddress:    "0.0.0.0:7070",
	}
	if v, ok := lookupEnv("SERVER_ADDRESS"); ok {
		rc.ServerAddress = v
	}
	paths := os.Getenv("SERVICE_REGISTRY_PATHS")
	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			rc.ServiceRegistryPaths = append(rc.ServiceRegistryPaths, p)
		}
	}
	return rc
}
