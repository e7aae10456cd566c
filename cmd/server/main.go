package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"patrickdb/internal/config"
	"patrickdb/internal/coordination"
	"patrickdb/internal/index"
	"patrickdb/internal/kvservice"
	"patrickdb/internal/logger"
	"patrickdb/internal/replication"
	"patrickdb/internal/rpcclient"
	"patrickdb/internal/storage"
)

func main() {
	configFile := flag.String("config", "", "Path to a JSON config overlay")
	quiet := flag.Bool("quiet", false, "Disable info logging (log only errors)")
	flag.Parse()

	logFile, err := os.OpenFile("server.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()

	logger.Setup(io.MultiWriter(os.Stdout, logFile))
	if *quiet {
		logger.SetLevel(logger.LevelError)
	} else {
		logger.SetLevel(logger.LevelInfo)
	}

	logger.Info("----------------------------------------")
	logger.Info("patrickdb node initializing...")

	cfg := config.Load(*configFile)

	fileHandler, err := storage.NewFileHandler(cfg.FileName, cfg.SyncWrites)
	if err != nil {
		logger.Fatal("failed to open storage file: %v", err)
	}
	var ops storage.Operations
	if cfg.Compress {
		ops = storage.NewCompressedOperations(fileHandler)
	} else {
		ops = storage.NewOperations(fileHandler)
	}

	idx, err := newIndex(cfg, ops)
	if err != nil {
		logger.Fatal("failed to build index: %v", err)
	}

	cm, err := coordination.NewConfigManager(cfg.ZookeeperEndpoints(), cfg.ServiceRegistryPath, cfg.LeaderElectionPath, cfg.ServerURL)
	if err != nil {
		logger.Fatal("failed to join coordination service: %v", err)
	}
	defer cm.Close()

	repl := replication.NewReplicator(cm, cm, func(addr string) (interface {
		ReplicateCreate(key, value []byte) error
		ReplicateUpdate(key, value []byte) error
		ReplicateDelete(key []byte) error
		Close() error
	}, error) {
		return rpcclient.Dial(addr)
	})
	repl.Start()
	defer repl.Close()

	svc := kvservice.New(idx, cm, repl)
	server := kvservice.NewServer(cfg.ServerAddress, svc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("server error: %v", err)
		}
	}()

	logger.Info("node %s started on %s. Press Ctrl+C to stop.", cm.Name(), cfg.ServerAddress)
	<-sigChan
	logger.Info("shutting down...")
}

func newIndex(cfg config.Config, ops storage.Operations) (index.Index, error) {
	switch cfg.IndexEngine {
	case config.EngineNoIndex:
		return index.NewNoIndex(ops)
	case config.EngineHashMap:
		return index.NewHashMapIndex(ops)
	case config.EngineBTree:
		return index.NewOrderedMapIndex(ops)
	case config.EngineLSMTree:
		return index.NewLSMIndex(ops, cfg.LSMSSTablePath, cfg.LSMTreeSize, uint64(cfg.BloomFilterSize))
	default:
		return index.NewHashMapIndex(ops)
	}
}
