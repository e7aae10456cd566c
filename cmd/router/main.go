package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"patrickdb/internal/config"
	"patrickdb/internal/coordination"
	"patrickdb/internal/dberrors"
	"patrickdb/internal/logger"
	"patrickdb/internal/router"
	"patrickdb/internal/wire"
)

func main() {
	quiet := flag.Bool("quiet", false, "Disable info logging (log only errors)")
	flag.Parse()

	logFile, err := os.OpenFile("router.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
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
	logger.Info("patrickdb router initializing...")

	cfg := config.LoadRouter()
	if len(cfg.ServiceRegistryPaths) == 0 {
		logger.Fatal("SERVICE_REGISTRY_PATHS must name at least one partition")
	}

	zkEndpoints := splitZookeeperServers(cfg.ZookeeperServers)
	partitions := make([]router.PartitionSource, 0, len(cfg.ServiceRegistryPaths))
	for _, path := range cfg.ServiceRegistryPaths {
		am, err := coordination.NewAddressManager(zkEndpoints, path)
		if err != nil {
			logger.Fatal("failed to watch partition %s: %v", path, err)
		}
		defer am.Close()
		partitions = append(partitions, am)
	}

	r := router.New(partitions)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := serve(cfg.ServerAddress, r); err != nil {
			logger.Fatal("router server error: %v", err)
		}
	}()

	logger.Info("router started on %s across %d partitions. Press Ctrl+C to stop.", cfg.ServerAddress, len(partitions))
	<-sigChan
	logger.Info("shutting down...")
}

func splitZookeeperServers(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// serve runs the router's own TCP listener, reusing the wire framing so
// a client sees the router as just another node (§4.7).
func serve(address string, r *router.Router) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go handleConn(conn, r)
	}
}

func handleConn(conn net.Conn, r *router.Router) {
	defer conn.Close()
	for {
		req, err := wire.ReadEnvelope(conn)
		if err != nil {
			return
		}

		key, err := wire.DecodeScalar(req.Key)
		if err != nil {
			writeError(conn, req, "invalid_argument", err)
			continue
		}

		var resp wire.Envelope
		switch req.Method {
		case wire.MethodGet:
			value, err := r.Get(key)
			if err != nil {
				writeError(conn, req, errorCode(err), err)
				continue
			}
			encValue, err := wire.EncodeScalar(value)
			if err != nil {
				writeError(conn, req, "internal", err)
				continue
			}
			resp = wire.Envelope{Method: req.Method, RequestID: req.RequestID, Key: req.Key, Value: encValue}

		case wire.MethodCreate, wire.MethodUpdate:
			value, err := wire.DecodeScalar(req.Value)
			if err != nil {
				writeError(conn, req, "invalid_argument", err)
				continue
			}
			if req.Method == wire.MethodCreate {
				err = r.Create(key, value)
			} else {
				err = r.Update(key, value)
			}
			if err != nil {
				writeError(conn, req, errorCode(err), err)
				continue
			}
			resp = wire.Envelope{Method: req.Method, RequestID: req.RequestID, Key: req.Key, Value: req.Value}

		case wire.MethodDelete:
			if err := r.Delete(key); err != nil {
				writeError(conn, req, errorCode(err), err)
				continue
			}
			resp = wire.Envelope{Method: req.Method, RequestID: req.RequestID, Key: req.Key}
		}

		if err := wire.WriteEnvelope(conn, resp); err != nil {
			return
		}
	}
}

// errorCode recovers the upstream node's wire error code so it can be
// passed through verbatim to the client, per §4.7 step 6. rpcclient maps
// a node's not_found/already_exists/unavailable responses back to the
// matching dberrors sentinel; anything else — a dial failure, a
// connection drop, an upstream internal error — falls through to
// "internal", which is also what a per-hop connection failure maps to.
func errorCode(err error) string {
	switch {
	case errors.Is(err, dberrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, dberrors.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, dberrors.ErrNotLeader):
		return "unavailable"
	default:
		return "internal"
	}
}

func writeError(conn net.Conn, req wire.Envelope, code string, err error) {
	_ = wire.WriteEnvelope(conn, wire.Envelope{
		Method:       req.Method,
		RequestID:    req.RequestID,
		ErrorCode:    code,
		ErrorMessage: err.Error(),
	})
}
