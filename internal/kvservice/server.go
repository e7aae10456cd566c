package kvservice

import (
	"errors"
	"fmt"
	"net"

	"patrickdb/internal/dberrors"
	"patrickdb/internal/logger"
	"patrickdb/internal/wire"
)

// Server is the TCP listener that decodes wire envelopes and dispatches
// them to a Service, the same length-prefixed accept/dispatch loop the
// teacher's internal/network/server.go runs, adapted to the new wire
// framing (§6).
type Server struct {
	address string
	svc     *Service
}

// NewServer builds a Server bound to address.
func NewServer(address string, svc *Service) *Server {
	return &Server{address: address, svc: svc}
}

// Start listens on s.address and serves connections until listener.Close
// is called or Accept fails.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("kvservice: listen %s: %w", s.address, err)
	}
	defer listener.Close()
	logger.Info("kvservice: listening on %s", s.address)

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error("kvservice: accept: %v", err)
			return err
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	for {
		req, err := wire.ReadEnvelope(conn)
		if err != nil {
			return
		}

		resp := s.dispatch(req)
		if err := wire.WriteEnvelope(conn, resp); err != nil {
			logger.Error("kvservice: write response: %v", err)
			return
		}
	}
}

func (s *Server) dispatch(req wire.Envelope) wire.Envelope {
	key, err := wire.DecodeScalar(req.Key)
	if err != nil {
		return errorEnvelope(req, "invalid_argument", err)
	}

	switch req.Method {
	case wire.MethodGet:
		value, err := s.svc.Get(key)
		if err != nil {
			return errorEnvelope(req, errorCode(err), err)
		}
		encValue, err := wire.EncodeScalar(value)
		if err != nil {
			return errorEnvelope(req, "internal", err)
		}
		return wire.Envelope{Method: req.Method, RequestID: req.RequestID, Key: req.Key, Value: encValue}

	case wire.MethodCreate, wire.MethodUpdate:
		value, err := wire.DecodeScalar(req.Value)
		if err != nil {
			return errorEnvelope(req, "invalid_argument", err)
		}
		if req.Method == wire.MethodCreate {
			err = s.svc.Create(key, value, req.Internal)
		} else {
			err = s.svc.Update(key, value, req.Internal)
		}
		if err != nil {
			return errorEnvelope(req, errorCode(err), err)
		}
		return wire.Envelope{Method: req.Method, RequestID: req.RequestID, Key: req.Key, Value: req.Value}

	case wire.MethodDelete:
		if err := s.svc.Delete(key, req.Internal); err != nil {
			return errorEnvelope(req, errorCode(err), err)
		}
		return wire.Envelope{Method: req.Method, RequestID: req.RequestID, Key: req.Key}

	default:
		return errorEnvelope(req, "invalid_argument", fmt.Errorf("unknown method %d", req.Method))
	}
}

func errorEnvelope(req wire.Envelope, code string, err error) wire.Envelope {
	return wire.Envelope{
		Method:       req.Method,
		RequestID:    req.RequestID,
		ErrorCode:    code,
		ErrorMessage: err.Error(),
	}
}

// errorCode maps an internal error to the wire error code, the Go
// analogue of the original source's ServerError → tonic::Status mapping.
func errorCode(err error) string {
	switch {
	case errors.Is(err, dberrors.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, dberrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, dberrors.ErrNotLeader):
		return "unavailable"
	default:
		return "internal"
	}
}
