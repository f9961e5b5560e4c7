// Package gateway serves the ledger over TCP.
//
// The protocol is newline-delimited JSON: a client writes a Message naming a
// command and reads back exactly one Message with the same id, either a
// result or an error. Requests on one connection are handled in order.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"banking/internal/ledger"
	"banking/internal/util"
)

type Server struct {
	addr string
	port int

	lock sync.Mutex
	ln   net.Listener

	conns   map[string]net.Conn
	connsMu sync.RWMutex

	ledger *ledger.Ledger
	log    *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func fmtAddr(addr string, port int) string {
	return net.JoinHostPort(addr, fmt.Sprint(port))
}

// NewServer prepares a server for l. Port 0 picks a free port on Start.
func NewServer(addr string, port int, l *ledger.Ledger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:   addr,
		port:   port,
		conns:  make(map[string]net.Conn),
		ledger: l,
		log:    logger.Named("gateway"),
		done:   make(chan struct{}),
	}
}

// Addr is the address the server listens on once started.
func (s *Server) Addr() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return fmtAddr(s.addr, s.port)
}

func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ln != nil {
		return errors.New("gateway already started")
	}
	ln, err := net.Listen("tcp", fmtAddr(s.addr, s.port))
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("gateway listening", zap.String("addr", ln.Addr().String()))

	util.Go(&s.wg, func() { s.acceptLoop(ln) })
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Error("accept failed", zap.Error(err))
			}
			return
		}

		remote := conn.RemoteAddr().String()
		s.connsMu.Lock()
		select {
		case <-s.done:
			// Stop already swept the connections.
			s.connsMu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[remote] = conn
		s.connsMu.Unlock()

		util.Go(&s.wg, func() { s.readLoop(remote, conn) })
	}
}

func (s *Server) readLoop(remote string, conn net.Conn) {
	defer s.dropConn(remote)

	log := s.log.With(zap.String("remote", remote))
	log.Debug("client connected")

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			select {
			case <-s.done:
			default:
				if !errors.Is(err, io.EOF) {
					log.Warn("failed to decode message", zap.Error(err))
				}
			}
			return
		}

		reply := s.handleMessage(msg)
		if err := enc.Encode(reply); err != nil {
			log.Warn("failed to encode reply", zap.String("id", msg.Id), zap.Error(err))
			return
		}
	}
}

func (s *Server) dropConn(remote string) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if c, ok := s.conns[remote]; ok {
		c.Close()
		delete(s.conns, remote)
	}
}

// Stop closes the listener and every client connection and waits for the
// connection handlers to return.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.lock.Lock()
		if s.ln != nil {
			// This will cause ln.Accept() to return an error.
			s.ln.Close()
		}
		s.lock.Unlock()

		s.connsMu.Lock()
		for remote, conn := range s.conns {
			conn.Close()
			delete(s.conns, remote)
		}
		s.connsMu.Unlock()

		s.wg.Wait()
		s.log.Info("gateway stopped")
	})
}

func (s *Server) handleMessage(msg Message) Message {
	data, err := s.dispatch(msg)
	if err == nil {
		reply, encErr := newMessage(msg.Id, CmdResult, data)
		if encErr == nil {
			return reply
		}
		err = encErr
	}

	reason := ledger.Reason(err)
	switch {
	case errors.Is(err, ErrBadRequest):
		reason = reasonBadRequest
	case reason == "unknown":
		reason = reasonInternal
		s.log.Error("command failed", zap.String("cmd", string(msg.Cmd)), zap.Error(err))
	}
	reply, _ := newMessage(msg.Id, CmdError, ErrorReply{Reason: reason, Message: err.Error()})
	return reply
}

func (s *Server) dispatch(msg Message) (any, error) {
	switch msg.Cmd {
	case CmdOpen:
		var req AccountRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		return nil, s.ledger.Open(req.ID, req.Balance)

	case CmdClose:
		var req AccountRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		bal, err := s.ledger.Close(req.ID)
		if err != nil {
			return nil, err
		}
		return BalanceReply{ID: req.ID, Balance: bal}, nil

	case CmdTransfer:
		var req TransferRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		r, err := s.ledger.Transfer(req.From, req.To, req.Amount)
		if err != nil {
			return nil, err
		}
		return r, nil

	case CmdBalance:
		var req AccountRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		bal, err := s.ledger.Balance(req.ID)
		if err != nil {
			return nil, err
		}
		return BalanceReply{ID: req.ID, Balance: bal}, nil

	case CmdFee:
		return FeeMessage{Fee: s.ledger.Fee()}, nil

	case CmdSetFee:
		var req FeeMessage
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		return nil, s.ledger.SetFee(req.Fee)

	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrBadRequest, msg.Cmd)
	}
}
