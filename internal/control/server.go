// Control Socket Server
//
// Listens on a unix socket for client bindings. Each connection sends JSON
// lines; requests on one connection are answered in order, and the bridge
// itself serializes commands across connections.

package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/user/webdriver-bridge/internal/command"
	"github.com/user/webdriver-bridge/internal/drivererr"
	"github.com/user/webdriver-bridge/internal/wire"
)

const maxLine = 16 << 20

// Runner executes one command; satisfied by *driver.Driver and *bridge.Executor.
type Runner interface {
	Do(ctx context.Context, kind command.Kind, values ...command.Value) (*wire.Response, error)
}

// Server manages the control socket
type Server struct {
	path    string
	runner  Runner
	catalog *command.Catalog
	logger  *zap.Logger

	listener net.Listener
	clients  map[net.Conn]bool
	mutex    sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a control server on path.
func NewServer(path string, runner Runner, cat *command.Catalog, logger *zap.Logger) *Server {
	return &Server{
		path:    path,
		runner:  runner,
		catalog: cat,
		logger:  logger.Named("control"),
		clients: make(map[net.Conn]bool),
	}
}

// Serve listens and handles clients until ctx is done or Stop is called.
func (s *Server) Serve(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return errors.New("control server already running")
	}

	// Remove a stale socket left by a previous run.
	os.Remove(s.path)

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		s.mutex.Unlock()
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		s.logger.Warn("chmod control socket", zap.Error(err))
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.listener = ln
	s.running = true
	s.cancel = cancel
	s.mutex.Unlock()

	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	s.logger.Info("listening for clients", zap.String("socket", s.path))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.isRunning() || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("accept error", zap.Error(err))
			continue
		}

		s.mutex.Lock()
		if !s.running {
			s.mutex.Unlock()
			conn.Close()
			break
		}
		s.clients[conn] = true
		s.mutex.Unlock()

		s.logger.Debug("client connected")
		s.wg.Add(1)
		go s.handleClient(ctx, conn)
	}

	s.wg.Wait()
	return nil
}

func (s *Server) isRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

func (s *Server) handleClient(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mutex.Lock()
		delete(s.clients, conn)
		s.mutex.Unlock()
		conn.Close()
		s.logger.Debug("client disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		var resp Response
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", zap.Error(err))
			resp = errorResponse("", drivererr.Wrap(drivererr.InvalidRequest, "parse request", err))
		} else {
			resp = s.handleRequest(ctx, req)
		}

		if err := enc.Encode(resp); err != nil {
			s.logger.Warn("failed to write response", zap.String("id", resp.ID), zap.Error(err))
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	log := s.logger.With(zap.String("id", req.ID), zap.String("command", req.Command))
	log.Debug("handling request")

	kind, ok := s.resolve(req.Command)
	if !ok {
		return errorResponse(req.ID, drivererr.New(drivererr.UnknownCommand, fmt.Sprintf("unknown command %q", req.Command)))
	}

	values := make([]command.Value, 0, len(req.Params))
	for i, raw := range req.Params {
		v, err := command.ParseValue(raw)
		if err != nil {
			return errorResponse(req.ID, drivererr.Wrap(drivererr.InvalidRequest, fmt.Sprintf("parameter %d", i), err))
		}
		values = append(values, v)
	}

	resp, err := s.runner.Do(ctx, kind, values...)
	if err != nil {
		log.Debug("command failed", zap.Error(err))
		out := errorResponse(req.ID, err)
		if resp != nil {
			out.Status = resp.StatusCode
			out.Value = resp.Value
		}
		return out
	}
	return Response{ID: req.ID, Status: resp.StatusCode, Value: resp.Value}
}

// resolve accepts a kind name or a wire name.
func (s *Server) resolve(name string) (command.Kind, bool) {
	if kind, ok := command.ParseKind(name); ok {
		return kind, true
	}
	return s.catalog.Lookup(name)
}

func errorResponse(id string, err error) Response {
	resp := Response{ID: id, Status: localStatus, Error: err.Error()}
	var e *drivererr.E
	if errors.As(err, &e) {
		resp.Kind = string(e.Kind)
		resp.Error = e.Message
		if e.Err != nil {
			resp.Error = fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		if e.Status != 0 {
			resp.Status = e.Status
		}
	}
	return resp
}

// Stop closes the socket and every client connection and cancels commands
// still in flight.
func (s *Server) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.clients {
		conn.Close()
	}
	os.Remove(s.path)
	s.logger.Info("control server stopped")
}
