// Extension Socket Server
//
// Accepts the browser extension's HTTP-like connections on a TCP port.
// GET polls are answered with the keep-alive host page; completed POSTs are
// queued in the registry for the executor to claim.

package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/webdriver-bridge/internal/registry"
	"github.com/user/webdriver-bridge/internal/wire"
)

// DefaultPort is the port the extension connects to.
const DefaultPort = 1234

const readChunk = 512

// Conn is one accepted extension connection.
type Conn struct {
	ID      string
	conn    net.Conn
	frame   *wire.Frame
	once    sync.Once
	onClose func(*Conn)
}

// Method returns the connection's classification.
func (c *Conn) Method() wire.Method { return c.frame.Method() }

// Text returns the accumulated request text.
func (c *Conn) Text() string { return c.frame.Text() }

// Reply writes data and closes the connection.
func (c *Conn) Reply(data []byte) error {
	_, err := c.conn.Write(data)
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes the connection without a reply. Safe to call twice.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
	return err
}

// Listener manages the extension's TCP socket
type Listener struct {
	host     string
	port     int
	backlog  int
	registry *registry.Registry[*Conn]
	logger   *zap.Logger

	listener  net.Listener
	clients   map[string]*Conn
	mutex     sync.Mutex
	stopMu    sync.Mutex
	running   bool
	hasClient atomic.Bool
	stopCtx   func() bool
	wg        sync.WaitGroup
}

// ListenerOption customises a Listener.
type ListenerOption func(*Listener)

// WithHost binds to host instead of 0.0.0.0.
func WithHost(host string) ListenerOption {
	return func(l *Listener) { l.host = host }
}

// WithBacklog records the accept backlog.
func WithBacklog(n int) ListenerOption {
	return func(l *Listener) { l.backlog = n }
}

// NewListener creates a listener that feeds completed POSTs into reg.
func NewListener(port int, reg *registry.Registry[*Conn], logger *zap.Logger, opts ...ListenerOption) *Listener {
	l := &Listener{
		host:     "0.0.0.0",
		port:     port,
		backlog:  4,
		registry: reg,
		logger:   logger.Named("listener"),
		clients:  make(map[string]*Conn),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start binds the socket and accepts in the background. The listener stops
// when ctx is done or Stop is called.
func (l *Listener) Start(ctx context.Context) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.running {
		return errors.New("listener already running")
	}

	addr := net.JoinHostPort(l.host, fmt.Sprint(l.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	l.listener = ln
	l.running = true
	l.stopCtx = context.AfterFunc(ctx, l.Stop)
	l.logger.Info("listening for extension", zap.Stringer("addr", ln.Addr()), zap.Int("backlog", l.backlog))

	l.wg.Add(1)
	go l.acceptLoop(ln)
	return nil
}

// Addr returns the bound address, nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// HasClient reports whether the extension has connected since Start.
func (l *Listener) HasClient() bool { return l.hasClient.Load() }

func (l *Listener) isRunning() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.running
}

func (l *Listener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if !l.isRunning() || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept error", zap.Error(err))
			continue
		}

		c := &Conn{
			ID:      uuid.New().String(),
			conn:    nc,
			onClose: l.untrack,
		}
		c.frame = wire.NewFrame(c.ID)

		l.mutex.Lock()
		if !l.running {
			l.mutex.Unlock()
			nc.Close()
			return
		}
		l.clients[c.ID] = c
		l.mutex.Unlock()

		if !l.hasClient.Swap(true) {
			l.logger.Info("extension connected", zap.Stringer("remote", nc.RemoteAddr()))
		}
		l.logger.Debug("accepted", zap.String("conn", c.ID))

		l.wg.Add(1)
		go l.receive(c)
	}
}

// receive reads until the frame completes, then dispatches it.
func (l *Listener) receive(c *Conn) {
	defer l.wg.Done()

	r := bufio.NewReader(c.conn)
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 && c.frame.Feed(buf[:n], r.Buffered()) {
			l.dispatch(c)
			return
		}
		if err != nil {
			if c.frame.Len() > 0 && l.isRunning() {
				l.logger.Warn("connection closed before request completed",
					zap.String("conn", c.ID),
					zap.Stringer("method", c.frame.Method()),
					zap.Int("bytes", c.frame.Len()),
					zap.Error(err))
			}
			c.Close()
			return
		}
	}
}

func (l *Listener) dispatch(c *Conn) {
	switch c.Method() {
	case wire.Get:
		l.logger.Debug("keep-alive poll", zap.String("conn", c.ID))
		if err := c.Reply(wire.KeepAliveReply()); err != nil {
			l.logger.Warn("failed to answer keep-alive poll", zap.String("conn", c.ID), zap.Error(err))
		}
	default:
		l.logger.Debug("post completed", zap.String("conn", c.ID), zap.Int("bytes", c.frame.Len()))
		l.registry.Register(c)
	}
}

func (l *Listener) untrack(c *Conn) {
	l.mutex.Lock()
	delete(l.clients, c.ID)
	l.mutex.Unlock()
}

// ClientCount returns the number of open connections.
func (l *Listener) ClientCount() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.clients)
}

// Stop closes the socket and every open connection, then clears the
// registry. It is safe to call more than once.
func (l *Listener) Stop() {
	l.stopMu.Lock()
	defer l.stopMu.Unlock()

	l.mutex.Lock()
	if !l.running {
		l.mutex.Unlock()
		return
	}
	l.running = false
	if l.stopCtx != nil {
		l.stopCtx()
	}
	if l.listener != nil {
		l.listener.Close()
	}
	clients := make([]*Conn, 0, len(l.clients))
	for _, c := range l.clients {
		clients = append(clients, c)
	}
	l.mutex.Unlock()

	for _, c := range clients {
		c.Close()
	}
	l.wg.Wait()

	for _, c := range l.registry.Drain() {
		c.Close()
	}
	l.hasClient.Store(false)
	l.logger.Info("listener stopped")
}
