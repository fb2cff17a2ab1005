// Package bridge runs the round trip between driver commands and the
// browser extension.
//
// The extension opens a POST to ask for work; the bridge answers it with the
// next command and closes it. The extension then opens another POST carrying
// the result, which the bridge reads and closes without a reply.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/webdriver-bridge/internal/command"
	"github.com/user/webdriver-bridge/internal/drivererr"
	"github.com/user/webdriver-bridge/internal/registry"
	"github.com/user/webdriver-bridge/internal/wire"
)

// DefaultTimeout bounds each wait for an extension connection.
const DefaultTimeout = 5 * time.Second

// Executor sends one command at a time to the extension.
type Executor struct {
	catalog  *command.Catalog
	registry *registry.Registry[*Conn]
	timeout  time.Duration
	logger   *zap.Logger

	// held for the whole round trip so results cannot be misattributed
	mutex sync.Mutex
	// set when a result wait gave up; a late result may still be queued
	outOfSync bool
}

// NewExecutor creates an executor claiming connections from reg.
func NewExecutor(cat *command.Catalog, reg *registry.Registry[*Conn], timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		catalog:  cat,
		registry: reg,
		timeout:  timeout,
		logger:   logger.Named("executor"),
	}
}

// Catalog returns the catalog commands are serialized with.
func (e *Executor) Catalog() *command.Catalog { return e.catalog }

// Execute sends cmd to the extension and waits for its result. A nonzero
// status comes back as a *drivererr.E alongside the parsed response.
func (e *Executor) Execute(ctx context.Context, cmd command.Command) (*wire.Response, error) {
	body, err := command.Serialize(e.catalog, cmd)
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	log := e.logger.With(zap.Stringer("command", cmd.Kind))
	start := time.Now()

	dispatch, err := e.claimDispatch(ctx, log)
	if err != nil {
		return nil, err
	}

	log.Debug("dispatching", zap.String("conn", dispatch.ID), zap.ByteString("body", body))
	if err := e.send(dispatch, body); err != nil {
		return nil, drivererr.Wrap(drivererr.NoConnectionAvailable, "send command to extension", err)
	}

	// Wait for the result.
	if err := e.registry.Await(ctx, e.timeout); err != nil {
		log.Warn("extension did not return a result", zap.Error(err))
		e.outOfSync = true
		return nil, err
	}
	result, err := e.registry.Claim()
	if err != nil {
		return nil, err
	}
	// The extension does not read a reply to its result POST.
	result.Close()

	resp, err := wire.ParseResult(result.Text())
	if resp != nil {
		log = log.With(zap.Int("status", resp.StatusCode))
	}
	log.Debug("result received", zap.String("conn", result.ID), zap.Duration("elapsed", time.Since(start)))
	return resp, err
}

// claimDispatch waits for the extension to ask for work. After an abandoned
// result wait, queued result POSTs are closed and skipped.
func (e *Executor) claimDispatch(ctx context.Context, log *zap.Logger) (*Conn, error) {
	for {
		if err := e.registry.Await(ctx, e.timeout); err != nil {
			log.Warn("extension did not request a command", zap.Error(err))
			return nil, err
		}
		c, err := e.registry.Claim()
		if err != nil {
			return nil, err
		}
		if !e.outOfSync {
			return c, nil
		}
		if _, err := wire.ParseResponse(c.Text()); err != nil {
			e.outOfSync = false
			return c, nil
		}
		log.Warn("discarding late result", zap.String("conn", c.ID))
		c.Close()
	}
}

// Do builds a command from kind and values and executes it.
func (e *Executor) Do(ctx context.Context, kind command.Kind, values ...command.Value) (*wire.Response, error) {
	cmd, err := e.catalog.New(kind, values...)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, cmd)
}

func (e *Executor) send(c *Conn, body []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(e.timeout)); err != nil {
		c.Close()
		return fmt.Errorf("set write deadline: %w", err)
	}
	return c.Reply(wire.CommandReply(body))
}
