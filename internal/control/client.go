package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

const dialRetryInterval = 100 * time.Millisecond

// Client talks to a control Server.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mutex   sync.Mutex
}

// Dial connects to the control socket, retrying until ctx is done so a
// client can be started alongside the server.
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			scanner := bufio.NewScanner(conn)
			scanner.Buffer(make([]byte, 64*1024), maxLine)
			return &Client{conn: conn, scanner: scanner}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to %s: %w", path, err)
		case <-time.After(dialRetryInterval):
		}
	}
}

// Do runs command with params and returns the server's response. A command
// that failed in the browser returns the response and its typed error.
// Once a call fails on the connection itself the client must be closed.
func (c *Client) Do(ctx context.Context, command string, params ...any) (*Response, error) {
	req := Request{ID: uuid.New().String(), Command: command}
	for i, p := range params {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		req.Params = append(req.Params, raw)
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	line = append(line, '\n')

	c.mutex.Lock()
	defer c.mutex.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { c.conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := c.conn.Write(line); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("send request: %w", err))
	}

	if !c.scanner.Scan() {
		err := c.scanner.Err()
		if err == nil {
			err = errors.New("server closed the connection")
		}
		return nil, c.ctxErr(ctx, fmt.Errorf("read response: %w", err))
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	return &resp, resp.Err()
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
