package memcache

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// DialContextFunc opens the transport for one connection attempt. The
// default uses net.Dialer; tests substitute spies.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateFaulted
)

// Connection owns exactly one transport socket. It dials lazily on first
// use and is destroyed and recreated whenever an exchange leaves the byte
// stream off a command boundary (the Faulted state). A Connection is not
// shared between clients and assumes calls are serialized by its owner.
type Connection struct {
	addr           string
	dial           DialContextFunc
	connectTimeout time.Duration
	timeout        time.Duration

	state connState
	nc    net.Conn

	// Reader and Writer frame the socket for the wire codec. They are
	// valid only while the state is Connected.
	Reader *bufio.Reader
	Writer *bufio.Writer
}

func newConnection(addr string, cfg Config) *Connection {
	return &Connection{
		addr:           addr,
		dial:           cfg.DialContext,
		connectTimeout: cfg.ConnectTimeout,
		timeout:        cfg.Timeout,
	}
}

// Connect ensures the connection is usable, dialing with the configured
// connect timeout if the state is Disconnected or Faulted. A dial failure
// is surfaced unchanged and leaves the state Disconnected.
func (c *Connection) Connect(ctx context.Context) error {
	if c.state == stateConnected {
		return nil
	}
	c.teardown()
	c.state = stateDisconnected

	dctx := ctx
	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}
	nc, err := c.dial(dctx, "tcp", c.addr)
	if err != nil {
		return errors.WithStack(err)
	}

	c.nc = nc
	c.Reader = bufio.NewReader(nc)
	c.Writer = bufio.NewWriter(nc)
	c.state = stateConnected
	return nil
}

// Connected reports whether the connection currently holds a live socket.
func (c *Connection) Connected() bool {
	return c.state == stateConnected
}

// SetDeadline arms the per-operation deadline: the configured timeout, or
// the context deadline when that expires sooner.
func (c *Connection) SetDeadline(ctx context.Context) error {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return errors.WithStack(c.nc.SetDeadline(deadline))
}

// Fault discards the socket and marks the stream untrusted. The next
// Connect dials from scratch.
func (c *Connection) Fault() {
	c.teardown()
	c.state = stateFaulted
}

// Close releases the transport unconditionally. It is idempotent and
// leaves the connection ready to be reopened by a later Connect.
func (c *Connection) Close() error {
	c.teardown()
	c.state = stateDisconnected
	return nil
}

func (c *Connection) teardown() {
	if c.nc != nil {
		c.nc.Close()
		c.nc = nil
	}
	c.Reader = nil
	c.Writer = nil
}
