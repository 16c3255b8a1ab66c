package memcache

import (
	"context"
	"math"
	"net"
	"sync"
	"time"

	"github.com/cachetext/memcache/text"
)

// NoTTL represents an infinite TTL (no expiration).
// Use this constant when you want items to persist indefinitely in memcache.
const NoTTL = 0

// Item is one cache entry. Value holds the application value: on writes
// it goes through the configured serializer, on reads it comes back from
// the deserializer (raw []byte with the defaults). Flags and CAS are
// populated on reads; writes derive the flags from the serializer and,
// for CompareAndSwap, take the CAS token from the Item as returned by
// Gets.
type Item struct {
	Key   string
	Value any
	Flags uint16
	CAS   uint64
	TTL   time.Duration
	Found bool // indicates whether the key was found in cache
}

type Querier interface {
	Get(ctx context.Context, key string, opts ...Option) (Item, error)
	Gets(ctx context.Context, key string, opts ...Option) (Item, error)
	GetMany(ctx context.Context, keys []string, opts ...Option) (map[string]Item, error)
	GetsMany(ctx context.Context, keys []string, opts ...Option) (map[string]Item, error)
	Set(ctx context.Context, item Item, opts ...Option) error
	Add(ctx context.Context, item Item, opts ...Option) error
	Replace(ctx context.Context, item Item, opts ...Option) error
	Append(ctx context.Context, item Item, opts ...Option) error
	Prepend(ctx context.Context, item Item, opts ...Option) error
	CompareAndSwap(ctx context.Context, item Item, opts ...Option) error
	Delete(ctx context.Context, key string, opts ...Option) error
	Increment(ctx context.Context, key string, delta uint64, opts ...Option) (uint64, error)
	Decrement(ctx context.Context, key string, delta uint64, opts ...Option) (uint64, error)
	Touch(ctx context.Context, key string, ttl time.Duration, opts ...Option) error
}

// Config holds configuration for the memcache client.
type Config struct {
	// ConnectTimeout bounds the dial of a new connection.
	// Zero means DefaultConnectTimeout; negative disables the bound.
	ConnectTimeout time.Duration

	// Timeout bounds each send/receive exchange once connected.
	// Zero means DefaultTimeout; negative disables the bound.
	// A sooner context deadline always wins.
	Timeout time.Duration

	// MissOnFailure reports network and server failures on read
	// operations as a plain miss instead of an error. Input validation
	// errors still surface, and mutations are never masked.
	// WithMissOnFailure overrides it per call.
	MissOnFailure bool

	// Serialize and Deserialize convert between application values and
	// stored bytes+flags. If nil, DefaultSerialize and DefaultDeserialize
	// are used ([]byte and string pass-through).
	Serialize   SerializeFunc
	Deserialize DeserializeFunc

	// DialContext opens the transport. If nil, a default net.Dialer is
	// used.
	DialContext DialContextFunc

	// NewCircuitBreaker creates the circuit breaker quarantining the
	// server after repeated failures. If nil, DefaultCircuitBreaker is
	// used; NoCircuitBreaker disables quarantining.
	NewCircuitBreaker func(addr string) *Breaker
}

// Default timeouts applied when the Config leaves them zero.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultTimeout        = 1 * time.Second
)

// Client is a memcache client for a single server, speaking the classic
// text protocol over one lazily-dialed connection. All methods are safe
// for concurrent use; calls are serialized on the connection.
type Client struct {
	cfg Config

	mu      sync.Mutex
	conn    *Connection
	breaker *Breaker

	stats *clientStatsCollector
}

var _ Querier = (*Client)(nil)

// New creates a client for the memcache server at addr (host:port or a
// path for unix sockets). No connection is made until the first call.
func New(addr string, config Config) *Client {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Serialize == nil {
		config.Serialize = DefaultSerialize
	}
	if config.Deserialize == nil {
		config.Deserialize = DefaultDeserialize
	}
	if config.DialContext == nil {
		var dialer net.Dialer
		config.DialContext = dialer.DialContext
	}
	if config.NewCircuitBreaker == nil {
		config.NewCircuitBreaker = DefaultCircuitBreaker
	}

	return &Client{
		cfg:     config,
		conn:    newConnection(addr, config),
		breaker: config.NewCircuitBreaker(addr),
		stats:   newClientStatsCollector(),
	}
}

// Close releases the connection. The client remains usable; the next
// call dials again.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Stats returns a snapshot of the client-side operation counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// roundTrip serializes one exchange on the connection, routed through
// the circuit breaker so repeated failures quarantine the server.
func (c *Client) roundTrip(ctx context.Context, fn func(conn *Connection) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if c.breaker == nil {
		return c.exchange(ctx, fn)
	}
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.exchange(ctx, fn)
	})
	return err
}

func (c *Client) exchange(ctx context.Context, fn func(conn *Connection) error) error {
	if !c.conn.Connected() {
		c.stats.recordDial()
		if err := c.conn.Connect(ctx); err != nil {
			c.stats.recordError()
			return err
		}
	}
	if err := c.conn.SetDeadline(ctx); err != nil {
		c.conn.Fault()
		c.stats.recordError()
		return err
	}
	if err := fn(c.conn); err != nil {
		if !resumableError(err) {
			c.conn.Fault()
			c.stats.recordError()
		}
		return err
	}
	return nil
}

// Get retrieves one key. A missing key is not an error: the returned
// Item has Found set to false.
func (c *Client) Get(ctx context.Context, key string, opts ...Option) (Item, error) {
	return c.fetchOne(ctx, text.VerbGet, key, opts)
}

// Gets retrieves one key with its CAS token, for use with
// CompareAndSwap.
func (c *Client) Gets(ctx context.Context, key string, opts ...Option) (Item, error) {
	return c.fetchOne(ctx, text.VerbGets, key, opts)
}

// GetMany retrieves multiple keys in a single round trip. The result
// maps each found key to its item; missing keys are simply absent.
func (c *Client) GetMany(ctx context.Context, keys []string, opts ...Option) (map[string]Item, error) {
	return c.fetch(ctx, text.VerbGet, keys, c.callOptions(text.VerbGet, opts))
}

// GetsMany is GetMany with CAS tokens.
func (c *Client) GetsMany(ctx context.Context, keys []string, opts ...Option) (map[string]Item, error) {
	return c.fetch(ctx, text.VerbGets, keys, c.callOptions(text.VerbGets, opts))
}

// Set stores the item unconditionally.
func (c *Client) Set(ctx context.Context, item Item, opts ...Option) error {
	return c.store(ctx, text.VerbSet, item, opts)
}

// Add stores the item only if the key does not already exist, returning
// ErrNotStored otherwise.
func (c *Client) Add(ctx context.Context, item Item, opts ...Option) error {
	return c.store(ctx, text.VerbAdd, item, opts)
}

// Replace stores the item only if the key already exists, returning
// ErrNotStored otherwise.
func (c *Client) Replace(ctx context.Context, item Item, opts ...Option) error {
	return c.store(ctx, text.VerbReplace, item, opts)
}

// Append concatenates the value after the existing one. ErrNotStored
// means the key does not exist.
func (c *Client) Append(ctx context.Context, item Item, opts ...Option) error {
	return c.store(ctx, text.VerbAppend, item, opts)
}

// Prepend concatenates the value before the existing one. ErrNotStored
// means the key does not exist.
func (c *Client) Prepend(ctx context.Context, item Item, opts ...Option) error {
	return c.store(ctx, text.VerbPrepend, item, opts)
}

// CompareAndSwap stores the item only if it has not changed since the
// Gets that produced item.CAS. ErrCASConflict means it changed,
// ErrCacheMiss means it disappeared.
func (c *Client) CompareAndSwap(ctx context.Context, item Item, opts ...Option) error {
	return c.store(ctx, text.VerbCas, item, opts)
}

func (c *Client) store(ctx context.Context, verb string, item Item, opts []Option) error {
	call := c.callOptions(verb, opts)
	c.stats.recordStore()

	data, flags, err := c.cfg.Serialize(item.Key, item.Value)
	if err != nil {
		return err
	}
	if err := text.ValidateKey(item.Key); err != nil {
		return err
	}
	if err := text.ValidateValue(data); err != nil {
		return err
	}

	req := &text.Request{
		Verb:    verb,
		Key:     item.Key,
		Flags:   flags,
		Exptime: ttlSeconds(item.TTL),
		CAS:     item.CAS,
		Value:   data,
		NoReply: call.noReply,
	}
	return c.roundTrip(ctx, func(conn *Connection) error {
		reply, err := c.send(conn, req)
		if err != nil || call.noReply {
			return err
		}
		switch reply.Kind {
		case text.ReplyStored:
			return nil
		case text.ReplyNotStored:
			return ErrNotStored
		case text.ReplyExists:
			return ErrCASConflict
		case text.ReplyNotFound:
			return ErrCacheMiss
		}
		return misplacedReply(reply)
	})
}

// Delete removes the key, returning ErrCacheMiss if it does not exist.
func (c *Client) Delete(ctx context.Context, key string, opts ...Option) error {
	call := c.callOptions(text.VerbDelete, opts)
	c.stats.recordDelete()

	if err := text.ValidateKey(key); err != nil {
		return err
	}
	req := &text.Request{Verb: text.VerbDelete, Key: key, NoReply: call.noReply}
	return c.roundTrip(ctx, func(conn *Connection) error {
		reply, err := c.send(conn, req)
		if err != nil || call.noReply {
			return err
		}
		switch reply.Kind {
		case text.ReplyDeleted:
			return nil
		case text.ReplyNotFound:
			return ErrCacheMiss
		}
		return misplacedReply(reply)
	})
}

// Increment adds delta to the counter stored at key and returns the new
// value. The key must exist and hold a decimal number; ErrCacheMiss is
// returned when it does not exist.
func (c *Client) Increment(ctx context.Context, key string, delta uint64, opts ...Option) (uint64, error) {
	return c.arithmetic(ctx, text.VerbIncr, key, delta, opts)
}

// Decrement subtracts delta from the counter stored at key and returns
// the new value. The server floors the result at zero.
func (c *Client) Decrement(ctx context.Context, key string, delta uint64, opts ...Option) (uint64, error) {
	return c.arithmetic(ctx, text.VerbDecr, key, delta, opts)
}

func (c *Client) arithmetic(ctx context.Context, verb string, key string, delta uint64, opts []Option) (uint64, error) {
	call := c.callOptions(verb, opts)
	c.stats.recordArithmetic()

	if err := text.ValidateKey(key); err != nil {
		return 0, err
	}
	req := &text.Request{Verb: verb, Key: key, Delta: delta, NoReply: call.noReply}

	var value uint64
	err := c.roundTrip(ctx, func(conn *Connection) error {
		reply, err := c.send(conn, req)
		if err != nil || call.noReply {
			return err
		}
		switch reply.Kind {
		case text.ReplyCounter:
			value = reply.Counter
			return nil
		case text.ReplyNotFound:
			return ErrCacheMiss
		}
		return misplacedReply(reply)
	})
	return value, err
}

// Touch updates the expiration of the key without fetching it,
// returning ErrCacheMiss if it does not exist.
func (c *Client) Touch(ctx context.Context, key string, ttl time.Duration, opts ...Option) error {
	call := c.callOptions(text.VerbTouch, opts)

	if err := text.ValidateKey(key); err != nil {
		return err
	}
	req := &text.Request{Verb: text.VerbTouch, Key: key, Exptime: ttlSeconds(ttl), NoReply: call.noReply}
	return c.roundTrip(ctx, func(conn *Connection) error {
		reply, err := c.send(conn, req)
		if err != nil || call.noReply {
			return err
		}
		switch reply.Kind {
		case text.ReplyTouched:
			return nil
		case text.ReplyNotFound:
			return ErrCacheMiss
		}
		return misplacedReply(reply)
	})
}

// FlushAll invalidates every item on the server, after the given delay
// if non-zero.
func (c *Client) FlushAll(ctx context.Context, delay time.Duration, opts ...Option) error {
	call := c.callOptions(text.VerbFlushAll, opts)

	req := &text.Request{Verb: text.VerbFlushAll, Exptime: ttlSeconds(delay), NoReply: call.noReply}
	return c.roundTrip(ctx, func(conn *Connection) error {
		reply, err := c.send(conn, req)
		if err != nil || call.noReply {
			return err
		}
		if reply.Kind == text.ReplyOK {
			return nil
		}
		return misplacedReply(reply)
	})
}

// ServerStats queries the server's stats command, optionally with a
// subsystem argument like "items" or "slabs". Values are returned as
// the server sent them, uninterpreted.
func (c *Client) ServerStats(ctx context.Context, args ...string) (map[string]string, error) {
	req := &text.Request{Verb: text.VerbStats, Keys: args}

	var stats map[string]string
	err := c.roundTrip(ctx, func(conn *Connection) error {
		if err := text.WriteRequest(conn.Writer, req); err != nil {
			return err
		}
		if err := conn.Writer.Flush(); err != nil {
			return err
		}
		var err error
		stats, err = text.ReadStats(conn.Reader)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Version returns the server's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	req := &text.Request{Verb: text.VerbVersion}

	var version string
	err := c.roundTrip(ctx, func(conn *Connection) error {
		reply, err := c.send(conn, req)
		if err != nil {
			return err
		}
		if reply.Kind != text.ReplyVersion {
			return misplacedReply(reply)
		}
		version = reply.Message
		return nil
	})
	return version, err
}

// Ping verifies the server is reachable and speaking the protocol.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}

// SetMany stores the items in order, stopping at the first failure. With
// the default noreply policy there is no reply wait per item, so the
// writes effectively pipeline.
func (c *Client) SetMany(ctx context.Context, items []Item, opts ...Option) error {
	for _, item := range items {
		if err := c.Set(ctx, item, opts...); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMany deletes the keys in order, stopping at the first failure.
// A missing key is not a failure.
func (c *Client) DeleteMany(ctx context.Context, keys []string, opts ...Option) error {
	for _, key := range keys {
		err := c.Delete(ctx, key, opts...)
		if err != nil && err != ErrCacheMiss {
			return err
		}
	}
	return nil
}

// send writes one command and reads its single-line reply, unless the
// command was sent noreply.
func (c *Client) send(conn *Connection, req *text.Request) (text.Reply, error) {
	if err := text.WriteRequest(conn.Writer, req); err != nil {
		return text.Reply{}, err
	}
	if err := conn.Writer.Flush(); err != nil {
		return text.Reply{}, err
	}
	if req.NoReply {
		return text.Reply{}, nil
	}
	return text.ReadReply(conn.Reader)
}

// misplacedReply flags a reply that is well-formed but answers a
// different command than the one sent. The stream can no longer be
// trusted to be aligned, so this error faults the connection.
func misplacedReply(reply text.Reply) error {
	return &text.UnknownReplyError{Line: reply.Kind.String()}
}

// ttlSeconds converts a TTL to the protocol's exptime field. Memcached
// treats values above 30 days as absolute unix timestamps; callers
// wanting that pass the timestamp as a duration from the epoch. TTLs
// beyond the field's 32-bit range clamp to the maximum.
func ttlSeconds(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	if secs > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(secs)
}
