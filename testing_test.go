package memcache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func createListener(t testing.TB, handler func(conn net.Conn)) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start test server: %v", err)
	}

	t.Cleanup(func() {
		listener.Close()
	})

	// Accept connections in background
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()

				if handler != nil {
					handler(c)
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

// lineResponder answers every received command line with the same canned
// reply. Storage commands also consume their data block.
func lineResponder(reply string) func(conn net.Conn) {
	return func(conn net.Conn) {
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			fields := strings.Fields(line)
			if len(fields) >= 5 && isStorageVerb(fields[0]) {
				size, _ := strconv.Atoi(fields[4])
				io.CopyN(io.Discard, reader, int64(size+2))
			}
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}
}

// closingResponder reads one command line and closes the socket without
// answering.
func closingResponder() func(conn net.Conn) {
	return func(conn net.Conn) {
		reader := bufio.NewReader(conn)
		reader.ReadString('\n')
	}
}

func isStorageVerb(verb string) bool {
	switch verb {
	case "set", "add", "replace", "append", "prepend", "cas":
		return true
	}
	return false
}

// spyDialer wraps the default dialer and counts dials, Write calls and
// written bytes.
type spyDialer struct {
	dials        atomic.Int64
	writes       atomic.Int64
	bytesWritten atomic.Int64
}

func (d *spyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d.dials.Add(1)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return &spyConn{Conn: conn, dialer: d}, nil
}

type spyConn struct {
	net.Conn
	dialer *spyDialer
}

func (c *spyConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	c.dialer.writes.Add(1)
	c.dialer.bytesWritten.Add(int64(n))
	return n, err
}

// fakeItem is one entry in the fake server's store.
type fakeItem struct {
	data  []byte
	flags uint16
	cas   uint64
}

// fakeServer is an in-memory memcached speaking enough of the text
// protocol for the tests: the storage commands, get/gets, delete,
// incr/decr, touch, flush_all, version and stats. Expiration is not
// simulated.
type fakeServer struct {
	mu         sync.Mutex
	items      map[string]*fakeItem
	casCounter uint64
}

func newFakeServer() *fakeServer {
	return &fakeServer{items: make(map[string]*fakeItem)}
}

func (s *fakeServer) get(key string) (*fakeItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	return item, ok
}

func (s *fakeServer) handle(conn net.Conn) {
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		reply := s.dispatch(reader, fields)
		if reply == "" {
			continue // noreply
		}
		writer.WriteString(reply)
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func (s *fakeServer) dispatch(reader *bufio.Reader, fields []string) string {
	verb := fields[0]
	args := fields[1:]
	noreply := len(args) > 0 && args[len(args)-1] == "noreply"
	if noreply {
		args = args[:len(args)-1]
	}

	var reply string
	switch {
	case isStorageVerb(verb):
		reply = s.handleStore(reader, verb, args)
	case verb == "get" || verb == "gets":
		return s.handleGet(verb, args)
	case verb == "delete":
		reply = s.handleDelete(args)
	case verb == "incr" || verb == "decr":
		reply = s.handleArithmetic(verb, args)
	case verb == "touch":
		reply = s.handleTouch(args)
	case verb == "flush_all":
		s.mu.Lock()
		s.items = make(map[string]*fakeItem)
		s.mu.Unlock()
		reply = "OK\r\n"
	case verb == "version":
		return "VERSION 1.6.31\r\n"
	case verb == "stats":
		return s.handleStats(args)
	default:
		return "ERROR\r\n"
	}

	if noreply {
		return ""
	}
	return reply
}

func (s *fakeServer) handleStore(reader *bufio.Reader, verb string, args []string) string {
	wantArgs := 4
	if verb == "cas" {
		wantArgs = 5
	}
	if len(args) != wantArgs {
		return "CLIENT_ERROR bad command line format\r\n"
	}

	key := args[0]
	flags, err1 := strconv.ParseUint(args[1], 10, 16)
	_, err2 := strconv.ParseInt(args[2], 10, 32)
	size, err3 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return "CLIENT_ERROR bad command line format\r\n"
	}

	var casToken uint64
	if verb == "cas" {
		casToken, err1 = strconv.ParseUint(args[4], 10, 64)
		if err1 != nil {
			return "CLIENT_ERROR bad command line format\r\n"
		}
	}

	block := make([]byte, size+2)
	if _, err := io.ReadFull(reader, block); err != nil {
		return "CLIENT_ERROR bad data chunk\r\n"
	}
	data := block[:size]

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[key]
	switch verb {
	case "add":
		if exists {
			return "NOT_STORED\r\n"
		}
	case "replace":
		if !exists {
			return "NOT_STORED\r\n"
		}
	case "append":
		if !exists {
			return "NOT_STORED\r\n"
		}
		data = append(append([]byte{}, existing.data...), data...)
		flags = uint64(existing.flags)
	case "prepend":
		if !exists {
			return "NOT_STORED\r\n"
		}
		data = append(append([]byte{}, data...), existing.data...)
		flags = uint64(existing.flags)
	case "cas":
		if !exists {
			return "NOT_FOUND\r\n"
		}
		if existing.cas != casToken {
			return "EXISTS\r\n"
		}
	}

	s.casCounter++
	s.items[key] = &fakeItem{data: data, flags: uint16(flags), cas: s.casCounter}
	return "STORED\r\n"
}

func (s *fakeServer) handleGet(verb string, keys []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, key := range keys {
		item, ok := s.items[key]
		if !ok {
			continue
		}
		if verb == "gets" {
			fmt.Fprintf(&b, "VALUE %s %d %d %d\r\n", key, item.flags, len(item.data), item.cas)
		} else {
			fmt.Fprintf(&b, "VALUE %s %d %d\r\n", key, item.flags, len(item.data))
		}
		b.Write(item.data)
		b.WriteString("\r\n")
	}
	b.WriteString("END\r\n")
	return b.String()
}

func (s *fakeServer) handleDelete(args []string) string {
	if len(args) != 1 {
		return "CLIENT_ERROR bad command line format\r\n"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[args[0]]; !ok {
		return "NOT_FOUND\r\n"
	}
	delete(s.items, args[0])
	return "DELETED\r\n"
}

func (s *fakeServer) handleArithmetic(verb string, args []string) string {
	if len(args) != 2 {
		return "CLIENT_ERROR bad command line format\r\n"
	}
	delta, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return "CLIENT_ERROR invalid numeric delta argument\r\n"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[args[0]]
	if !ok {
		return "NOT_FOUND\r\n"
	}
	current, err := strconv.ParseUint(string(item.data), 10, 64)
	if err != nil {
		return "CLIENT_ERROR cannot increment or decrement non-numeric value\r\n"
	}

	if verb == "incr" {
		current += delta
	} else if delta > current {
		current = 0
	} else {
		current -= delta
	}

	s.casCounter++
	item.data = []byte(strconv.FormatUint(current, 10))
	item.cas = s.casCounter
	return strconv.FormatUint(current, 10) + "\r\n"
}

func (s *fakeServer) handleTouch(args []string) string {
	if len(args) != 2 {
		return "CLIENT_ERROR bad command line format\r\n"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[args[0]]; !ok {
		return "NOT_FOUND\r\n"
	}
	return "TOUCHED\r\n"
}

func (s *fakeServer) handleStats(args []string) string {
	s.mu.Lock()
	count := len(s.items)
	s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "STAT curr_items %d\r\n", count)
	b.WriteString("STAT version 1.6.31\r\n")
	b.WriteString("END\r\n")
	return b.String()
}

// newTestClient spins up a fake server and a client connected to it.
func newTestClient(t testing.TB, config Config) (*Client, *fakeServer) {
	t.Helper()
	server := newFakeServer()
	addr := createListener(t, server.handle)
	client := New(addr, config)
	t.Cleanup(func() { client.Close() })
	return client, server
}

func testContext(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
