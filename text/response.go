package text

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ReplyKind classifies the single-line replies of the text protocol.
type ReplyKind int

const (
	ReplyStored ReplyKind = iota
	ReplyNotStored
	ReplyExists
	ReplyNotFound
	ReplyDeleted
	ReplyTouched
	ReplyOK
	ReplyVersion
	ReplyCounter
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyStored:
		return "STORED"
	case ReplyNotStored:
		return "NOT_STORED"
	case ReplyExists:
		return "EXISTS"
	case ReplyNotFound:
		return "NOT_FOUND"
	case ReplyDeleted:
		return "DELETED"
	case ReplyTouched:
		return "TOUCHED"
	case ReplyOK:
		return "OK"
	case ReplyVersion:
		return "VERSION"
	case ReplyCounter:
		return "<counter>"
	}
	return "<invalid>"
}

// Reply is one decoded single-line reply.
type Reply struct {
	Kind    ReplyKind
	Counter uint64 // set for ReplyCounter
	Message string // trailing text for ReplyVersion
}

// Entry is one VALUE block from a get or gets reply.
type Entry struct {
	Key   string
	Data  []byte
	Flags uint16
	CAS   uint64 // set only for gets
}

// readLine reads one CRLF-terminated reply line, without the terminator.
// An EOF here means the server closed mid-reply.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		// Line longer than the buffer: keep reading into a copy.
		long := append([]byte(nil), line...)
		for err == bufio.ErrBufferFull {
			line, err = r.ReadSlice('\n')
			long = append(long, line...)
		}
		line = long
	}
	if err != nil {
		return nil, closeError(err)
	}
	return bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r")), nil
}

// closeError maps end-of-stream conditions onto ErrUnexpectedClose.
// Timeouts and other transport errors pass through unchanged.
func closeError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", ErrUnexpectedClose, err)
	}
	return err
}

// ReadReply reads and classifies one single-line reply: the store, delete
// and touch acknowledgements, OK, VERSION, or a bare unsigned counter
// value (the incr/decr result). Server-reported failures come back as
// errors per the package taxonomy.
func ReadReply(r *bufio.Reader) (Reply, error) {
	line, err := readLine(r)
	if err != nil {
		return Reply{}, err
	}
	return parseReplyLine(line)
}

func parseReplyLine(line []byte) (Reply, error) {
	switch {
	case bytes.Equal(line, storedBytes):
		return Reply{Kind: ReplyStored}, nil
	case bytes.Equal(line, notStoredBytes):
		return Reply{Kind: ReplyNotStored}, nil
	case bytes.Equal(line, existsBytes):
		return Reply{Kind: ReplyExists}, nil
	case bytes.Equal(line, notFoundBytes):
		return Reply{Kind: ReplyNotFound}, nil
	case bytes.Equal(line, deletedBytes):
		return Reply{Kind: ReplyDeleted}, nil
	case bytes.Equal(line, touchedBytes):
		return Reply{Kind: ReplyTouched}, nil
	case bytes.Equal(line, okBytes):
		return Reply{Kind: ReplyOK}, nil
	case bytes.HasPrefix(line, versionPrefix):
		return Reply{Kind: ReplyVersion, Message: string(line[len(versionPrefix):])}, nil
	}
	if err := serverFailure(line); err != nil {
		return Reply{}, err
	}
	if n, err := strconv.ParseUint(string(line), 10, 64); err == nil {
		return Reply{Kind: ReplyCounter, Counter: n}, nil
	}
	return Reply{}, &UnknownReplyError{Line: clip(line)}
}

// serverFailure maps the three server failure lines onto their error
// kinds; it returns nil for any other line.
func serverFailure(line []byte) error {
	switch {
	case bytes.Equal(line, errorBytes):
		return ErrUnknownCommand
	case bytes.HasPrefix(line, clientErrorPrefix):
		return &ClientError{Reason: string(line[len(clientErrorPrefix):])}
	case bytes.HasPrefix(line, serverErrorPrefix):
		return &ServerError{Reason: string(line[len(serverErrorPrefix):])}
	}
	return nil
}

// ReadValues drives the VALUE/END loop of a get or gets reply, invoking
// fn once per decoded entry. withCAS selects the gets header form with
// the trailing cas token. A callback error stops the loop immediately,
// leaving the remainder of the reply unread.
func ReadValues(r *bufio.Reader, withCAS bool, fn func(Entry) error) error {
	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if bytes.Equal(line, endBytes) {
			return nil
		}
		if !bytes.HasPrefix(line, valuePrefix) {
			if err := serverFailure(line); err != nil {
				return err
			}
			return &UnknownReplyError{Line: clip(line)}
		}
		ent, size, err := scanValueLine(line, withCAS)
		if err != nil {
			return err
		}
		// Data block plus its CRLF terminator.
		block := make([]byte, size+2)
		if _, err := io.ReadFull(r, block); err != nil {
			return closeError(err)
		}
		if !bytes.HasSuffix(block, crlfBytes) {
			// The bytes sitting where the CRLF terminator should be.
			return &UnknownReplyError{Line: clip(block[size:])}
		}
		ent.Data = block[:size]
		if err := fn(ent); err != nil {
			return err
		}
	}
}

// scanValueLine parses `VALUE <key> <flags> <bytes> [<cas>]` and returns
// the entry header and the declared data length.
func scanValueLine(line []byte, withCAS bool) (Entry, int, error) {
	malformed := func() (Entry, int, error) {
		return Entry{}, 0, &UnknownReplyError{Line: clip(line)}
	}

	fields := bytes.Fields(line[len(valuePrefix):])
	want := 3
	if withCAS {
		want = 4
	}
	if len(fields) != want {
		return malformed()
	}

	var ent Entry
	ent.Key = string(fields[0])

	flags, err := strconv.ParseUint(string(fields[1]), 10, 16)
	if err != nil {
		return malformed()
	}
	ent.Flags = uint16(flags)

	size, err := strconv.ParseUint(string(fields[2]), 10, 31)
	if err != nil || size > MaxValueLength {
		return malformed()
	}

	if withCAS {
		ent.CAS, err = strconv.ParseUint(string(fields[3]), 10, 64)
		if err != nil {
			return malformed()
		}
	}
	return ent, int(size), nil
}

// ReadStats collects the STAT lines of a stats reply until END. Values
// are kept as strings; interpreting them is up to the caller.
func ReadStats(r *bufio.Reader) (map[string]string, error) {
	stats := make(map[string]string)
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(line, endBytes) {
			return stats, nil
		}
		if !bytes.HasPrefix(line, statPrefix) {
			if err := serverFailure(line); err != nil {
				return nil, err
			}
			return nil, &UnknownReplyError{Line: clip(line)}
		}
		name, value, found := bytes.Cut(line[len(statPrefix):], []byte(" "))
		if !found {
			return nil, &UnknownReplyError{Line: clip(line)}
		}
		stats[string(name)] = string(value)
	}
}

// clip bounds the reply text carried inside an error.
func clip(line []byte) string {
	const max = 64
	if len(line) > max {
		return string(line[:max]) + "..."
	}
	return string(line)
}
