package text

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedKey is returned before any I/O when a key is empty,
	// longer than MaxKeyLength, or contains whitespace or control bytes.
	ErrMalformedKey = errors.New("memcache: key is too long or contains invalid characters")

	// ErrValueTooLarge is returned before any I/O when a value exceeds
	// MaxValueLength.
	ErrValueTooLarge = errors.New("memcache: value exceeds the maximum item size")

	// ErrUnknownCommand is the ERROR reply: the server did not recognize
	// the command name.
	ErrUnknownCommand = errors.New("memcache: server rejected the command")

	// ErrUnexpectedClose is returned when the transport closes in the
	// middle of a reply line or a data block. The byte stream is no
	// longer at a command boundary and the connection must be discarded.
	ErrUnexpectedClose = errors.New("memcache: connection closed mid-reply")
)

// ClientError is a CLIENT_ERROR reply: the server could not process the
// command, usually because of malformed input (for example incr on a
// non-numeric value).
type ClientError struct {
	Reason string
}

func (e *ClientError) Error() string {
	return "memcache: client error: " + e.Reason
}

// ServerError is a SERVER_ERROR reply: the server hit an internal failure
// while processing the command (out of memory, for example).
type ServerError struct {
	Reason string
}

func (e *ServerError) Error() string {
	return "memcache: server error: " + e.Reason
}

// UnknownReplyError is returned when a reply line matches no recognized
// grammar, or when a recognized reply arrives for a command that cannot
// produce it. Either way the stream position is suspect.
type UnknownReplyError struct {
	Line string
}

func (e *UnknownReplyError) Error() string {
	return fmt.Sprintf("memcache: unrecognized reply %q", e.Line)
}
