// Package text implements the wire codec for the classic memcached text
// protocol (the "get/set" command family, as opposed to the meta or binary
// protocols).
//
// The package is a stateless translation layer: it renders Request values
// into protocol bytes and parses reply lines and data blocks back into
// typed results. It owns no connections and makes no policy decisions;
// callers control the transport and decide what to do with errors.
//
// # Requests
//
// A Request pairs a verb with its key(s) and payload. WriteRequest renders
// it onto a bufio.Writer, validating every key and the value size before a
// single byte is buffered:
//
//	req := &text.Request{Verb: text.VerbSet, Key: "greeting", Value: []byte("hi")}
//	if err := text.WriteRequest(w, req); err != nil {
//	    // text.ErrMalformedKey, text.ErrValueTooLarge, or a write error
//	}
//
// # Replies
//
// ReadReply parses the single-line replies (STORED, NOT_FOUND, counter
// values, ...). ReadValues drives the VALUE/END loop of a get or gets and
// hands each decoded entry to a callback. ReadStats collects STAT lines.
//
// Server-reported failures surface as errors: ERROR maps to
// ErrUnknownCommand, CLIENT_ERROR and SERVER_ERROR to *ClientError and
// *ServerError carrying the server's message, and anything outside the
// grammar to *UnknownReplyError. A stream that ends mid-reply yields
// ErrUnexpectedClose, the signal that the connection can no longer be
// trusted to sit at a command boundary.
//
// Protocol reference:
// https://github.com/memcached/memcached/blob/master/doc/protocol.txt
package text
