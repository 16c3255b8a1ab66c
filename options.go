package memcache

import "github.com/cachetext/memcache/text"

// callOptions carries the per-call policies recognized by every
// operation.
type callOptions struct {
	noReply       bool
	missOnFailure bool
}

// Option adjusts the policies for a single call.
type Option func(*callOptions)

// WithNoReply overrides the noreply policy for one call. With noreply
// enabled the server sends no acknowledgement: the call returns as soon
// as the command is written, assuming success, and a failure only
// surfaces on a later call through a faulted connection.
//
// Defaults follow the command's nature: enabled for set, add, replace,
// append, prepend, delete, touch and flush_all, disabled for cas, incr
// and decr (whose results the caller always needs). Read operations
// ignore it.
func WithNoReply(enabled bool) Option {
	return func(o *callOptions) { o.noReply = enabled }
}

// WithMissOnFailure overrides the client-wide MissOnFailure policy for
// one call: network and server failures on read operations are reported
// as a plain miss instead of an error. Input validation errors are never
// masked, and mutations always surface their failures.
func WithMissOnFailure(enabled bool) Option {
	return func(o *callOptions) { o.missOnFailure = enabled }
}

func (c *Client) callOptions(verb string, opts []Option) callOptions {
	call := callOptions{
		noReply:       defaultNoReply(verb),
		missOnFailure: c.cfg.MissOnFailure,
	}
	for _, opt := range opts {
		opt(&call)
	}
	if verb == text.VerbGet || verb == text.VerbGets || verb == text.VerbStats || verb == text.VerbVersion {
		call.noReply = false
	}
	return call
}

// defaultNoReply encodes the per-command noreply defaults: mutation
// acknowledgements are skipped by default, results the caller needs are
// not.
func defaultNoReply(verb string) bool {
	switch verb {
	case text.VerbSet, text.VerbAdd, text.VerbReplace, text.VerbAppend,
		text.VerbPrepend, text.VerbDelete, text.VerbTouch, text.VerbFlushAll:
		return true
	}
	return false
}
