package memcache

import (
	"errors"

	"github.com/cachetext/memcache/text"
)

var (
	// ErrCacheMiss means the key was not found: a delete, touch, incr or
	// decr targeted an absent item. Read operations report a miss through
	// Item.Found instead.
	ErrCacheMiss = errors.New("memcache: cache miss")

	// ErrNotStored means a conditional store (add, replace, append,
	// prepend, or a cas whose item was evicted) found its condition
	// unmet.
	ErrNotStored = errors.New("memcache: item not stored")

	// ErrCASConflict means a CompareAndSwap lost the race: the item
	// changed between the gets and the cas.
	ErrCASConflict = errors.New("memcache: compare-and-swap conflict")

	// ErrUnsupportedValue is returned by the default serializer for
	// value types it cannot encode.
	ErrUnsupportedValue = errors.New("memcache: value type not supported by serializer")
)

// Wire-level error kinds, re-exported for convenience.
var (
	ErrMalformedKey    = text.ErrMalformedKey
	ErrValueTooLarge   = text.ErrValueTooLarge
	ErrUnknownCommand  = text.ErrUnknownCommand
	ErrUnexpectedClose = text.ErrUnexpectedClose
)

// resumableError reports whether err left the reply stream at a command
// boundary, so the connection can keep serving calls. Typed cache results
// and client-side input rejections are resumable; protocol and transport
// failures are not, and force a reconnect on the next call.
func resumableError(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrCacheMiss),
		errors.Is(err, ErrNotStored),
		errors.Is(err, ErrCASConflict):
		return true
	}
	return inputError(err)
}

// inputError reports whether err is a client-side input rejection, caught
// before any I/O. These are never downgraded to a miss by the
// MissOnFailure policy.
func inputError(err error) bool {
	return errors.Is(err, text.ErrMalformedKey) ||
		errors.Is(err, text.ErrValueTooLarge) ||
		errors.Is(err, ErrUnsupportedValue)
}
