package memcache

import "fmt"

// SerializeFunc turns an application value into the bytes and flags
// stored on the server. The flags are an opaque 16-bit tag: the client
// passes them through unchanged, and only the matching DeserializeFunc
// interprets them.
type SerializeFunc func(key string, value any) (data []byte, flags uint16, err error)

// DeserializeFunc turns stored bytes and flags back into an application
// value.
type DeserializeFunc func(key string, data []byte, flags uint16) (value any, err error)

// DefaultSerialize passes []byte and string values through untouched with
// zero flags. Any other type is rejected with ErrUnsupportedValue before
// any I/O happens.
func DefaultSerialize(key string, value any) ([]byte, uint16, error) {
	switch v := value.(type) {
	case []byte:
		return v, 0, nil
	case string:
		return []byte(v), 0, nil
	}
	return nil, 0, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
}

// DefaultDeserialize returns the raw stored bytes, treating the flags as
// opaque.
func DefaultDeserialize(key string, data []byte, flags uint16) (any, error) {
	return data, nil
}
