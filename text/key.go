package text

// ValidateKey checks a key against the protocol constraints: 1-250 bytes,
// no whitespace or control characters. It returns ErrMalformedKey on
// violation so callers can reject the key before any I/O happens.
func ValidateKey(key string) error {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return ErrMalformedKey
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return ErrMalformedKey
		}
	}
	return nil
}

// ValidateValue checks a serialized value against the server's item size
// limit.
func ValidateValue(value []byte) error {
	if len(value) > MaxValueLength {
		return ErrValueTooLarge
	}
	return nil
}
