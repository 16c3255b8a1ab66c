package text

import (
	"bufio"
	"fmt"
	"strconv"
)

// Request is a transient description of one protocol command. It lives
// only for the duration of a single call: the engine fills in the fields
// the verb needs and hands it to WriteRequest.
type Request struct {
	Verb string

	// Key is the target of single-key commands. Keys carries the key list
	// for get/gets (and the argument list for stats).
	Key  string
	Keys []string

	Flags   uint16 // storage commands
	Exptime int32  // storage commands, touch, flush_all delay
	Delta   uint64 // incr/decr
	CAS     uint64 // cas
	Value   []byte // storage commands

	NoReply bool
}

// WriteRequest renders req onto w per the text protocol grammar. Every
// key and the value size are validated before a single byte is buffered,
// so a validation failure leaves nothing on the wire. The caller flushes.
func WriteRequest(w *bufio.Writer, req *Request) error {
	switch req.Verb {
	case VerbGet, VerbGets:
		if len(req.Keys) == 0 {
			return ErrMalformedKey
		}
		for _, key := range req.Keys {
			if err := ValidateKey(key); err != nil {
				return err
			}
		}
		w.WriteString(req.Verb)
		for _, key := range req.Keys {
			w.WriteByte(' ')
			w.WriteString(key)
		}
		_, err := w.Write(crlfBytes)
		return err

	case VerbSet, VerbAdd, VerbReplace, VerbAppend, VerbPrepend, VerbCas:
		if err := ValidateKey(req.Key); err != nil {
			return err
		}
		if err := ValidateValue(req.Value); err != nil {
			return err
		}
		w.WriteString(req.Verb)
		w.WriteByte(' ')
		w.WriteString(req.Key)
		w.WriteByte(' ')
		w.WriteString(strconv.FormatUint(uint64(req.Flags), 10))
		w.WriteByte(' ')
		w.WriteString(strconv.FormatInt(int64(req.Exptime), 10))
		w.WriteByte(' ')
		w.WriteString(strconv.Itoa(len(req.Value)))
		if req.Verb == VerbCas {
			w.WriteByte(' ')
			w.WriteString(strconv.FormatUint(req.CAS, 10))
		}
		writeNoReply(w, req.NoReply)
		w.Write(crlfBytes)
		w.Write(req.Value)
		_, err := w.Write(crlfBytes)
		return err

	case VerbDelete:
		if err := ValidateKey(req.Key); err != nil {
			return err
		}
		w.WriteString(req.Verb)
		w.WriteByte(' ')
		w.WriteString(req.Key)
		writeNoReply(w, req.NoReply)
		_, err := w.Write(crlfBytes)
		return err

	case VerbIncr, VerbDecr:
		if err := ValidateKey(req.Key); err != nil {
			return err
		}
		w.WriteString(req.Verb)
		w.WriteByte(' ')
		w.WriteString(req.Key)
		w.WriteByte(' ')
		w.WriteString(strconv.FormatUint(req.Delta, 10))
		writeNoReply(w, req.NoReply)
		_, err := w.Write(crlfBytes)
		return err

	case VerbTouch:
		if err := ValidateKey(req.Key); err != nil {
			return err
		}
		w.WriteString(req.Verb)
		w.WriteByte(' ')
		w.WriteString(req.Key)
		w.WriteByte(' ')
		w.WriteString(strconv.FormatInt(int64(req.Exptime), 10))
		writeNoReply(w, req.NoReply)
		_, err := w.Write(crlfBytes)
		return err

	case VerbFlushAll:
		w.WriteString(req.Verb)
		if req.Exptime > 0 {
			w.WriteByte(' ')
			w.WriteString(strconv.FormatInt(int64(req.Exptime), 10))
		}
		writeNoReply(w, req.NoReply)
		_, err := w.Write(crlfBytes)
		return err

	case VerbVersion:
		w.WriteString(req.Verb)
		_, err := w.Write(crlfBytes)
		return err

	case VerbStats:
		for _, arg := range req.Keys {
			if err := ValidateKey(arg); err != nil {
				return err
			}
		}
		w.WriteString(req.Verb)
		for _, arg := range req.Keys {
			w.WriteByte(' ')
			w.WriteString(arg)
		}
		_, err := w.Write(crlfBytes)
		return err
	}

	return fmt.Errorf("memcache: unsupported verb %q", req.Verb)
}

func writeNoReply(w *bufio.Writer, noReply bool) {
	if noReply {
		w.WriteString(" noreply")
	}
}
