package memcache

import (
	"context"

	"github.com/cachetext/memcache/text"
)

// fetch issues one get or gets for the whole key list and collects the
// returned entries. All keys are validated before any byte goes out, so
// one bad key fails the call without touching the connection. On a
// failure mid-reply nothing is returned: a partial result would be
// indistinguishable from misses for the remaining keys.
func (c *Client) fetch(ctx context.Context, verb string, keys []string, call callOptions) (map[string]Item, error) {
	c.stats.recordGets(len(keys))

	if len(keys) == 0 {
		return map[string]Item{}, nil
	}
	for _, key := range keys {
		if err := text.ValidateKey(key); err != nil {
			return nil, err
		}
	}

	req := &text.Request{Verb: verb, Keys: keys}
	withCAS := verb == text.VerbGets

	items := make(map[string]Item, len(keys))
	err := c.roundTrip(ctx, func(conn *Connection) error {
		if err := text.WriteRequest(conn.Writer, req); err != nil {
			return err
		}
		if err := conn.Writer.Flush(); err != nil {
			return err
		}
		return text.ReadValues(conn.Reader, withCAS, func(ent text.Entry) error {
			value, err := c.cfg.Deserialize(ent.Key, ent.Data, ent.Flags)
			if err != nil {
				return err
			}
			items[ent.Key] = Item{
				Key:   ent.Key,
				Value: value,
				Flags: ent.Flags,
				CAS:   ent.CAS,
				Found: true,
			}
			return nil
		})
	})
	if err != nil {
		if call.missOnFailure && !inputError(err) {
			return map[string]Item{}, nil
		}
		return nil, err
	}
	c.stats.recordHits(len(items))
	return items, nil
}

// fetchOne wraps fetch for the single-key forms. A miss comes back as an
// Item with Found unset rather than an error.
func (c *Client) fetchOne(ctx context.Context, verb string, key string, opts []Option) (Item, error) {
	items, err := c.fetch(ctx, verb, []string{key}, c.callOptions(verb, opts))
	if err != nil {
		return Item{Key: key}, err
	}
	item, ok := items[key]
	if !ok {
		return Item{Key: key}, nil
	}
	return item, nil
}
