package memcache_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cachetext/memcache"
)

// Example demonstrates basic cache usage against a local memcached.
func Example_basic() {
	client := memcache.New("localhost:11211", memcache.Config{})
	defer client.Close()

	ctx := context.Background()

	err := client.Set(ctx, memcache.Item{Key: "key1", Value: "value1", TTL: time.Hour})
	if err != nil {
		log.Printf("Set failed: %v", err)
		return
	}

	item, err := client.Get(ctx, "key1")
	if err != nil {
		log.Printf("Get failed: %v", err)
		return
	}
	if item.Found {
		fmt.Printf("Got value: %s\n", item.Value)
	}
}

// Example_compareAndSwap demonstrates optimistic concurrency with
// Gets and CompareAndSwap.
func Example_compareAndSwap() {
	client := memcache.New("localhost:11211", memcache.Config{})
	defer client.Close()

	ctx := context.Background()

	item, err := client.Gets(ctx, "visits")
	if err != nil || !item.Found {
		return
	}

	item.Value = "updated"
	err = client.CompareAndSwap(ctx, item)
	if err == memcache.ErrCASConflict {
		log.Print("someone else updated it first, retry")
	}
}

// Example_batch demonstrates fetching many keys in one round trip.
func Example_batch() {
	client := memcache.New("localhost:11211", memcache.Config{})
	defer client.Close()

	ctx := context.Background()

	items, err := client.GetMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		log.Printf("GetMany failed: %v", err)
		return
	}
	for key, item := range items {
		fmt.Printf("%s = %s\n", key, item.Value)
	}
}

// Example_missOnFailure demonstrates treating a broken cache as empty,
// for callers that always have a fallback data source.
func Example_missOnFailure() {
	client := memcache.New("localhost:11211", memcache.Config{
		MissOnFailure: true,
	})
	defer client.Close()

	item, _ := client.Get(context.Background(), "profile:42")
	if !item.Found {
		// Load from the database and repopulate the cache.
		return
	}
	fmt.Printf("cached: %s\n", item.Value)
}
