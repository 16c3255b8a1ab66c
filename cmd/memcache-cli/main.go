package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cachetext/memcache"
)

func main() {
	addr := flag.String("addr", "localhost:11211", "memcache server address")
	flag.Parse()

	fmt.Println("Memcache CLI Tool")
	fmt.Println("================")
	fmt.Printf("Server: %s\n", *addr)
	fmt.Println("Commands: get <key>, gets <key>, set <key> <value> [ttl], incr/decr <key> <delta>, delete <key>, touch <key> <ttl>, multi-get <key1> <key2> ..., stats, flush, ping, quit")
	fmt.Println()

	client := memcache.New(*addr, memcache.Config{})
	defer client.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := strings.ToLower(parts[0])
		ctx := context.Background()

		switch command {
		case "get", "gets":
			if len(parts) != 2 {
				fmt.Printf("Usage: %s <key>\n", command)
				continue
			}
			handleGet(ctx, client, command, parts[1])

		case "set":
			if len(parts) < 3 || len(parts) > 4 {
				fmt.Println("Usage: set <key> <value> [ttl_seconds]")
				continue
			}
			ttl := time.Duration(0)
			if len(parts) == 4 {
				ttlSecs, err := strconv.Atoi(parts[3])
				if err != nil {
					fmt.Printf("Invalid TTL: %v\n", err)
					continue
				}
				ttl = time.Duration(ttlSecs) * time.Second
			}
			handleSet(ctx, client, parts[1], parts[2], ttl)

		case "incr", "decr":
			if len(parts) != 3 {
				fmt.Printf("Usage: %s <key> <delta>\n", command)
				continue
			}
			delta, err := strconv.ParseUint(parts[2], 10, 64)
			if err != nil {
				fmt.Printf("Invalid delta: %v\n", err)
				continue
			}
			handleArithmetic(ctx, client, command, parts[1], delta)

		case "delete", "del":
			if len(parts) != 2 {
				fmt.Println("Usage: delete <key>")
				continue
			}
			handleDelete(ctx, client, parts[1])

		case "touch":
			if len(parts) != 3 {
				fmt.Println("Usage: touch <key> <ttl_seconds>")
				continue
			}
			ttlSecs, err := strconv.Atoi(parts[2])
			if err != nil {
				fmt.Printf("Invalid TTL: %v\n", err)
				continue
			}
			handleTouch(ctx, client, parts[1], time.Duration(ttlSecs)*time.Second)

		case "multi-get", "mget":
			if len(parts) < 2 {
				fmt.Println("Usage: multi-get <key1> <key2> ...")
				continue
			}
			handleMultiGet(ctx, client, parts[1:])

		case "stats":
			handleStats(ctx, client, parts[1:])

		case "flush":
			handleFlush(ctx, client)

		case "ping":
			handlePing(ctx, client)

		case "help":
			fmt.Println("Commands:")
			fmt.Println("  get <key>                 - Get a value by key")
			fmt.Println("  gets <key>                - Get a value with its CAS token")
			fmt.Println("  set <key> <value> [ttl]   - Set a key-value pair with optional TTL")
			fmt.Println("  incr <key> <delta>        - Increment a counter")
			fmt.Println("  decr <key> <delta>        - Decrement a counter")
			fmt.Println("  delete <key>              - Delete a key")
			fmt.Println("  touch <key> <ttl>         - Update a key's expiration")
			fmt.Println("  multi-get <key1> <key2>   - Get multiple keys at once")
			fmt.Println("  stats [subsystem]         - Show server statistics")
			fmt.Println("  flush                     - Invalidate every item on the server")
			fmt.Println("  ping                      - Ping the server")
			fmt.Println("  quit                      - Exit the CLI")

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", command)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading input: %v\n", err)
	}
}

func handleGet(ctx context.Context, client *memcache.Client, verb, key string) {
	start := time.Now()
	var item memcache.Item
	var err error
	if verb == "gets" {
		item, err = client.Gets(ctx, key)
	} else {
		item, err = client.Get(ctx, key)
	}
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	if !item.Found {
		fmt.Printf("Key not found (took %v)\n", duration)
		return
	}

	fmt.Printf("Value: %s (took %v)\n", item.Value, duration)
	if item.Flags != 0 {
		fmt.Printf("Flags: %d\n", item.Flags)
	}
	if verb == "gets" {
		fmt.Printf("CAS: %d\n", item.CAS)
	}
}

func handleSet(ctx context.Context, client *memcache.Client, key, value string, ttl time.Duration) {
	start := time.Now()
	err := client.Set(ctx, memcache.Item{Key: key, Value: value, TTL: ttl})
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Stored successfully (took %v)\n", duration)
}

func handleArithmetic(ctx context.Context, client *memcache.Client, verb, key string, delta uint64) {
	start := time.Now()
	var value uint64
	var err error
	if verb == "incr" {
		value, err = client.Increment(ctx, key, delta)
	} else {
		value, err = client.Decrement(ctx, key, delta)
	}
	duration := time.Since(start)

	if errors.Is(err, memcache.ErrCacheMiss) {
		fmt.Printf("Key not found (took %v)\n", duration)
		return
	}
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("New value: %d (took %v)\n", value, duration)
}

func handleDelete(ctx context.Context, client *memcache.Client, key string) {
	start := time.Now()
	err := client.Delete(ctx, key, memcache.WithNoReply(false))
	duration := time.Since(start)

	if errors.Is(err, memcache.ErrCacheMiss) {
		fmt.Printf("Key not found (took %v)\n", duration)
		return
	}
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Delete successful (took %v)\n", duration)
}

func handleTouch(ctx context.Context, client *memcache.Client, key string, ttl time.Duration) {
	start := time.Now()
	err := client.Touch(ctx, key, ttl, memcache.WithNoReply(false))
	duration := time.Since(start)

	if errors.Is(err, memcache.ErrCacheMiss) {
		fmt.Printf("Key not found (took %v)\n", duration)
		return
	}
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Touch successful (took %v)\n", duration)
}

func handleMultiGet(ctx context.Context, client *memcache.Client, keys []string) {
	start := time.Now()
	items, err := client.GetMany(ctx, keys)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}

	for _, key := range keys {
		if item, ok := items[key]; ok {
			fmt.Printf("  %s: %s\n", key, item.Value)
		} else {
			fmt.Printf("  %s: <not found>\n", key)
		}
	}
	fmt.Printf("Retrieved %d out of %d keys (took %v)\n", len(items), len(keys), duration)
}

func handleStats(ctx context.Context, client *memcache.Client, args []string) {
	stats, err := client.ServerStats(ctx, args...)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Server Statistics:")
	for _, name := range names {
		fmt.Printf("  %s: %s\n", name, stats[name])
	}
}

func handleFlush(ctx context.Context, client *memcache.Client) {
	start := time.Now()
	err := client.FlushAll(ctx, 0, memcache.WithNoReply(false))
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Flush successful (took %v)\n", duration)
}

func handlePing(ctx context.Context, client *memcache.Client) {
	start := time.Now()
	err := client.Ping(ctx)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Ping failed: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Ping successful (took %v)\n", duration)
}
