package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cachetext/memcache"
)

type OperationType string

const (
	CacheHit     OperationType = "cache-hit"
	DynamicValue OperationType = "dynamic-value"
	CacheMiss    OperationType = "cache-miss"
	Increment    OperationType = "increment"
	Delete       OperationType = "delete"
	All          OperationType = "all"
)

type BenchmarkResult struct {
	Operation    OperationType
	Duration     time.Duration
	TotalOps     int64
	Successes    int64
	Failures     int64
	AvgLatency   time.Duration
	OpsPerSecond float64
	Correctness  bool
	ErrorMessage string
}

func main() {
	var (
		operation   = flag.String("operation", "all", "Operation type: cache-hit, dynamic-value, cache-miss, increment, delete, or all")
		duration    = flag.Duration("duration", 5*time.Second, "Duration to run benchmarks")
		concurrency = flag.Int("concurrency", 1, "Number of concurrent workers")
		addr        = flag.String("addr", "localhost:11211", "Memcache server address")
	)
	flag.Parse()

	fmt.Printf("Memcache Benchmark Tool\n")
	fmt.Printf("=======================\n")
	fmt.Printf("Operation: %s\n", *operation)
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Server: %s\n", *addr)
	fmt.Println()

	client := memcache.New(*addr, memcache.Config{})
	defer client.Close()

	// Test connection first
	fmt.Print("Testing connection...")
	if err := client.Ping(context.Background()); err != nil {
		fmt.Printf(" failed: %v\n", err)
		fmt.Printf("Make sure memcached is running on %s\n", *addr)
		return
	}
	fmt.Println(" success!")
	fmt.Println()

	if OperationType(*operation) == All {
		runAllOperations(client, *duration, *concurrency)
	} else {
		result := runSingleOperation(client, OperationType(*operation), *duration, *concurrency)
		printResult(result)
	}
}

func runAllOperations(client *memcache.Client, duration time.Duration, concurrency int) {
	operations := []OperationType{CacheHit, DynamicValue, CacheMiss, Increment, Delete}

	for _, op := range operations {
		fmt.Printf("\n--- Running %s benchmark ---\n", op)
		result := runSingleOperation(client, op, duration, concurrency)
		printResult(result)

		// Short pause between operations
		time.Sleep(500 * time.Millisecond)
	}
}

func runSingleOperation(client *memcache.Client, operation OperationType, duration time.Duration, concurrency int) *BenchmarkResult {
	switch operation {
	case CacheHit:
		return runCacheHitBenchmark(client, duration, concurrency)
	case DynamicValue:
		return runDynamicValueBenchmark(client, duration, concurrency)
	case CacheMiss:
		return runCacheMissBenchmark(client, duration, concurrency)
	case Increment:
		return runIncrementBenchmark(client, duration, concurrency)
	case Delete:
		return runDeleteBenchmark(client, duration, concurrency)
	default:
		return &BenchmarkResult{
			Operation:    operation,
			Correctness:  false,
			ErrorMessage: fmt.Sprintf("Unknown operation: %s", operation),
		}
	}
}

// tally accumulates operation counts and latency across workers.
type tally struct {
	totalOps     int64
	successes    int64
	failures     int64
	totalLatency int64
}

func (t *tally) record(latency time.Duration, ok bool) {
	atomic.AddInt64(&t.totalOps, 1)
	atomic.AddInt64(&t.totalLatency, int64(latency))
	if ok {
		atomic.AddInt64(&t.successes, 1)
	} else {
		atomic.AddInt64(&t.failures, 1)
	}
}

func (t *tally) finish(result *BenchmarkResult, elapsed time.Duration) {
	result.Duration = elapsed
	result.TotalOps = t.totalOps
	result.Successes = t.successes
	result.Failures = t.failures
	if t.totalOps > 0 {
		result.AvgLatency = time.Duration(t.totalLatency / t.totalOps)
		result.OpsPerSecond = float64(t.totalOps) / elapsed.Seconds()
	}
}

func runWorkers(concurrency int, duration time.Duration, worker func(workerID int, deadline time.Time)) time.Duration {
	startTime := time.Now()
	deadline := startTime.Add(duration)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			worker(workerID, deadline)
		}(i)
	}
	wg.Wait()

	return time.Since(startTime)
}

// Cache-hit: 1 set then repeated gets of the same key
func runCacheHitBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *BenchmarkResult {
	ctx := context.Background()
	key := "cache-hit-key"
	value := "cache-hit-value"

	if err := client.Set(ctx, memcache.Item{Key: key, Value: value, TTL: time.Hour}); err != nil {
		return &BenchmarkResult{
			Operation:    CacheHit,
			Correctness:  false,
			ErrorMessage: fmt.Sprintf("Failed to set initial value: %v", err),
		}
	}

	result := &BenchmarkResult{Operation: CacheHit, Correctness: true}
	var t tally

	elapsed := runWorkers(concurrency, duration, func(workerID int, deadline time.Time) {
		for time.Now().Before(deadline) {
			opStart := time.Now()
			item, err := client.Get(ctx, key)
			ok := err == nil && item.Found
			t.record(time.Since(opStart), ok)

			if ok && string(item.Value.([]byte)) != value {
				result.Correctness = false
				result.ErrorMessage = "Value mismatch"
			}
		}
	})

	t.finish(result, elapsed)
	return result
}

// Dynamic-value: set then get a fresh key each iteration
func runDynamicValueBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *BenchmarkResult {
	ctx := context.Background()

	result := &BenchmarkResult{Operation: DynamicValue, Correctness: true}
	var t tally

	elapsed := runWorkers(concurrency, duration, func(workerID int, deadline time.Time) {
		opCount := 0
		for time.Now().Before(deadline) {
			key := fmt.Sprintf("dynamic-key-%d-%d", workerID, opCount)
			value := fmt.Sprintf("dynamic-value-%d-%d", workerID, opCount)
			opCount++

			opStart := time.Now()
			err := client.Set(ctx, memcache.Item{Key: key, Value: value, TTL: time.Hour})
			t.record(time.Since(opStart), err == nil)
			if err != nil {
				continue
			}

			opStart = time.Now()
			item, err := client.Get(ctx, key)
			ok := err == nil && item.Found
			t.record(time.Since(opStart), ok)

			if ok && string(item.Value.([]byte)) != value {
				result.Correctness = false
				result.ErrorMessage = "Value mismatch"
			}
		}
	})

	t.finish(result, elapsed)
	return result
}

// Cache-miss: gets of keys that never exist
func runCacheMissBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *BenchmarkResult {
	ctx := context.Background()

	result := &BenchmarkResult{Operation: CacheMiss, Correctness: true}
	var t tally

	elapsed := runWorkers(concurrency, duration, func(workerID int, deadline time.Time) {
		opCount := 0
		for time.Now().Before(deadline) {
			key := fmt.Sprintf("missing-key-%d-%d", workerID, opCount)
			opCount++

			opStart := time.Now()
			item, err := client.Get(ctx, key)
			t.record(time.Since(opStart), err == nil)

			if err == nil && item.Found {
				result.Correctness = false
				result.ErrorMessage = "Unexpected hit on missing key"
			}
		}
	})

	t.finish(result, elapsed)
	return result
}

// Increment: one counter per worker, hammered
func runIncrementBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *BenchmarkResult {
	ctx := context.Background()

	result := &BenchmarkResult{Operation: Increment, Correctness: true}
	var t tally

	elapsed := runWorkers(concurrency, duration, func(workerID int, deadline time.Time) {
		key := fmt.Sprintf("counter-%d", workerID)
		if err := client.Set(ctx, memcache.Item{Key: key, Value: "0", TTL: time.Hour}); err != nil {
			return
		}

		var previous uint64
		for time.Now().Before(deadline) {
			opStart := time.Now()
			value, err := client.Increment(ctx, key, 1)
			t.record(time.Since(opStart), err == nil)

			if err == nil {
				if value <= previous {
					result.Correctness = false
					result.ErrorMessage = "Counter went backwards"
				}
				previous = value
			}
		}
	})

	t.finish(result, elapsed)
	return result
}

// Delete: set then delete a fresh key each iteration
func runDeleteBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *BenchmarkResult {
	ctx := context.Background()

	result := &BenchmarkResult{Operation: Delete, Correctness: true}
	var t tally

	elapsed := runWorkers(concurrency, duration, func(workerID int, deadline time.Time) {
		opCount := 0
		for time.Now().Before(deadline) {
			key := fmt.Sprintf("delete-key-%d-%d", workerID, opCount)
			opCount++

			if err := client.Set(ctx, memcache.Item{Key: key, Value: "x", TTL: time.Hour}); err != nil {
				t.record(0, false)
				continue
			}

			opStart := time.Now()
			err := client.Delete(ctx, key, memcache.WithNoReply(false))
			ok := err == nil || errors.Is(err, memcache.ErrCacheMiss)
			t.record(time.Since(opStart), ok)
		}
	})

	t.finish(result, elapsed)
	return result
}

func printResult(result *BenchmarkResult) {
	fmt.Printf("\nResults for %s:\n", result.Operation)
	fmt.Printf("  Duration:     %v\n", result.Duration)
	fmt.Printf("  Total ops:    %d\n", result.TotalOps)
	fmt.Printf("  Successes:    %d\n", result.Successes)
	fmt.Printf("  Failures:     %d\n", result.Failures)
	fmt.Printf("  Avg latency:  %v\n", result.AvgLatency)
	fmt.Printf("  Ops/second:   %.1f\n", result.OpsPerSecond)
	if result.Correctness {
		fmt.Printf("  Correctness:  OK\n")
	} else {
		fmt.Printf("  Correctness:  FAILED (%s)\n", result.ErrorMessage)
	}
}
