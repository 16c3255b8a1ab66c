package memcache

import (
	"net"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
)

func deadAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()
	return addr
}

func TestCircuitBreakerQuarantinesDeadServer(t *testing.T) {
	dialer := &spyDialer{}
	client := New(deadAddr(t), Config{
		ConnectTimeout: 100 * time.Millisecond,
		DialContext:    dialer.DialContext,
	})
	defer client.Close()
	ctx := testContext(t)

	// Three consecutive dial failures trip the breaker.
	for i := 0; i < 3; i++ {
		_, err := client.Get(ctx, "key")
		require.Error(t, err)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	require.EqualValues(t, 3, dialer.dials.Load())

	// While open, calls fail fast without touching the network.
	_, err := client.Get(ctx, "key")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.EqualValues(t, 3, dialer.dials.Load())
}

func TestCircuitBreakerIgnoresCacheResults(t *testing.T) {
	client, _ := newTestClient(t, Config{})
	ctx := testContext(t)

	// Misses, not-stored and conflicts are normal cache behavior and
	// must never trip the breaker.
	for i := 0; i < 10; i++ {
		err := client.Delete(ctx, "absent", WithNoReply(false))
		require.ErrorIs(t, err, ErrCacheMiss)
	}

	item, err := client.Get(ctx, "still-works")
	require.NoError(t, err)
	require.False(t, item.Found)
}

func TestCircuitBreakerIgnoresInputErrors(t *testing.T) {
	client := New(deadAddr(t), Config{ConnectTimeout: 100 * time.Millisecond})
	defer client.Close()
	ctx := testContext(t)

	// Input rejections never reach the breaker.
	for i := 0; i < 10; i++ {
		_, err := client.Get(ctx, "bad key")
		require.ErrorIs(t, err, ErrMalformedKey)
	}

	// The breaker is still closed: the next real call goes to the
	// network and fails there, not fast.
	_, err := client.Get(ctx, "key")
	require.Error(t, err)
	require.NotErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNoCircuitBreaker(t *testing.T) {
	dialer := &spyDialer{}
	client := New(deadAddr(t), Config{
		ConnectTimeout:    100 * time.Millisecond,
		DialContext:       dialer.DialContext,
		NewCircuitBreaker: NoCircuitBreaker,
	})
	defer client.Close()
	ctx := testContext(t)

	// Without a breaker every call redials, however often it fails.
	for i := 0; i < 5; i++ {
		_, err := client.Get(ctx, "key")
		require.Error(t, err)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	require.EqualValues(t, 5, dialer.dials.Load())
}

func TestNewCircuitBreakerConfig(t *testing.T) {
	factory := NewCircuitBreakerConfig(1, time.Minute, time.Minute)
	breaker := factory("localhost:11211")
	require.NotNil(t, breaker)
	require.Equal(t, "localhost:11211", breaker.Name())
}
