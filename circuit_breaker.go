package memcache

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker quarantines the server after repeated failures: while open,
// calls fail fast with gobreaker.ErrOpenState instead of redialing a
// dead server on every request.
type Breaker = gobreaker.CircuitBreaker[struct{}]

// DeadRetry is how long DefaultCircuitBreaker keeps the server
// quarantined before probing it again.
const DeadRetry = 30 * time.Second

// DefaultCircuitBreaker builds the breaker used when the Config does not
// provide one. It trips after three consecutive failures and retries
// after DeadRetry. Typed cache results (miss, not-stored, cas conflict)
// and input rejections count as successes; only transport and protocol
// failures trip it.
func DefaultCircuitBreaker(addr string) *Breaker {
	settings := gobreaker.Settings{
		Name:    addr,
		Timeout: DeadRetry,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: resumableError,
	}
	return gobreaker.NewCircuitBreaker[struct{}](settings)
}

// NewCircuitBreakerConfig returns a breaker factory for Config with
// explicit settings, for callers tuning the quarantine behavior.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *Breaker {
	return func(addr string) *Breaker {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: resumableError,
		}
		return gobreaker.NewCircuitBreaker[struct{}](settings)
	}
}

// NoCircuitBreaker disables quarantining when set as
// Config.NewCircuitBreaker.
func NoCircuitBreaker(addr string) *Breaker {
	return nil
}
