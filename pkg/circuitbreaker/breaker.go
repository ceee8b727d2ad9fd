package circuitbreaker

import (
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

// New returns a circuit breaker tuned for chatty outbound calls: it opens
// after 5 consecutive failures and probes again after the timeout.
func New[T any](name string, timeout time.Duration) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %q: %s -> %s", name, from, to)
		},
	})
}
