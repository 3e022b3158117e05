package rct

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps wire jobs on a connection. After repeated terminal
// failures the breaker opens and jobs fail fast without touching the
// device.
type CircuitBreaker interface {
	Execute(fn func() (any, error)) (any, error)
	State() string
}

// NewCircuitBreakerConfig returns a Config.NewCircuitBreaker factory
// backed by gobreaker. This is a helper for common use cases.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return &breaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
	}
}

type breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

func (b *breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

func (b *breaker) State() string {
	return b.cb.State().String()
}
