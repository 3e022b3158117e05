package rct

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Baumus/rctgolib/registry"
	"github.com/rs/zerolog"
)

// Environment variables recognized as overrides for zero Config fields.
const (
	EnvDialTimeout       = "DIAL_TIMEOUT"       // milliseconds
	EnvMaxRetries        = "MAX_RETRIES"        // attempts per job
	EnvInitialBackoff    = "INITIAL_BACKOFF"    // milliseconds
	EnvBackoffMultiplier = "BACKOFF_MULTIPLIER" // factor applied after each failed attempt
)

// Built-in defaults, used when neither Config nor environment provides a
// value.
const (
	DefaultDialTimeout       = 5 * time.Second
	DefaultReceiveTimeout    = 2 * time.Second
	DefaultIdleTimeout       = 90 * time.Second
	DefaultMaxRetries        = 10
	DefaultInitialBackoff    = 100 * time.Millisecond
	DefaultBackoffMultiplier = 2.0
	DefaultCacheTTL          = 30 * time.Second
	DefaultCacheMaxSize      = 128
)

// Config holds per-connection settings. The zero value is usable: zero
// fields are filled from the environment where recognized, then from the
// defaults above.
type Config struct {
	// DialTimeout bounds the TCP connect.
	DialTimeout time.Duration

	// ReceiveTimeout bounds the wait for a matching response after a
	// request was written.
	ReceiveTimeout time.Duration

	// IdleTimeout closes the connection after this long without jobs.
	IdleTimeout time.Duration

	// MaxRetries is the total attempt budget per job for recoverable
	// failures. InitialBackoff is slept after the first failure and
	// multiplied by BackoffMultiplier after each further one.
	MaxRetries        int
	InitialBackoff    time.Duration
	BackoffMultiplier float64

	// CacheTTL and CacheMaxSize bound the response cache.
	CacheTTL     time.Duration
	CacheMaxSize int

	// Catalog is the register table consulted for readiness checks and by
	// the typed query helpers. Defaults to registry.Default().
	Catalog *registry.Catalog

	// ReadinessRegister is read before every write; a non-zero value fails
	// the write with DeviceNotReadyError. Defaults to the battery status
	// register. SkipReadinessCheck disables the pre-check entirely.
	ReadinessRegister  uint32
	SkipReadinessCheck bool

	// Logger receives debug/warn events (unsolicited frames, resyncs,
	// retries, idle closes). Nil disables logging.
	Logger *zerolog.Logger

	// Dialer is used to establish the TCP transport. If nil, a default
	// net.Dialer is used.
	Dialer *net.Dialer

	// NewCircuitBreaker, when set, is called once per connection and the
	// returned breaker wraps every wire job.
	NewCircuitBreaker func(addr string) CircuitBreaker
}

// DefaultConfig returns the effective defaults after environment
// overrides.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = envMillis(EnvDialTimeout, DefaultDialTimeout)
	}
	if c.ReceiveTimeout == 0 {
		c.ReceiveTimeout = DefaultReceiveTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = envInt(EnvMaxRetries, DefaultMaxRetries)
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = envMillis(EnvInitialBackoff, DefaultInitialBackoff)
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = envFloat(EnvBackoffMultiplier, DefaultBackoffMultiplier)
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.CacheMaxSize == 0 {
		c.CacheMaxSize = DefaultCacheMaxSize
	}
	if c.Catalog == nil {
		c.Catalog = registry.Default()
	}
	if c.ReadinessRegister == 0 {
		c.ReadinessRegister = registry.IDBatteryStatus
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	return c
}

func envMillis(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(name string, def float64) float64 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}
