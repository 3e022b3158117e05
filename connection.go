package rct

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/Baumus/rctgolib/internal/coarsetime"
	"github.com/Baumus/rctgolib/protocol"
	"github.com/rs/zerolog"
)

// Connection talks to one device at (host, port). The transport is dialed
// lazily on first use, kept alive until Close, the idle timer, or a fatal
// transport error, and redialed transparently by the retry policy after
// transient failures.
//
// The protocol is half-duplex with purely positional response
// correlation, so the connection serializes all callers: jobs run
// strictly one at a time in FIFO order, and at most one request is on the
// wire at any instant.
type Connection struct {
	host string
	port int
	cfg  Config

	logger  zerolog.Logger
	cache   *Cache
	stats   *connStatsCollector
	breaker CircuitBreaker
	pool    *Pool // nil when constructed directly

	mu           sync.Mutex
	transport    net.Conn
	queue        []*job
	processing   bool
	activeJobs   int
	pendingClose bool
	closed       bool
	waiter       *waiter
	idleTimer    *time.Timer
	lastUsed     time.Time
}

// waiter is the single-shot resolution slot bound to the request in
// flight. The reader loop forwards every decoded datagram and every
// decoder error to it; the awaiting job does the matching.
type waiter struct {
	ch chan waitResult
}

type waitResult struct {
	dg  protocol.Datagram
	err error
}

// NewConnection builds a connection outside any pool. Most callers want
// Pool.Get instead; direct construction is used by tests and one-shot
// tools.
func NewConnection(host string, port int, cfg Config) *Connection {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With().Str("host", host).Int("port", port).Logger()

	c := &Connection{
		host:     host,
		port:     port,
		cfg:      cfg,
		logger:   logger,
		cache:    NewCache(cfg.CacheTTL, cfg.CacheMaxSize),
		stats:    newConnStatsCollector(),
		lastUsed: coarsetime.Now(),
	}
	if cfg.NewCircuitBreaker != nil {
		c.breaker = cfg.NewCircuitBreaker(c.Addr())
	}
	c.idleTimer = time.AfterFunc(cfg.IdleTimeout, c.idleExpire)
	return c
}

// Addr returns the host:port this connection targets.
func (c *Connection) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// IsClosed reports whether the connection has been shut down.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastUsed returns when a job last completed on this connection.
func (c *Connection) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// Stats returns a snapshot of the connection counters.
func (c *Connection) Stats() ConnectionStats {
	return c.stats.snapshot()
}

// Close shuts the connection down and removes it from its pool. If jobs
// are queued or running, the close is deferred until they drain.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.activeJobs > 0 {
		c.pendingClose = true
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	c.shutdown()
	return nil
}

// shutdown tears the connection down unconditionally, failing anything
// still queued. Used by Close once jobs drained and by terminal transport
// errors.
func (c *Connection) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	transport := c.transport
	c.transport = nil
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	orphans := c.queue
	c.queue = nil
	c.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
	for _, j := range orphans {
		j.done <- jobResult{err: ErrConnectionClosed}
	}
	if c.pool != nil {
		c.pool.remove(c)
	}
	c.logger.Debug().Msg("connection closed")
}

// ensureTransport dials the device if no transport is up. Only the job
// worker calls it, so there is never a concurrent dial.
func (c *Connection) ensureTransport(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	if c.transport != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	conn, err := c.cfg.Dialer.DialContext(dialCtx, "tcp", c.Addr())
	if err != nil {
		return &TransportError{Op: "dial", Err: err}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrConnectionClosed
	}
	c.transport = conn
	c.mu.Unlock()

	c.logger.Debug().Msg("transport connected")
	go c.readLoop(conn)
	return nil
}

// send writes one frame. A failed write closes the transport but stays
// recoverable: the retry redials.
func (c *Connection) send(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	conn := c.transport
	c.mu.Unlock()
	if conn == nil {
		return ErrConnectionClosed
	}

	deadline := time.Now().Add(c.cfg.ReceiveTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)

	if _, err := conn.Write(frame); err != nil {
		c.dropTransport(conn)
		return &TransportError{Op: "write", Err: err, Transient: true}
	}
	return nil
}

// await blocks until the reader resolves the waiter with a response for
// id, a recoverable error, or the receive window expires. Responses for
// other commands are unsolicited and skipped; a Response with the wrong
// id fails the attempt, since correlation is positional.
func (c *Connection) await(ctx context.Context, id uint32) (protocol.Datagram, error) {
	w := &waiter{ch: make(chan waitResult, 8)}

	c.mu.Lock()
	if c.waiter != nil {
		// The slot is exclusive; a second receive before the first
		// resolved is a bug in the pipeline.
		c.mu.Unlock()
		return protocol.Datagram{}, errors.New("rct: waiter slot already occupied")
	}
	c.waiter = w
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.waiter = nil
		c.mu.Unlock()
	}()

	timer := time.NewTimer(c.cfg.ReceiveTimeout)
	defer timer.Stop()

	for {
		select {
		case res := <-w.ch:
			if res.err != nil {
				return protocol.Datagram{}, res.err
			}
			if res.dg.Cmd != protocol.CommandResponse {
				c.stats.recordUnsolicited()
				c.logger.Debug().Stringer("datagram", res.dg).Msg("discarding unsolicited frame")
				continue
			}
			if res.dg.ID != id {
				return protocol.Datagram{}, &MismatchError{WantID: id, GotID: res.dg.ID}
			}
			return res.dg, nil
		case <-timer.C:
			c.stats.recordTimeout()
			return protocol.Datagram{}, &ReceiveTimeoutError{ID: id, Timeout: c.cfg.ReceiveTimeout}
		case <-ctx.Done():
			return protocol.Datagram{}, ctx.Err()
		}
	}
}

// readLoop is the single consumer of transport bytes. It appends to its
// buffer and drains as many frames as the buffer allows after each read.
func (c *Connection) readLoop(conn net.Conn) {
	buf := make([]byte, 0, 512)
	scratch := make([]byte, 1024)

	for {
		n, err := conn.Read(scratch)
		if n > 0 {
			buf = append(buf, scratch[:n]...)
			buf = c.drain(buf)
		}
		if err != nil {
			c.readFailed(conn, err)
			return
		}
	}
}

// drain decodes frames off the front of buf until it needs more data,
// returning the unconsumed remainder.
func (c *Connection) drain(buf []byte) []byte {
	for {
		dg, consumed, err := protocol.Decode(buf)
		if err != nil {
			if consumed < 1 {
				consumed = 1
			}
			buf = buf[consumed:]
			c.stats.recordResync()
			c.logger.Warn().Err(err).Int("discarded", consumed).Msg("frame error, resynchronizing")
			c.deliver(waitResult{err: err})
			continue
		}
		buf = buf[consumed:]
		if dg == nil {
			return buf
		}
		c.deliver(waitResult{dg: *dg})
	}
}

// deliver hands a decoded datagram or decoder error to the installed
// waiter. With no request in flight, datagrams are unsolicited and
// dropped.
func (c *Connection) deliver(res waitResult) {
	c.mu.Lock()
	w := c.waiter
	c.mu.Unlock()

	if w == nil {
		if res.err == nil {
			c.stats.recordUnsolicited()
			c.logger.Debug().Stringer("datagram", res.dg).Msg("discarding unsolicited frame")
		}
		return
	}
	select {
	case w.ch <- res:
	default:
		c.logger.Warn().Msg("waiter backlog full, dropping frame")
	}
}

// readFailed handles the reader loop terminating. A deliberate close is
// quiet; anything else drops the transport for lazy redial and fails the
// request in flight recoverably.
func (c *Connection) readFailed(conn net.Conn, err error) {
	deliberate := errors.Is(err, net.ErrClosed)
	c.dropTransport(conn)
	if deliberate {
		return
	}
	c.logger.Warn().Err(err).Msg("transport read failed")
	c.deliver(waitResult{err: &TransportError{Op: "read", Err: err, Transient: true}})
}

// dropTransport closes and forgets conn if it is still the active
// transport. The next job redials.
func (c *Connection) dropTransport(conn net.Conn) {
	c.mu.Lock()
	if c.transport == conn {
		c.transport = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// idleExpire fires when no job completed for the idle window.
func (c *Connection) idleExpire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.activeJobs > 0 {
		c.pendingClose = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.logger.Debug().Dur("idle", c.cfg.IdleTimeout).Msg("closing idle connection")
	c.shutdown()
}

func (c *Connection) resetIdleTimerLocked() {
	if c.closed {
		return
	}
	if c.idleTimer == nil {
		c.idleTimer = time.AfterFunc(c.cfg.IdleTimeout, c.idleExpire)
		return
	}
	c.idleTimer.Reset(c.cfg.IdleTimeout)
}
