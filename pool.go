package rct

import (
	"sync"
	"time"
)

type poolKey struct {
	host string
	port int
}

// Pool hands out at most one live Connection per (host, port). Lookups
// reuse the existing connection while it is usable and construct a fresh
// one after it closed. There is no hidden package-level pool: construct
// one with NewPool and tear it down with Shutdown.
type Pool struct {
	cfg Config

	mu     sync.Mutex
	conns  map[poolKey]*Connection
	closed bool
}

// NewPool creates a pool whose connections share cfg. Per-key cache
// parameters are supplied on Get.
func NewPool(cfg Config) *Pool {
	return &Pool{
		cfg:   cfg.withDefaults(),
		conns: make(map[poolKey]*Connection),
	}
}

// Get returns the live connection for (host, port), constructing and
// registering one if none is usable. The cache parameters only apply when
// a new connection is built.
func (p *Pool) Get(host string, port int, cacheTTL time.Duration, cacheMax int) (*Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	key := poolKey{host: host, port: port}
	if c, ok := p.conns[key]; ok && !c.IsClosed() {
		return c, nil
	}

	cfg := p.cfg
	if cacheTTL > 0 {
		cfg.CacheTTL = cacheTTL
	}
	if cacheMax > 0 {
		cfg.CacheMaxSize = cacheMax
	}
	c := NewConnection(host, port, cfg)
	c.pool = p
	p.conns[key] = c
	return c, nil
}

// Shutdown closes every pooled connection and refuses further lookups.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	conns := make([]*Connection, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.conns = nil
	p.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// remove drops c from the registry. Called by the connection as part of
// its shutdown.
func (p *Pool) remove(c *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns == nil {
		return
	}
	key := poolKey{host: c.host, port: c.port}
	if p.conns[key] == c {
		delete(p.conns, key)
	}
}
