package skyfetch

import (
	"net/http"
	"sync"
	"time"
)

// PooledConn is a reusable per-host transport handle. The active count keeps
// the sweep from evicting a handle bound to a fetch in progress.
type PooledConn struct {
	host     string
	client   *http.Client
	lastUsed time.Time
	active   int
}

// Client returns the underlying HTTP client for the handle's host.
func (pc *PooledConn) Client() *http.Client {
	return pc.client
}

// ConnectionPool keeps one transport handle per host, created lazily on first
// use and closed by a periodic sweep once idle longer than the timeout.
type ConnectionPool struct {
	mu    sync.Mutex
	conns map[string]*PooledConn

	idleTimeout   time.Duration
	sweepInterval time.Duration
	newClient     func() *http.Client

	stop     chan struct{}
	stopOnce sync.Once
	logger   Logger
}

// NewConnectionPool creates a pool and starts its background idle sweep.
func NewConnectionPool(idleTimeout, sweepInterval time.Duration, logger Logger) *ConnectionPool {
	p := &ConnectionPool{
		conns:         make(map[string]*PooledConn),
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		newClient:     defaultPoolClient,
		stop:          make(chan struct{}),
		logger:        logger,
	}
	go p.run()
	return p
}

func defaultPoolClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Acquire returns the pooled handle for host, creating one if absent, and
// marks it active so the sweep leaves it alone. Pair with Release.
func (p *ConnectionPool) Acquire(host string) *PooledConn {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, exists := p.conns[host]
	if !exists {
		conn = &PooledConn{
			host:   host,
			client: p.newClient(),
		}
		p.conns[host] = conn

		if p.logger != nil {
			p.logger.Debug("pooled connection created", "host", host)
		}
	}

	conn.active++
	conn.lastUsed = time.Now()
	return conn
}

// Release marks the handle inactive after a fetch completes.
func (p *ConnectionPool) Release(conn *PooledConn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn.active > 0 {
		conn.active--
	}
	conn.lastUsed = time.Now()
}

// Len returns the number of pooled hosts.
func (p *ConnectionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *ConnectionPool) run() {
	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			p.sweepIdle(now)
		case <-p.stop:
			return
		}
	}
}

// sweepIdle closes and removes handles unused longer than the idle timeout.
// Handles with an active fetch are never evicted.
func (p *ConnectionPool) sweepIdle(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for host, conn := range p.conns {
		if conn.active > 0 {
			continue
		}
		if now.Sub(conn.lastUsed) <= p.idleTimeout {
			continue
		}

		conn.client.CloseIdleConnections()
		delete(p.conns, host)

		if p.logger != nil {
			p.logger.Debug("idle pooled connection closed", "host", host)
		}
	}
}

// Close stops the sweep and releases every idle handle.
func (p *ConnectionPool) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	for host, conn := range p.conns {
		if conn.active > 0 {
			continue
		}
		conn.client.CloseIdleConnections()
		delete(p.conns, host)
	}
}
