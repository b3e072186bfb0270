package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/exograph/exo-core/dialect"
	dialectsql "github.com/exograph/exo-core/dialect/sql"
)

// Dialer builds one fresh connection. Both Direct and Pooled modes use the
// same Dialer; Direct just calls it on every checkout instead of reusing an
// idle connection.
type Dialer func(ctx context.Context) (dialect.Driver, error)

// Status is the connection manager's observable state.
type Status struct {
	MaxSize   int
	Size      int
	Available int
	Waiting   int
}

type pooledConn struct {
	driver    dialect.Driver
	createdAt time.Time
}

// Pool is the DatabaseClientManager. Use New to construct one; the zero
// value is not usable.
type Pool struct {
	mode   Mode
	dialer Dialer
	cfg    Config
	logger *slog.Logger

	sem *semaphore.Weighted

	mu      sync.Mutex
	idle    []*pooledConn
	size    int
	waiting atomic.Int64
	closed  bool
}

// New builds a Pool in mode, dialing new connections via dialer. logger may
// be nil, in which case slog.Default() is used.
func New(mode Mode, dialer Dialer, cfg Config, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{mode: mode, dialer: dialer, cfg: cfg, logger: logger}
	if mode == Pooled {
		p.sem = semaphore.NewWeighted(int64(cfg.MaxSize))
	}
	return p
}

// Conn is a checked-out connection. Callers must call Release exactly once,
// passing the error (if any) that occurred while using it so the pool can
// decide whether the connection is still good.
type Conn struct {
	driver    dialect.Driver
	pool      *Pool
	createdAt time.Time
}

// Driver returns the underlying connection.
func (c *Conn) Driver() dialect.Driver { return c.driver }

// QueryStats returns the connection's accumulated query statistics, if its
// Dialer wired one up (see NewPostgresDialer, which uses
// dialectsql.OpenWithStats rather than dialectsql.Open).
func (c *Conn) QueryStats() (*dialectsql.QueryStats, bool) {
	sd, ok := c.driver.(*dialectsql.StatsDriver)
	if !ok {
		return nil, false
	}
	return sd.QueryStats(), true
}

// Release returns c to the pool (Pooled mode) or closes it outright
// (Direct mode). usageErr, if non-nil, marks the connection as bad so it is
// discarded rather than recycled.
func (c *Conn) Release(usageErr error) {
	c.pool.release(c, usageErr)
}

// Checkout obtains a connection, validating and recycling as configured.
// In Direct mode it simply dials a fresh connection bounded by
// Config.CreateTimeout. In Pooled mode it first waits (bounded by
// Config.WaitTimeout) for a slot under Config.MaxSize, then either reuses a
// validated idle connection or dials a new one (bounded by
// Config.CreateTimeout).
func (p *Pool) Checkout(ctx context.Context) (*Conn, error) {
	if p.mode == Direct {
		drv, err := p.dial(ctx)
		if err != nil {
			return nil, fmt.Errorf("pool: direct checkout: %w", err)
		}
		return &Conn{driver: drv, pool: p, createdAt: time.Now()}, nil
	}

	p.waiting.Add(1)
	defer p.waiting.Add(-1)

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.WaitTimeout)
	defer cancel()
	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		return nil, fmt.Errorf("pool: waiting for a connection slot: %w", err)
	}

	conn, err := p.acquireOrDial(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	return conn, nil
}

// acquireOrDial pops a validated, unexpired idle connection if one exists,
// otherwise dials a new one. Either way it counts against p.size until
// released.
func (p *Pool) acquireOrDial(ctx context.Context) (*Conn, error) {
	for {
		pc := p.popIdle()
		if pc == nil {
			break
		}
		if p.expired(pc) {
			p.logger.Warn("pool: recycling connection past max lifetime", "age", time.Since(pc.createdAt))
			_ = pc.driver.Close()
			p.mu.Lock()
			p.size--
			p.mu.Unlock()
			continue
		}
		if err := p.validate(ctx, pc.driver); err != nil {
			p.logger.Warn("pool: discarding connection that failed validation", "error", err)
			_ = pc.driver.Close()
			p.mu.Lock()
			p.size--
			p.mu.Unlock()
			continue
		}
		return &Conn{driver: pc.driver, pool: p, createdAt: pc.createdAt}, nil
	}

	drv, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("pool: dialing new connection: %w", err)
	}
	p.mu.Lock()
	p.size++
	p.mu.Unlock()
	return &Conn{driver: drv, pool: p, createdAt: time.Now()}, nil
}

func (p *Pool) popIdle() *pooledConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	pc := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return pc
}

func (p *Pool) dial(ctx context.Context) (dialect.Driver, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.CreateTimeout)
	defer cancel()
	return p.dialer(dialCtx)
}

// validate runs a trivial liveness probe — a no-result Exec — bounded by
// Config.RecycleTimeout, so a broken idle connection is detected before
// handing it back to a caller rather than surfacing mid-query.
func (p *Pool) validate(ctx context.Context, drv dialect.Driver) error {
	validateCtx, cancel := context.WithTimeout(ctx, p.cfg.RecycleTimeout)
	defer cancel()
	return drv.Exec(validateCtx, "SELECT 1", []any{}, nil)
}

func (p *Pool) expired(pc *pooledConn) bool {
	return p.cfg.MaxLifetime > 0 && time.Since(pc.createdAt) > p.cfg.MaxLifetime
}

func (p *Pool) release(c *Conn, usageErr error) {
	if p.mode == Direct {
		_ = c.driver.Close()
		return
	}
	defer p.sem.Release(1)

	bad := usageErr != nil || p.expired(&pooledConn{createdAt: c.createdAt})
	p.mu.Lock()
	if bad || p.closed {
		p.size--
		p.mu.Unlock()
		_ = c.driver.Close()
		return
	}
	p.idle = append(p.idle, &pooledConn{driver: c.driver, createdAt: c.createdAt})
	p.mu.Unlock()
}

// Status reports the pool's current occupancy. The invariant
// available <= size <= max_size always holds for Pooled mode; Direct mode
// reports size=0 (nothing is ever held idle).
func (p *Pool) Status() Status {
	if p.mode == Direct {
		return Status{MaxSize: 0, Size: 0, Available: 0, Waiting: 0}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		MaxSize:   p.cfg.MaxSize,
		Size:      p.size,
		Available: len(p.idle),
		Waiting:   int(p.waiting.Load()),
	}
}

// Close closes every idle connection and marks the pool closed; connections
// still checked out are closed as they're released.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var firstErr error
	for _, pc := range idle {
		if err := pc.driver.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
