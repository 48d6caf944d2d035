package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Pool is a fixed-size set of live connections to one database. Every
// connection is opened when the pool is built.
type Pool struct {
	pool *pgxpool.Pool
	size int32
	cfg  Config
}

// New creates the pool and opens all of its connections. An unreachable
// database fails with PoolError{ErrConnectFailed}; there is no retry.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = DefaultPoolSize
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, &PoolError{Kind: ErrConnectFailed, Database: cfg.Database, Err: err}
	}
	poolConfig.MaxConns = size
	poolConfig.MinConns = size
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &PoolError{Kind: ErrConnectFailed, Database: cfg.Database, Err: err}
	}

	if err := warm(ctx, pool, size); err != nil {
		pool.Close()
		return nil, &PoolError{Kind: ErrConnectFailed, Database: cfg.Database, Err: err}
	}

	log.Infof("Database connection pool created successfully (%s, %d connections)", cfg, size)
	return &Pool{pool: pool, size: size, cfg: cfg}, nil
}

// warm checks out size connections at once, forcing each to be dialed, then
// hands them all back.
func warm(ctx context.Context, pool *pgxpool.Pool, size int32) error {
	conns := make([]*pgxpool.Conn, 0, size)
	defer func() {
		for _, c := range conns {
			c.Release()
		}
	}()

	for i := int32(0); i < size; i++ {
		c, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, c)
	}
	return nil
}

// Acquire returns an exclusive connection, blocking while all of them are in
// use. The wait ends with the context.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, &PoolError{Kind: ErrExhaustedOrUnreachable, Database: p.cfg.Database, Err: err}
	}
	return conn, nil
}

// Release returns conn to the idle set. Safe to call with nil.
func (p *Pool) Release(conn *pgxpool.Conn) {
	if conn != nil {
		conn.Release()
	}
}

// WithConn runs fn on an acquired connection and releases it on every path.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Size is the fixed number of connections.
func (p *Pool) Size() int32 {
	return p.size
}

// Stat exposes pgxpool counters (acquired, idle, total).
func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

// Close closes every connection. Acquired connections are closed on release.
func (p *Pool) Close() {
	p.pool.Close()
	log.Info("Database connection pool closed.")
}
