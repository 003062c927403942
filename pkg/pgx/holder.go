package pgx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PoolConfig describes the single pool a Holder owns.
type PoolConfig struct {
	Config         *pgxpool.Config // Takes precedence over ConnString
	ConnString     string          // Used if Config is nil
	MaxConns       int32
	ConnectTimeout time.Duration // bounds the retries of Connect, defaults to 10 seconds
}

var ErrNoConnString = errors.New("either Config or ConnString must be provided")

// Holder lazily creates and then keeps one process-wide *pgxpool.Pool.
// Concurrent first callers share one creation attempt, so they never create
// two pools and never queue behind each other. A failed creation leaves the
// Holder empty and the next caller tries again.
type Holder struct {
	cfg    PoolConfig
	pool   *pgxpool.Pool
	logger *zap.Logger
	mu     sync.Mutex // guards pool
	group  singleflight.Group
}

// NewHolder returns a Holder for cfg. No connection is made until the first call to Pool.
func NewHolder(cfg PoolConfig, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{cfg: cfg, logger: logger}
}

// Pool returns the shared pool, creating it on first use. Creation pings the
// database once, so an unreachable database fails fast.
func (h *Holder) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	return h.get(ctx, false)
}

// Connect is Pool with startup retries: the ping is retried with exponential
// backoff until it succeeds or ConnectTimeout elapses.
func (h *Holder) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return h.get(ctx, true)
}

func (h *Holder) current() *pgxpool.Pool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool
}

func (h *Holder) get(ctx context.Context, retry bool) (*pgxpool.Pool, error) {
	if pool := h.current(); pool != nil {
		return pool, nil
	}

	key := "pool"
	if retry {
		key = "connect"
	}

	v, err, _ := h.group.Do(key, func() (any, error) {
		if pool := h.current(); pool != nil {
			return pool, nil
		}
		pool, err := h.createPool(ctx, retry)
		if err != nil {
			return nil, err
		}
		return h.store(pool), nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgx: %w", err)
	}
	return v.(*pgxpool.Pool), nil
}

// store keeps pool unless another creation won the race, in which case pool
// is closed and the winner returned.
func (h *Holder) store(pool *pgxpool.Pool) *pgxpool.Pool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pool != nil {
		pool.Close()
		return h.pool
	}
	h.pool = pool
	return pool
}

// Conn implements ConnSource.
func (h *Holder) Conn(ctx context.Context) (Conn, error) {
	pool, err := h.Pool(ctx)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Close closes the pool if it was created.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pool != nil {
		h.pool.Close()
		h.pool = nil
	}
}

func (h *Holder) poolConfig() (*pgxpool.Config, error) {
	switch {
	case h.cfg.Config != nil:
		return h.cfg.Config, nil
	case h.cfg.ConnString != "":
		cfg, err := pgxpool.ParseConfig(h.cfg.ConnString)
		if err != nil {
			return nil, fmt.Errorf("parse conn string: %w", err)
		}
		if h.cfg.MaxConns > 0 {
			cfg.MaxConns = h.cfg.MaxConns
		}
		return cfg, nil
	default:
		return nil, ErrNoConnString
	}
}

func (h *Holder) createPool(ctx context.Context, retry bool) (*pgxpool.Pool, error) {
	cfg, err := h.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if retry {
		timeout := h.cfg.ConnectTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 200 * time.Millisecond
		eb.MaxElapsedTime = timeout
		b = eb
	}

	attempt := 0
	ping := func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			h.logger.Warn("database ping failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping connection: %w", err)
	}

	h.logger.Info("database pool ready",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns))
	return pool, nil
}
