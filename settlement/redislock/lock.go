package redislock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fleetgrid/lib-settlement/settlement/log"
	"github.com/fleetgrid/lib-settlement/settlement/orchestration"
)

const maxLockTries = 1000

// Sentinel errors for lock configuration and usage.
var (
	ErrNilClient              = errors.New("redislock: redis client is required")
	ErrNilLockFn              = errors.New("redislock: lock function is nil")
	ErrEmptyLockKey           = errors.New("redislock: lock key cannot be empty")
	ErrLockExpiryInvalid      = errors.New("redislock: lock expiry must be greater than 0")
	ErrLockTriesInvalid       = errors.New("redislock: lock tries must be between 1 and 1000")
	ErrLockRetryDelayNegative = errors.New("redislock: lock retry delay cannot be negative")
)

// Options configures lock behavior.
type Options struct {
	// Expiry is how long the lock is held before auto-expiring. Must exceed
	// the longest settlement the deployment expects; an expired lock during
	// execution re-opens the double-spend window the lock exists to close.
	Expiry time.Duration
	// Tries is the number of acquisition attempts before giving up.
	Tries int
	// RetryDelay is the delay between acquisition attempts.
	RetryDelay time.Duration
}

// DefaultOptions returns defaults sized for settlements dominated by one
// card-rail call.
func DefaultOptions() Options {
	return Options{
		Expiry:     90 * time.Second,
		Tries:      3,
		RetryDelay: 500 * time.Millisecond,
	}
}

func (o Options) validate() error {
	if o.Expiry <= 0 {
		return ErrLockExpiryInvalid
	}

	if o.Tries < 1 || o.Tries > maxLockTries {
		return ErrLockTriesInvalid
	}

	if o.RetryDelay < 0 {
		return ErrLockRetryDelayNegative
	}

	return nil
}

// Manager is a RedLock-based orchestration.Locker.
type Manager struct {
	redsync *redsync.Redsync
	opts    Options
	logger  log.Logger
}

var _ orchestration.Locker = (*Manager)(nil)

// NewManager creates a lock manager over the given redis client.
func NewManager(client redislib.UniversalClient, opts Options, logger log.Logger) (*Manager, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.NewNop()
	}

	return &Manager{
		redsync: redsync.New(goredis.NewPool(client)),
		opts:    opts,
		logger:  logger,
	}, nil
}

// WithLock executes fn while holding the distributed lock for key. The lock
// is released when fn returns, even on panic.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilLockFn
	}

	if strings.TrimSpace(key) == "" {
		return ErrEmptyLockKey
	}

	mutex := m.redsync.NewMutex(
		key,
		redsync.WithExpiry(m.opts.Expiry),
		redsync.WithTries(m.opts.Tries),
		redsync.WithRetryDelay(m.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		m.logger.Log(ctx, log.LevelWarn, "failed to acquire settlement lock",
			log.String("lock_key", key), log.Err(err))

		return fmt.Errorf("redislock: acquire %s: %w", key, err)
	}

	defer func() {
		if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
			m.logger.Log(ctx, log.LevelError, "failed to release settlement lock",
				log.String("lock_key", key), log.Bool("unlock_ok", ok), log.Err(err))
		}
	}()

	return fn(ctx)
}
