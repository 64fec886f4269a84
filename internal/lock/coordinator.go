// Package lock provides a TTL based mutual exclusion primitive shared by every
// service instance through a key-value store.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const keyPrefix = "lock:"

// Defaults used when a call site does not override them.
const (
	DefaultTTL        = 30 * time.Second
	DefaultRetries    = 1
	DefaultRetryDelay = 200 * time.Millisecond
)

// Sentinel values returned by RemainingTTL.
const (
	TTLKeyMissing int64 = -1
	TTLNoExpiry   int64 = -2
)

var (
	// ErrNotAcquired is returned when the lock is held by someone else after all attempts.
	ErrNotAcquired = errors.New("lock not acquired")

	// ErrOperationPanicked wraps a panic recovered from an operation run under the lock.
	ErrOperationPanicked = errors.New("operation panicked")
)

// Store is the atomic key-value primitive the coordinator is built on.
// PTTL follows Redis semantics: -2 when the key is absent, -1 when it has no expiry.
type Store interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) (int64, error)
	PTTL(ctx context.Context, key string) (time.Duration, error)
}

// Config holds the process-wide lock defaults.
type Config struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

type options struct {
	ttl            time.Duration
	retries        int
	retryDelay     time.Duration
	failureMessage string
}

// Option overrides a default for a single call.
type Option func(*options)

// WithTTL sets how long the lock is honoured before it self-expires.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithRetries sets the total number of acquisition attempts.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithRetryDelay sets the fixed pause between acquisition attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithFailureMessage sets the message reported when the lock cannot be acquired.
func WithFailureMessage(msg string) Option {
	return func(o *options) { o.failureMessage = msg }
}

// Coordinator serializes work per key across processes.
type Coordinator struct {
	store    Store
	defaults options
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewCoordinator creates a Coordinator. Zero config values fall back to the package defaults.
func NewCoordinator(store Store, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		store: store,
		defaults: options{
			ttl:        cfg.TTL,
			retries:    cfg.Retries,
			retryDelay: cfg.RetryDelay,
		},
		logger: logger.With("component", "lock"),
		sleep:  sleepContext,
	}
}

func (c *Coordinator) options(opts []Option) options {
	o := c.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.retries < 1 {
		o.retries = 1
	}
	return o
}

// Acquire tries to create the lock key, up to the configured number of attempts,
// pausing a fixed delay between attempts. It reports whether the lock is now held.
func (c *Coordinator) Acquire(ctx context.Context, key string, opts ...Option) (bool, error) {
	return c.acquire(ctx, key, c.options(opts))
}

func (c *Coordinator) acquire(ctx context.Context, key string, o options) (bool, error) {
	lockKey := keyPrefix + key
	value := strconv.FormatInt(time.Now().UnixMilli(), 10)

	for attempt := 1; attempt <= o.retries; attempt++ {
		ok, err := c.store.SetNX(ctx, lockKey, value, o.ttl)
		if err != nil {
			return false, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			c.logger.Debug("lock acquired", "key", key, "attempt", attempt)
			return true, nil
		}

		if attempt < o.retries {
			if err := c.sleep(ctx, o.retryDelay); err != nil {
				return false, err
			}
		}
	}

	c.logger.Debug("lock busy", "key", key, "attempts", o.retries)
	return false, nil
}

// Release deletes the lock key and reports whether a key was actually removed.
// Ownership is not checked: any caller may release any key.
func (c *Coordinator) Release(ctx context.Context, key string) (bool, error) {
	n, err := c.store.Del(ctx, keyPrefix+key)
	if err != nil {
		return false, fmt.Errorf("release lock %s: %w", key, err)
	}

	released := n == 1
	c.logger.Debug("lock release", "key", key, "released", released)
	return released, nil
}

// RemainingTTL returns the remaining lifetime of the lock in milliseconds,
// TTLKeyMissing when it is not held, or TTLNoExpiry when it never expires.
func (c *Coordinator) RemainingTTL(ctx context.Context, key string) (int64, error) {
	ttl, err := c.store.PTTL(ctx, keyPrefix+key)
	if err != nil {
		return 0, fmt.Errorf("lock ttl %s: %w", key, err)
	}

	switch ttl {
	case -2:
		return TTLKeyMissing, nil
	case -1:
		return TTLNoExpiry, nil
	}
	return ttl.Milliseconds(), nil
}

// Result is the outcome of ExecuteWithLock.
type Result[T any] struct {
	Success bool
	Value   T
	Message string
	Err     error
}

// ExecuteWithLock runs op while holding the lock for key.
//
// If the lock cannot be acquired op is not run. Otherwise the lock is released
// on every exit path, and an error or panic from op is turned into a failed Result.
func ExecuteWithLock[T any](ctx context.Context, c *Coordinator, key string, op func(ctx context.Context) (T, error), opts ...Option) (res Result[T]) {
	o := c.options(opts)

	acquired, err := c.acquire(ctx, key, o)
	if err != nil {
		c.logger.Error("lock acquisition error", "key", key, "error", err)
		return Result[T]{Message: failureMessage(o, key), Err: err}
	}
	if !acquired {
		c.logger.Warn("failed to acquire lock", "key", key)
		return Result[T]{Message: failureMessage(o, key), Err: ErrNotAcquired}
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("operation panicked under lock", "key", key, "panic", r)
			res = Result[T]{
				Message: fmt.Sprint(r),
				Err:     fmt.Errorf("%w: %v", ErrOperationPanicked, r),
			}
		}

		// The caller's context may already be done; the key must still go.
		if _, err := c.Release(context.WithoutCancel(ctx), key); err != nil {
			c.logger.Error("failed to release lock", "key", key, "error", err)
		}
	}()

	value, err := op(ctx)
	if err != nil {
		c.logger.Debug("operation failed under lock", "key", key, "error", err)
		return Result[T]{Message: err.Error(), Err: err}
	}

	return Result[T]{Success: true, Value: value}
}

func failureMessage(o options, key string) string {
	if o.failureMessage != "" {
		return o.failureMessage
	}
	return "Failed to acquire lock for key: " + key
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
