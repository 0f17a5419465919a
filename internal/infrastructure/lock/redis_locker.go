package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockTimeout is returned when a tenant lock could not be acquired in time
var ErrLockTimeout = errors.New("tenant lock wait timed out")

// releaseScript deletes the key only if it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if it still holds the caller's token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLockerConfig holds RedisLocker settings
type RedisLockerConfig struct {
	KeyPrefix     string
	TTL           time.Duration // lease length, renewed every TTL/3 while held
	WaitTimeout   time.Duration // upper bound on waiting for the lease
	RetryInterval time.Duration
}

// RedisLocker is a distributed per-tenant lock. Callers in the same process
// queue on a local KeyedMutex first so only one of them polls Redis. The
// holder keeps the lease alive until it releases, so a long merge does not
// lose the lock to another replica.
type RedisLocker struct {
	client *redis.Client
	local  *KeyedMutex
	cfg    RedisLockerConfig
}

// NewRedisLocker creates a RedisLocker on an existing client
func NewRedisLocker(client *redis.Client, cfg RedisLockerConfig) *RedisLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "identity:lock:tenant:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 25 * time.Millisecond
	}
	return &RedisLocker{client: client, local: NewKeyedMutex(), cfg: cfg}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Lock acquires the tenant lease, waiting at most WaitTimeout
func (l *RedisLocker) Lock(ctx context.Context, tenantID uuid.UUID) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.WaitTimeout)
	defer cancel()

	unlockLocal, err := l.local.Lock(ctx, tenantID)
	if err != nil {
		return nil, l.waitError(ctx, tenantID, err)
	}

	key := l.cfg.KeyPrefix + tenantID.String()
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			unlockLocal()
			return nil, fmt.Errorf("acquire tenant lock: %w", err)
		}
		if ok {
			return l.releaser(key, token, unlockLocal), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			unlockLocal()
			return nil, l.waitError(ctx, tenantID, ctx.Err())
		}
	}
}

func (l *RedisLocker) releaser(key, token string, unlockLocal func()) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			defer unlockLocal()
			close(stop)
			<-done

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				logger.L(ctx).Warn("Failed to release tenant lock; lease will expire",
					zap.String("key", key), zap.Error(err))
			}
		})
	}
}

// keepAlive renews the lease until stop is closed or the lease is lost
func (l *RedisLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	every := max(l.cfg.TTL/3, time.Millisecond)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), every)
		renewed, err := renewScript.Run(ctx, l.client, []string{key}, token, l.cfg.TTL.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			logger.L(ctx).Warn("Failed to renew tenant lock", zap.String("key", key), zap.Error(err))
		case renewed == 0:
			logger.L(ctx).Error("Tenant lock lease lost", zap.String("key", key))
			return
		}
	}
}

func (l *RedisLocker) waitError(ctx context.Context, tenantID uuid.UUID, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: tenant %s", ErrLockTimeout, tenantID)
	}
	return err
}
