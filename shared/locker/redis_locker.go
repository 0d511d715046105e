package locker

import (
	"context"
	"sync"
	"time"

	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Locker = (*RedisLocker)(nil)

var ErrLockNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only if we still own it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLockerConfig configures the distributed lock
type RedisLockerConfig struct {
	Prefix       string        `mapstructure:"prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// RedisLocker is a Locker shared by every coordinator replica. The lock
// expires after TTL so a crashed holder cannot block a saga forever.
type RedisLocker struct {
	client redisClient
	config RedisLockerConfig
}

func NewRedisLocker(client redisClient, config RedisLockerConfig) *RedisLocker {
	if config.TTL <= 0 {
		config.TTL = 30 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 25 * time.Millisecond
	}
	if config.Prefix == "" {
		config.Prefix = "saga-lock:"
	}
	return &RedisLocker{client: client, config: config}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.config.Prefix + key
	token := models.GenerateUUID().String()

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.config.TTL).Result()
		if err != nil {
			return nil, errors.Wrap(err, "failed to acquire redis lock")
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ErrLockNotAcquired, ctx.Err().Error())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// an expired lock is simply not deleted
			_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		})
	}, nil
}
