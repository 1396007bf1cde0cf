package synclock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisLocker backs the per-host sync lock with SET NX so the lock holds
// across multiple API instances.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisLocker{client: redis.NewClient(opts)}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, "synclock:"+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// only delete our own lock; an expired lock may belong to someone else
		releaseScript.Run(context.Background(), l.client, []string{"synclock:" + key}, token)
	}
	return release, nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

var _ Locker = (*RedisLocker)(nil)
