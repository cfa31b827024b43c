package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"TrendRadar/internal/logging"
	"TrendRadar/internal/ports"
)

const keyPrefix = "trendradar:lock:"

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis shares locks between processes through SET NX with a TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.Locker = (*Redis)(nil)

// NewRedis wraps a client. The TTL bounds how long a crashed holder blocks others.
func NewRedis(client redis.UniversalClient, ttl time.Duration, log *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Redis{client: client, ttl: ttl, logger: logging.OrDiscard(log).With("component", "redis-lock")}
}

// Dial connects to addr and checks the server answers.
func Dial(ctx context.Context, addr string, ttl time.Duration, log *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedis(client, ttl, log), nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// TryLock sets the key when absent. Errors talking to Redis are returned, not
// treated as a held lock.
func (r *Redis) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, keyPrefix+key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{keyPrefix + key}, token).Err(); err != nil {
				r.logger.Error("release lock failed", "key", key, "error", err)
			}
		})
	}, true, nil
}
