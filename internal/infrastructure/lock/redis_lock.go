package lock

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
)

// releaseScript deletes the key only while it still holds our token, so a
// holder whose TTL lapsed cannot free a lock taken over by another instance.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCycleLock serializes sync cycles across instances sharing one Redis.
type RedisCycleLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

func NewRedisCycleLock(client redis.UniversalClient, keyPrefix string, ttl time.Duration, logger *logging.Logger) *RedisCycleLock {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	key := "sync:cycle-lock"
	if keyPrefix != "" {
		key = keyPrefix + ":" + key
	}
	return &RedisCycleLock{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.Named("cycle-lock"),
	}
}

func (l *RedisCycleLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, crerr.Wrap(err, "acquire redis cycle lock")
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err(); err != nil {
			l.logger.WarnContext(releaseCtx, "release redis cycle lock failed", "key", l.key, "error", err)
		}
	}
	return release, true, nil
}
