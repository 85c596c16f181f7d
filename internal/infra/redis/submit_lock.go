package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmitLock serializes submissions of an attempt across instances using
// SET NX with an owner token. The TTL frees locks of crashed holders.
type SubmitLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubmitLock(client *redis.Client, ttl time.Duration) *SubmitLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SubmitLock{client: client, ttl: ttl}
}

func (l *SubmitLock) Acquire(ctx context.Context, attemptID string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(attemptID), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSubmitInProgress
	}
	return func() {
		// best-effort; the TTL covers a failed release
		_ = releaseScript.Run(context.Background(), l.client, []string{l.key(attemptID)}, token).Err()
	}, nil
}

func (l *SubmitLock) key(attemptID string) string {
	return "attempt:" + attemptID + ":submit-lock"
}
