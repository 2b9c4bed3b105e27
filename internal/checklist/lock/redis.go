package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"visadesk/pkg/platform/sentinel"
)

// leaseTTL bounds how long a crashed worker can hold a lock. Generation is
// bounded by its own context timeout well below this.
const leaseTTL = 5 * time.Minute

// releaseScript deletes the lease only when the caller still owns it, so a
// slow worker cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements Locker with a SET NX PX lease for multi-instance
// deployments.
type Redis struct {
	client  redis.Cmdable
	timeout time.Duration
}

// NewRedis builds a Redis-backed locker with the given acquisition timeout.
func NewRedis(client redis.Cmdable, timeout time.Duration) *Redis {
	return &Redis{client: client, timeout: timeout}
}

func lockKey(applicationID string) string {
	return "visadesk:genlock:" + applicationID
}

func (l *Redis) Acquire(ctx context.Context, applicationID string) (ReleaseFunc, error) {
	key := lockKey(applicationID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.timeout)

	for {
		ok, err := l.client.SetNX(ctx, key, token, leaseTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire generation lock: %w: %w", sentinel.ErrUnavailable, err)
		}
		if ok {
			return func(releaseCtx context.Context) {
				_, _ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Result()
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("generation lock for %s: %w", applicationID, sentinel.ErrLockHeld)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
