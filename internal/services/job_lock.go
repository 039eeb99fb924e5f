package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrJobRunning is returned when another process holds the job's lock.
var ErrJobRunning = errors.New("job already running")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// JobLock keeps a sweep to one runner across API replicas.
type JobLock struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewJobLock(rdb *redis.Client, ttl time.Duration) *JobLock {
	return &JobLock{Redis: rdb, TTL: ttl}
}

// Acquire takes the lock for job and returns its release func. A nil
// JobLock always succeeds.
func (l *JobLock) Acquire(ctx context.Context, job string) (func(), error) {
	if l == nil || l.Redis == nil {
		return func() {}, nil
	}

	key := "lock:job:" + job
	token := uuid.NewString()
	ok, err := l.Redis.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobRunning
	}

	return func() {
		_ = unlockScript.Run(context.Background(), l.Redis, []string{key}, token).Err()
	}, nil
}
