//go:build integration

package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"visadesk/internal/checklist/lock"
	"visadesk/pkg/platform/sentinel"
	"visadesk/pkg/testutil/containers"
)

type RedisLockSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockSuite))
}

func (s *RedisLockSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisLockSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockSuite) TestAcquireAndRelease() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client, 100*time.Millisecond)

	release, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)

	_, err = locker.Acquire(ctx, "app-1")
	s.Require().ErrorIs(err, sentinel.ErrLockHeld)

	release(ctx)

	release2, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)
	release2(ctx)
}

func (s *RedisLockSuite) TestApplicationsDoNotContend() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client, 100*time.Millisecond)

	release1, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)
	defer release1(ctx)

	release2, err := locker.Acquire(ctx, "app-2")
	s.Require().NoError(err)
	release2(ctx)
}

// TestStaleReleaseDoesNotFreeSuccessor verifies the token check in the release
// script: a worker releasing twice must not drop a lock a newer worker holds.
func (s *RedisLockSuite) TestStaleReleaseDoesNotFreeSuccessor() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client, 100*time.Millisecond)

	firstRelease, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)
	firstRelease(ctx)

	secondRelease, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)
	defer secondRelease(ctx)

	// Replayed release from the first worker.
	firstRelease(ctx)

	_, err = locker.Acquire(ctx, "app-1")
	s.Require().ErrorIs(err, sentinel.ErrLockHeld)
}

func (s *RedisLockSuite) TestConcurrentAcquireHasOneWinner() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client, 50*time.Millisecond)

	const goroutines = 20
	var wg sync.WaitGroup
	var winners atomic.Int32
	var lockHeld atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "app-1")
			if err == nil {
				winners.Add(1)
				// Hold past every loser's acquisition deadline.
				time.Sleep(150 * time.Millisecond)
				release(ctx)
				return
			}
			if errors.Is(err, sentinel.ErrLockHeld) {
				lockHeld.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load(), "exactly one acquire should win")
	s.Equal(int32(goroutines-1), lockHeld.Load(), "all others should time out")
}

func (s *RedisLockSuite) TestAcquireWaitsForRelease() {
	ctx := context.Background()
	locker := lock.NewRedis(s.redis.Client, time.Second)

	release, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)

	go func() {
		time.Sleep(80 * time.Millisecond)
		release(ctx)
	}()

	start := time.Now()
	release2, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)
	release2(ctx)
	s.Less(time.Since(start), time.Second)
}

func (s *RedisLockSuite) TestAcquireHonorsContextCancellation() {
	locker := lock.NewRedis(s.redis.Client, time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "app-1")
	s.Require().NoError(err)
	defer release(ctx)

	cancelCtx, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err = locker.Acquire(cancelCtx, "app-1")
	s.Require().ErrorIs(err, context.Canceled)
}
