//go:build integration

package purge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"glint/internal/retention/purge"
	"glint/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *purge.RedisLocker
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.locker = purge.NewRedisLocker(s.redis.Client)
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockerSuite) TestAcquireBlocksSecondHolder() {
	ctx := context.Background()

	acquired, err := s.locker.Acquire(ctx, purge.LockKey, "run-1", time.Minute)
	s.Require().NoError(err)
	s.True(acquired)

	acquired, err = s.locker.Acquire(ctx, purge.LockKey, "run-2", time.Minute)
	s.Require().NoError(err)
	s.False(acquired)
}

func (s *RedisLockerSuite) TestReleaseFreesLock() {
	ctx := context.Background()

	acquired, err := s.locker.Acquire(ctx, purge.LockKey, "run-1", time.Minute)
	s.Require().NoError(err)
	s.True(acquired)

	s.Require().NoError(s.locker.Release(ctx, purge.LockKey, "run-1"))

	acquired, err = s.locker.Acquire(ctx, purge.LockKey, "run-2", time.Minute)
	s.Require().NoError(err)
	s.True(acquired)
}

func (s *RedisLockerSuite) TestNonHolderCannotRelease() {
	ctx := context.Background()

	acquired, err := s.locker.Acquire(ctx, purge.LockKey, "run-1", time.Minute)
	s.Require().NoError(err)
	s.True(acquired)

	// A stale or confused process releasing someone else's lock is a no-op.
	s.Require().NoError(s.locker.Release(ctx, purge.LockKey, "run-2"))

	acquired, err = s.locker.Acquire(ctx, purge.LockKey, "run-3", time.Minute)
	s.Require().NoError(err)
	s.False(acquired)
}

func (s *RedisLockerSuite) TestLockExpires() {
	ctx := context.Background()

	acquired, err := s.locker.Acquire(ctx, purge.LockKey, "run-1", 50*time.Millisecond)
	s.Require().NoError(err)
	s.True(acquired)

	time.Sleep(100 * time.Millisecond)

	acquired, err = s.locker.Acquire(ctx, purge.LockKey, "run-2", time.Minute)
	s.Require().NoError(err)
	s.True(acquired)
}
