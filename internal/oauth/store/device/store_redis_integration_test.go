//go:build integration

package device_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"authgate/internal/oauth/models"
	devicestore "authgate/internal/oauth/store/device"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/testutil/containers"
)

type RedisDeviceStoreIntegrationSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *devicestore.RedisDeviceStore
}

func TestRedisDeviceStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisDeviceStoreIntegrationSuite))
}

func (s *RedisDeviceStoreIntegrationSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = devicestore.NewRedis(s.redis.Client)
}

func (s *RedisDeviceStoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func newAuthorizedRecord(now time.Time) *models.DeviceAuthorizationRecord {
	rec := &models.DeviceAuthorizationRecord{
		DeviceCode: "dc_it",
		UserCode:   "BCDF-GHJK",
		ClientID:   "client-a",
		Scopes:     []string{"openid"},
		Status:     models.DeviceStatusPending,
		Interval:   5 * time.Second,
		NextPollAt: now,
		ExpiresAt:  now.Add(10 * time.Minute),
		CreatedAt:  now,
	}
	_ = rec.Approve(models.AuthorizedGrant{
		Session: models.AuthSession{SessionID: "sess-1", Subject: "user-1"},
		Context: models.AuthorizationContext{ClientID: "client-a"},
	})
	return rec
}

// TestConcurrentPoll races polls at one authorized record against a real
// Redis and expects the WATCH transaction to admit a single winner.
func (s *RedisDeviceStoreIntegrationSuite) TestConcurrentPoll() {
	ctx := context.Background()
	now := time.Now()
	s.Require().NoError(s.store.Create(ctx, newAuthorizedRecord(now), 10*time.Minute))

	const pollers = 16
	var wg sync.WaitGroup
	wins := make(chan *models.DeviceAuthorizationRecord, pollers)
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec, err := s.store.Poll(ctx, "dc_it", now); err == nil {
				wins <- rec
			}
		}()
	}
	wg.Wait()
	close(wins)

	s.Require().Len(wins, 1)
	winner := <-wins
	s.Require().NotNil(winner.Grant)
	s.Require().Equal("user-1", winner.Grant.Session.Subject)

	_, err := s.store.Poll(ctx, "dc_it", now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestPendingPollAdvancesGate checks slow-down bookkeeping survives the
// round trip.
func (s *RedisDeviceStoreIntegrationSuite) TestPendingPollAdvancesGate() {
	ctx := context.Background()
	now := time.Now()
	rec := newAuthorizedRecord(now)
	rec.Status = models.DeviceStatusPending
	rec.Grant = nil
	s.Require().NoError(s.store.Create(ctx, rec, 10*time.Minute))

	_, err := s.store.Poll(ctx, "dc_it", now)
	s.Require().Equal(models.ErrAuthorizationPending, models.PollErrorCode(err))

	_, err = s.store.Poll(ctx, "dc_it", now.Add(time.Second))
	s.Require().Equal(models.ErrSlowDown, models.PollErrorCode(err))
}
