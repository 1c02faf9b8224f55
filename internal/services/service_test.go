package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/honeynil/storefront-api/internal/infrastructure/redis"
	"github.com/honeynil/storefront-api/internal/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAccountEvent(ctx context.Context, event models.AccountEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fakeIssuer struct {
	token string
	err   error
	ttl   time.Duration
}

func (f *fakeIssuer) Issue(userID int32) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.token, time.Now().Add(f.ttl), nil
}

func (f *fakeIssuer) TTL() time.Duration { return f.ttl }

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func boolPtr(b bool) *bool { return &b }

var errBoom = errors.New("boom")
