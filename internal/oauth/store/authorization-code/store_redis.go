package authorizationcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

const keyPrefix = "authgate:code:"

// RedisGrantStore persists authorization codes in Redis. Single-use
// consumption rides on GETDEL, which is atomic server-side, and TTL pruning
// is Redis key expiry, so expired and redeemed codes are indistinguishable.
type RedisGrantStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed grant store.
func NewRedis(client redis.UniversalClient) *RedisGrantStore {
	return &RedisGrantStore{client: client}
}

func (s *RedisGrantStore) Store(ctx context.Context, grant models.AuthorizedGrant, ttl time.Duration) (string, error) {
	code := uuid.NewString()
	payload, err := json.Marshal(grant)
	if err != nil {
		return "", fmt.Errorf("marshal grant: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+code, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("store grant: %w", err)
	}
	return code, nil
}

func (s *RedisGrantStore) FetchAndRemove(ctx context.Context, code string) (*models.AuthorizedGrant, error) {
	payload, err := s.client.GetDel(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch grant: %w", err)
	}
	var grant models.AuthorizedGrant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return nil, fmt.Errorf("unmarshal grant: %w", err)
	}
	return &grant, nil
}
