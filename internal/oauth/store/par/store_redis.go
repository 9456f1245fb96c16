package par

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

const keyPrefix = "authgate:par:"

// RedisPARStore persists pushed requests in Redis with GETDEL consumption.
type RedisPARStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed PAR store.
func NewRedis(client redis.UniversalClient) *RedisPARStore {
	return &RedisPARStore{client: client}
}

func (s *RedisPARStore) Store(ctx context.Context, req models.AuthorizationRequest, ttl time.Duration) (string, error) {
	requestURI := RequestURIPrefix + uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal pushed request: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+requestURI, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("store pushed request: %w", err)
	}
	return requestURI, nil
}

func (s *RedisPARStore) Consume(ctx context.Context, requestURI string) (*models.AuthorizationRequest, error) {
	payload, err := s.client.GetDel(ctx, keyPrefix+requestURI).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("request_uri not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("consume pushed request: %w", err)
	}
	var req models.AuthorizationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("unmarshal pushed request: %w", err)
	}
	return &req, nil
}
