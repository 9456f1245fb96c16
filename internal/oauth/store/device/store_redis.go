package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

const (
	deviceKeyPrefix   = "authgate:device:"
	userCodeKeyPrefix = "authgate:usercode:"
)

// RedisDeviceStore persists device authorizations in Redis. Poll runs a
// WATCH transaction over the device key so concurrent polls observe a
// consistent validate-advance-consume step; redis.TxFailedErr surfaces as
// not-found to the losing racer, matching the single-use contract.
type RedisDeviceStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed device store.
func NewRedis(client redis.UniversalClient) *RedisDeviceStore {
	return &RedisDeviceStore{client: client}
}

func (s *RedisDeviceStore) Create(ctx context.Context, rec *models.DeviceAuthorizationRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal device record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, deviceKeyPrefix+rec.DeviceCode, payload, ttl)
	pipe.Set(ctx, userCodeKeyPrefix+rec.UserCode, rec.DeviceCode, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store device record: %w", err)
	}
	return nil
}

func (s *RedisDeviceStore) FindByUserCode(ctx context.Context, userCode string) (*models.DeviceAuthorizationRecord, error) {
	deviceCode, err := s.client.Get(ctx, userCodeKeyPrefix+userCode).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("user code not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user code: %w", err)
	}
	return s.find(ctx, deviceCode)
}

func (s *RedisDeviceStore) find(ctx context.Context, deviceCode string) (*models.DeviceAuthorizationRecord, error) {
	payload, err := s.client.Get(ctx, deviceKeyPrefix+deviceCode).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("device authorization not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find device record: %w", err)
	}
	var rec models.DeviceAuthorizationRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal device record: %w", err)
	}
	return &rec, nil
}

func (s *RedisDeviceStore) Update(ctx context.Context, rec *models.DeviceAuthorizationRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal device record: %w", err)
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("device authorization not found: %w", sentinel.ErrNotFound)
	}
	if err := s.client.Set(ctx, deviceKeyPrefix+rec.DeviceCode, payload, ttl).Err(); err != nil {
		return fmt.Errorf("update device record: %w", err)
	}
	return nil
}

func (s *RedisDeviceStore) Poll(ctx context.Context, deviceCode string, now time.Time) (*models.DeviceAuthorizationRecord, error) {
	key := deviceKeyPrefix + deviceCode
	var out *models.DeviceAuthorizationRecord
	var pollErr error

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("device authorization not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("find device record: %w", err)
		}
		var rec models.DeviceAuthorizationRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return fmt.Errorf("unmarshal device record: %w", err)
		}
		if err := rec.ValidateForPoll(now); err != nil {
			rec.AdvancePollGate(now)
			pollErr = fmt.Errorf("device poll: %w", err)
			updated, merr := json.Marshal(&rec)
			if merr != nil {
				return fmt.Errorf("marshal device record: %w", merr)
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.Del(ctx, userCodeKeyPrefix+rec.UserCode)
			return nil
		})
		if err == nil {
			out = &rec
		}
		return err
	}

	if err := s.client.Watch(ctx, txn, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("device authorization not found: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	if pollErr != nil {
		return nil, pollErr
	}
	return out, nil
}
