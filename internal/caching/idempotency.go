package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IdempotencyRecord is what is stored under an Idempotency-Key. A record
// with Pending set belongs to a request that has not finished yet.
type IdempotencyRecord struct {
	Fingerprint string `json:"fingerprint"`
	Pending     bool   `json:"pending"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type IdempotencyStore interface {
	// Reserve claims key for fingerprint. When the key is already taken it
	// returns the existing record and false.
	Reserve(ctx context.Context, tenantID, userID uuid.UUID, key, fingerprint string, ttl time.Duration) (*IdempotencyRecord, bool, error)
	Save(ctx context.Context, tenantID, userID uuid.UUID, key string, record *IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, tenantID, userID uuid.UUID, key string) error
}

type redisIdempotencyStore struct {
	client redis.Cmdable
}

func NewIdempotencyStore(client redis.Cmdable) IdempotencyStore {
	return &redisIdempotencyStore{client: client}
}

func idempotencyKey(tenantID, userID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:idem:%s:%s:%s", keyPrefix, tenantID, userID, key)
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, tenantID, userID uuid.UUID, key, fingerprint string, ttl time.Duration) (*IdempotencyRecord, bool, error) {
	redisKey := idempotencyKey(tenantID, userID, key)
	pending, err := json.Marshal(IdempotencyRecord{Fingerprint: fingerprint, Pending: true})
	if err != nil {
		return nil, false, err
	}

	ok, err := s.client.SetNX(ctx, redisKey, pending, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, true, nil
	}

	data, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = s.client.SetNX(ctx, redisKey, pending, ttl).Result()
		return nil, ok, err
	}
	if err != nil {
		return nil, false, err
	}

	var existing IdempotencyRecord
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (s *redisIdempotencyStore) Save(ctx context.Context, tenantID, userID uuid.UUID, key string, record *IdempotencyRecord, ttl time.Duration) error {
	record.Pending = false
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyKey(tenantID, userID, key), data, ttl).Err()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, tenantID, userID uuid.UUID, key string) error {
	return s.client.Del(ctx, idempotencyKey(tenantID, userID, key)).Err()
}
