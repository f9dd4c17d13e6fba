package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fireproof/internal/models"
)

const keyPrefix = "fireproof"

type CacheService interface {
	// Barcode lookups
	GetExtinguisherByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*models.Extinguisher, error)
	SetExtinguisherByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string, extinguisher *models.Extinguisher, ttl time.Duration) error
	DeleteExtinguisherByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) error

	// Effective permissions per user
	GetUserPermissions(ctx context.Context, tenantID, userID uuid.UUID) ([]string, bool, error)
	SetUserPermissions(ctx context.Context, tenantID, userID uuid.UUID, permissions []string, ttl time.Duration) error
	DeleteUserPermissions(ctx context.Context, tenantID, userID uuid.UUID) error

	// Dashboard caching
	GetDashboardStats(ctx context.Context, tenantID uuid.UUID) (*models.DashboardStats, error)
	SetDashboardStats(ctx context.Context, tenantID uuid.UUID, stats *models.DashboardStats, ttl time.Duration) error
	DeleteDashboardStats(ctx context.Context, tenantID uuid.UUID) error

	// Cache invalidation
	InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error

	// Refresh token sessions, keyed by the token's SHA-256
	SetRefreshSession(ctx context.Context, tokenHash string, session *models.RefreshSession, ttl time.Duration) error
	GetRefreshSession(ctx context.Context, tokenHash string) (*models.RefreshSession, error)
	DeleteRefreshSession(ctx context.Context, tokenHash string) error

	// Access token revocation
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	ResetRateLimit(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client redis.Cmdable
}

// NewRedisClient builds a client from a host:port or redis:// address.
func NewRedisClient(addr, password string, db int) *redis.Client {
	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			logrus.WithError(err).Warn("Invalid Redis URL, using it as an address")
		} else {
			opts = parsed
			if password != "" {
				opts.Password = password
			}
			if db != 0 {
				opts.DB = db
			}
		}
	}

	client := redis.NewClient(opts)

	// Test initial connectivity
	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		logrus.WithError(pingErr).WithField("addr", opts.Addr).Warn("Redis ping failed on initialization")
	} else {
		logrus.WithField("addr", opts.Addr).Debug("Redis connection established")
	}
	return client
}

func NewRedisCacheService(client redis.Cmdable) CacheService {
	return &redisCacheService{client: client}
}

func barcodeKey(tenantID uuid.UUID, barcode string) string {
	return fmt.Sprintf("%s:barcode:%s:%s", keyPrefix, tenantID, barcode)
}

func permissionsKey(tenantID, userID uuid.UUID) string {
	return fmt.Sprintf("%s:perms:%s:%s", keyPrefix, tenantID, userID)
}

func dashboardKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:dashboard:%s:stats", keyPrefix, tenantID)
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) GetExtinguisherByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*models.Extinguisher, error) {
	var extinguisher models.Extinguisher
	found, err := r.getJSON(ctx, barcodeKey(tenantID, barcode), &extinguisher)
	if err != nil || !found {
		return nil, err
	}
	return &extinguisher, nil
}

func (r *redisCacheService) SetExtinguisherByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string, extinguisher *models.Extinguisher, ttl time.Duration) error {
	return r.setJSON(ctx, barcodeKey(tenantID, barcode), extinguisher, ttl)
}

func (r *redisCacheService) DeleteExtinguisherByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) error {
	return r.client.Del(ctx, barcodeKey(tenantID, barcode)).Err()
}

func (r *redisCacheService) GetUserPermissions(ctx context.Context, tenantID, userID uuid.UUID) ([]string, bool, error) {
	var permissions []string
	found, err := r.getJSON(ctx, permissionsKey(tenantID, userID), &permissions)
	return permissions, found, err
}

func (r *redisCacheService) SetUserPermissions(ctx context.Context, tenantID, userID uuid.UUID, permissions []string, ttl time.Duration) error {
	if permissions == nil {
		permissions = []string{}
	}
	return r.setJSON(ctx, permissionsKey(tenantID, userID), permissions, ttl)
}

func (r *redisCacheService) DeleteUserPermissions(ctx context.Context, tenantID, userID uuid.UUID) error {
	return r.client.Del(ctx, permissionsKey(tenantID, userID)).Err()
}

func (r *redisCacheService) GetDashboardStats(ctx context.Context, tenantID uuid.UUID) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	found, err := r.getJSON(ctx, dashboardKey(tenantID), &stats)
	if err != nil || !found {
		return nil, err
	}
	return &stats, nil
}

func (r *redisCacheService) SetDashboardStats(ctx context.Context, tenantID uuid.UUID, stats *models.DashboardStats, ttl time.Duration) error {
	return r.setJSON(ctx, dashboardKey(tenantID), stats, ttl)
}

func (r *redisCacheService) DeleteDashboardStats(ctx context.Context, tenantID uuid.UUID) error {
	return r.client.Del(ctx, dashboardKey(tenantID)).Err()
}

// InvalidateTenantCache drops every cached entry scoped to the tenant.
func (r *redisCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	pattern := fmt.Sprintf("%s:*:%s:*", keyPrefix, tenantID)
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCacheService) SetRefreshSession(ctx context.Context, tokenHash string, session *models.RefreshSession, ttl time.Duration) error {
	return r.setJSON(ctx, fmt.Sprintf("%s:refresh:%s", keyPrefix, tokenHash), session, ttl)
}

func (r *redisCacheService) GetRefreshSession(ctx context.Context, tokenHash string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	found, err := r.getJSON(ctx, fmt.Sprintf("%s:refresh:%s", keyPrefix, tokenHash), &session)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

func (r *redisCacheService) DeleteRefreshSession(ctx context.Context, tokenHash string) error {
	return r.client.Del(ctx, fmt.Sprintf("%s:refresh:%s", keyPrefix, tokenHash)).Err()
}

func (r *redisCacheService) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, fmt.Sprintf("%s:blacklist:%s", keyPrefix, tokenID), "1", ttl).Err()
}

func (r *redisCacheService) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, fmt.Sprintf("%s:blacklist:%s", keyPrefix, tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) ResetRateLimit(ctx context.Context, key string) error {
	return r.client.Del(ctx, fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
