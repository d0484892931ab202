package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// ProvinceCohortCache кэширует состав когорт провинции, чтобы симулятор
// выборов не перечитывал его из Postgres на каждый расчет.
//
//go:generate mockery --name ProvinceCohortCache --output ./mocks --outpkg mocks --case=underscore
type ProvinceCohortCache interface {
	// GetCohortIDs возвращает закэшированный список ID когорт провинции
	// или models.ErrNotFound при промахе.
	GetCohortIDs(ctx context.Context, sessionID uuid.UUID, provinceID string) ([]uuid.UUID, error)

	// SetCohortIDs сохраняет список с TTL.
	SetCohortIDs(ctx context.Context, sessionID uuid.UUID, provinceID string, ids []uuid.UUID) error

	// Invalidate сбрасывает кэш провинции (миграция меняет состав).
	Invalidate(ctx context.Context, sessionID uuid.UUID, provinceID string) error
}

// Compile-time check to ensure redisProvinceCohortCache implements the interface
var _ ProvinceCohortCache = (*redisProvinceCohortCache)(nil)

type redisProvinceCohortCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisProvinceCohortCache creates a new Redis-backed cache.
func NewRedisProvinceCohortCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) ProvinceCohortCache {
	return &redisProvinceCohortCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisProvinceCache"),
	}
}

func provinceCacheKey(sessionID uuid.UUID, provinceID string) string {
	return fmt.Sprintf("province_cohorts:%s:%s", sessionID.String(), provinceID)
}

func (c *redisProvinceCohortCache) GetCohortIDs(ctx context.Context, sessionID uuid.UUID, provinceID string) ([]uuid.UUID, error) {
	key := provinceCacheKey(sessionID, provinceID)
	raw, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		c.logger.Warn("Failed to read province cohort cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read province cohort cache: %w", err)
	}
	if len(raw) == 0 {
		return nil, models.ErrNotFound
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			// Битый кэш выбрасываем, не возвращаем мусор
			c.logger.Warn("Corrupt province cohort cache entry, invalidating", zap.String("key", key), zap.Error(err))
			_ = c.client.Del(ctx, key).Err()
			return nil, models.ErrNotFound
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *redisProvinceCohortCache) SetCohortIDs(ctx context.Context, sessionID uuid.UUID, provinceID string, ids []uuid.UUID) error {
	key := provinceCacheKey(sessionID, provinceID)
	vals := make([]interface{}, len(ids))
	for i, id := range ids {
		vals[i] = id.String()
	}

	// Pipeline: замена списка и TTL одним обменом
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	if len(vals) > 0 {
		pipe.RPush(ctx, key, vals...)
	}
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Failed to write province cohort cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write province cohort cache: %w", err)
	}
	return nil
}

func (c *redisProvinceCohortCache) Invalidate(ctx context.Context, sessionID uuid.UUID, provinceID string) error {
	key := provinceCacheKey(sessionID, provinceID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate province cohort cache: %w", err)
	}
	return nil
}
