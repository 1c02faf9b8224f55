package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/honeynil/storefront-api/internal/infrastructure/observability"
	"github.com/honeynil/storefront-api/internal/infrastructure/redis"
	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	"go.uber.org/zap"
)

// CachedUserRepository keeps principal records (including the active flag)
// in Redis in front of another UserRepository. Password hashes never reach
// the cache.
type CachedUserRepository struct {
	repository.UserRepository
	cache  redis.RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedUserRepository(inner repository.UserRepository, cache redis.RedisClient, ttl time.Duration, logger *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{UserRepository: inner, cache: cache, ttl: ttl, logger: logger}
}

func PrincipalKey(id int32) string {
	return fmt.Sprintf("user:%d:principal", id)
}

func (r *CachedUserRepository) FindByID(ctx context.Context, id int32, proj repository.Projection) (*models.User, error) {
	if proj.Includes(repository.FieldPasswordHash) {
		return r.UserRepository.FindByID(ctx, id, proj)
	}

	key := PrincipalKey(id)
	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var user models.User
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			observability.PrincipalCache.WithLabelValues("hit").Inc()
			return project(&user, proj), nil
		}
		r.logger.Warn("corrupt principal cache entry", zap.String("key", key))
		observability.PrincipalCache.WithLabelValues("error").Inc()
	case stderrors.Is(err, redis.ErrKeyNotFound):
		observability.PrincipalCache.WithLabelValues("miss").Inc()
	default:
		r.logger.Warn("principal cache unavailable", zap.String("key", key), zap.Error(err))
		observability.PrincipalCache.WithLabelValues("error").Inc()
	}

	user, err := r.UserRepository.FindByID(ctx, id, repository.WithHidden(repository.FieldActive))
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(user); err == nil {
		if err := r.cache.Set(ctx, key, string(data), r.ttl); err != nil {
			r.logger.Warn("failed to cache principal", zap.Int32("user_id", id), zap.Error(err))
		}
	}
	return project(user, proj), nil
}

func (r *CachedUserRepository) Upsert(ctx context.Context, user *models.User) error {
	if err := r.UserRepository.Upsert(ctx, user); err != nil {
		return err
	}
	r.Invalidate(ctx, user.ID)
	return nil
}

func (r *CachedUserRepository) SetActive(ctx context.Context, id int32, active bool) error {
	if err := r.UserRepository.SetActive(ctx, id, active); err != nil {
		return err
	}
	r.Invalidate(ctx, id)
	return nil
}

func (r *CachedUserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) (int32, error) {
	id, err := r.UserRepository.UpdatePassword(ctx, email, passwordHash)
	if err != nil {
		return 0, err
	}
	r.Invalidate(ctx, id)
	return id, nil
}

// Invalidate drops the cached principal. Failures are logged only; the entry
// expires with its TTL anyway.
func (r *CachedUserRepository) Invalidate(ctx context.Context, id int32) {
	if err := r.cache.Del(ctx, PrincipalKey(id)); err != nil {
		r.logger.Warn("failed to invalidate principal", zap.Int32("user_id", id), zap.Error(err))
		return
	}
	r.logger.Debug("principal invalidated", zap.Int32("user_id", id))
}

func project(user *models.User, proj repository.Projection) *models.User {
	if !proj.Includes(repository.FieldActive) {
		user.Active = nil
	}
	return user
}
