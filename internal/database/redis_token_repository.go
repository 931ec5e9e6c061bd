package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"accounts-server/internal/interfaces"
	"accounts-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisTokenRepository implements TokenRepository
var _ interfaces.TokenRepository = (*redisTokenRepository)(nil)

// Key layout:
//   token_key:{key}    -> UserID   (presented-token lookup)
//   user_token:{uid}   -> key      (get-or-create index, one token per user)
// Tokens have no TTL: they live until explicitly revoked.

type redisTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTokenRepository creates a new Redis-backed TokenRepository.
func NewRedisTokenRepository(client *redis.Client, logger *zap.Logger) interfaces.TokenRepository {
	return &redisTokenRepository{
		client: client,
		logger: logger.Named("RedisTokenRepo"),
	}
}

// generateTokenKey returns a fresh opaque 40-hex-character token key.
func generateTokenKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GetOrCreateToken returns the user's existing token key, creating one if
// none exists. The check-then-act between SETNX and the follow-up GET is
// the documented race window for concurrent first-time issuers.
func (r *redisTokenRepository) GetOrCreateToken(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	userIDStr := userID.String()
	userKey := fmt.Sprintf("user_token:%s", userIDStr)

	existing, err := r.client.Get(ctx, userKey).Result()
	if err == nil {
		r.logger.Debug("Existing token found for user", zap.String("userID", userIDStr))
		return existing, false, nil
	}
	if err != redis.Nil {
		r.logger.Error("Failed to get existing token from redis", zap.Error(err), zap.String("userID", userIDStr))
		return "", false, fmt.Errorf("failed to get existing token from redis: %w", err)
	}

	key, err := generateTokenKey()
	if err != nil {
		r.logger.Error("Failed to generate token key", zap.Error(err), zap.String("userID", userIDStr))
		return "", false, err
	}

	set, err := r.client.SetNX(ctx, userKey, key, 0).Result()
	if err != nil {
		r.logger.Error("Failed to set user token index in redis", zap.Error(err), zap.String("userID", userIDStr))
		return "", false, fmt.Errorf("failed to set user token index in redis: %w", err)
	}
	if !set {
		// Lost the creation race, another issuer got there first
		winner, err := r.client.Get(ctx, userKey).Result()
		if err != nil {
			r.logger.Error("Failed to re-read user token after lost race", zap.Error(err), zap.String("userID", userIDStr))
			return "", false, fmt.Errorf("failed to re-read user token from redis: %w", err)
		}
		return winner, false, nil
	}

	tokenKey := fmt.Sprintf("token_key:%s", key)
	if err := r.client.Set(ctx, tokenKey, userIDStr, 0).Err(); err != nil {
		r.logger.Error("Failed to store token lookup key in redis", zap.Error(err), zap.String("userID", userIDStr))
		return "", false, fmt.Errorf("failed to store token lookup key in redis: %w", err)
	}

	r.logger.Info("Token created for user", zap.String("userID", userIDStr))
	return key, true, nil
}

// GetUserIDByToken resolves a presented token key to the owning user.
func (r *redisTokenRepository) GetUserIDByToken(ctx context.Context, key string) (uuid.UUID, error) {
	tokenKey := fmt.Sprintf("token_key:%s", key)
	r.logger.Debug("Getting token from Redis", zap.String("key", tokenKey))
	userIDStr, err := r.client.Get(ctx, tokenKey).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Debug("Token not found in Redis")
			return uuid.Nil, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to get token from redis", zap.Error(err))
		return uuid.Nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		// Данные в Redis повреждены
		r.logger.Error("Failed to parse userID (UUID) from redis token data",
			zap.Error(err),
			zap.String("value", userIDStr),
		)
		return uuid.Nil, fmt.Errorf("corrupted userID data in redis for token: %w", err)
	}
	return userID, nil
}

// DeleteTokenByUserID revokes the user's token, if any.
func (r *redisTokenRepository) DeleteTokenByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := r.logger.With(zap.String("userID", userID.String()))
	userKey := fmt.Sprintf("user_token:%s", userID.String())

	key, err := r.client.Get(ctx, userKey).Result()
	if err != nil {
		if err == redis.Nil {
			log.Info("No token found for user, nothing to delete.")
			return 0, nil
		}
		log.Error("Failed to get token key for user", zap.Error(err))
		return 0, fmt.Errorf("failed to retrieve token key for user %s: %w", userID, err)
	}

	pipe := r.client.Pipeline()
	delCmd := pipe.Del(ctx, fmt.Sprintf("token_key:%s", key), userKey)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("Failed to execute pipeline for deleting token", zap.Error(err))
		return 0, fmt.Errorf("failed to delete token for user %s: %w", userID, err)
	}

	deletedCount, _ := delCmd.Result()
	log.Info("Token deleted for user", zap.Int64("deletedCount", deletedCount))
	return deletedCount, nil
}
