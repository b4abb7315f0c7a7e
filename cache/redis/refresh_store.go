package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/keyward-io/keyward/cache"
	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
)

// RefreshStore implements domain.RefreshTokenRepository on Redis. Records
// are hashes under a prefixed key; Redis key expiry tracks the record's
// expiry so dead records vanish on their own.
type RefreshStore struct {
	client *redis.Client
	prefix string
}

// NewRefreshStore creates a new RefreshStore instance.
func NewRefreshStore(client *redis.Client, prefix string) *RefreshStore {
	return &RefreshStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RefreshStore) tokenKey(value string) string {
	return fmt.Sprintf("%s:refresh:%s", r.prefix, cache.HashToken(value))
}

func (r *RefreshStore) userKey(userID string) string {
	return fmt.Sprintf("%s:user_tokens:%s", r.prefix, userID)
}

// Store implements domain.RefreshTokenRepository.
func (r *RefreshStore) Store(ctx context.Context, token *domain.RefreshToken) error {
	key := r.tokenKey(token.Token)

	// HSetNX on a marker field detects duplicates without a racy
	// exists-then-set sequence.
	created, err := r.client.HSetNX(ctx, key, "user_id", token.UserID).Result()
	if err != nil {
		return fmt.Errorf("failed to store refresh token in Redis: %w", err)
	}
	if !created {
		return errors.NewConflict("refresh token value already exists")
	}

	entry := map[string]any{
		"expires_at": token.ExpiresAt.Unix(),
		"created_at": token.CreatedAt.Unix(),
	}
	if _, err := r.client.HSet(ctx, key, entry).Result(); err != nil {
		return fmt.Errorf("failed to store refresh token in Redis: %w", err)
	}
	if _, err := r.client.Expire(ctx, key, time.Until(token.ExpiresAt)).Result(); err != nil {
		return fmt.Errorf("failed to set expiry for refresh token in Redis: %w", err)
	}

	// Track the key under the owner's set so DeleteAllForUser avoids a
	// full keyspace scan.
	if err := r.client.SAdd(ctx, r.userKey(token.UserID), key).Err(); err != nil {
		log.Warn().Err(err).Str("userID", token.UserID).Msg("Failed to index refresh token under user")
	}
	return nil
}

// GetByValue implements domain.RefreshTokenRepository.
func (r *RefreshStore) GetByValue(ctx context.Context, value string) (*domain.RefreshToken, error) {
	res, err := r.client.HGetAll(ctx, r.tokenKey(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token from Redis: %w", err)
	}
	if len(res) == 0 {
		return nil, errors.NewNotFound("refresh token not found")
	}

	expiresAtUnix, err := strconv.ParseInt(res["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed refresh token record: %w", err)
	}
	createdAtUnix, _ := strconv.ParseInt(res["created_at"], 10, 64)

	record := &domain.RefreshToken{
		Token:     value,
		UserID:    res["user_id"],
		ExpiresAt: time.Unix(expiresAtUnix, 0),
		CreatedAt: time.Unix(createdAtUnix, 0),
	}
	// Redis expiry has second granularity; enforce the exact instant here.
	if record.Expired(time.Now()) {
		return nil, errors.NewNotFound("refresh token not found")
	}
	return record, nil
}

// DeleteByValue implements domain.RefreshTokenRepository. The DEL count is
// the serialization point for concurrent rotations of the same value.
func (r *RefreshStore) DeleteByValue(ctx context.Context, value string) (bool, error) {
	key := r.tokenKey(value)

	userID, err := r.client.HGet(ctx, key, "user_id").Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to delete refresh token from Redis: %w", err)
	}

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete refresh token from Redis: %w", err)
	}
	if deleted > 0 && userID != "" {
		if err := r.client.SRem(ctx, r.userKey(userID), key).Err(); err != nil {
			log.Warn().Err(err).Str("userID", userID).Msg("Failed to unindex refresh token")
		}
	}
	return deleted > 0, nil
}

// DeleteAllForUser implements domain.RefreshTokenRepository.
func (r *RefreshStore) DeleteAllForUser(ctx context.Context, userID string) error {
	setKey := r.userKey(userID)
	keys, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list refresh tokens for user: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete refresh tokens for user: %w", err)
		}
	}
	return r.client.Del(ctx, setKey).Err()
}

// DeleteExpired implements domain.RefreshTokenRepository. Redis already
// expires the keys; this pass only prunes stale members from the per-user
// index sets.
func (r *RefreshStore) DeleteExpired(ctx context.Context) error {
	var cursor uint64
	pattern := fmt.Sprintf("%s:user_tokens:*", r.prefix)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan user token sets: %w", err)
		}
		for _, setKey := range keys {
			members, err := r.client.SMembers(ctx, setKey).Result()
			if err != nil {
				continue
			}
			for _, member := range members {
				exists, err := r.client.Exists(ctx, member).Result()
				if err == nil && exists == 0 {
					r.client.SRem(ctx, setKey, member)
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

var _ domain.RefreshTokenRepository = (*RefreshStore)(nil)
