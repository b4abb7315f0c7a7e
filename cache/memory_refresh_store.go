package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
)

// MemoryRefreshStore implements domain.RefreshTokenRepository on ttlcache.
// It suits single-node and test deployments; records do not survive a
// restart.
type MemoryRefreshStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *domain.RefreshToken]
}

// NewMemoryRefreshStore creates an in-memory refresh store with automatic
// cleanup of expired records.
func NewMemoryRefreshStore() *MemoryRefreshStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.RefreshToken](),
	)

	go cache.Start()

	return &MemoryRefreshStore{cache: cache}
}

// Store implements domain.RefreshTokenRepository.
func (s *MemoryRefreshStore) Store(_ context.Context, token *domain.RefreshToken) error {
	key := HashToken(token.Token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.cache.Get(key); item != nil {
		return errors.NewConflict("refresh token value already exists")
	}
	s.cache.Set(key, token, time.Until(token.ExpiresAt))
	return nil
}

// GetByValue implements domain.RefreshTokenRepository. ttlcache drops
// expired items on read, so an expired record reports not found.
func (s *MemoryRefreshStore) GetByValue(_ context.Context, value string) (*domain.RefreshToken, error) {
	item := s.cache.Get(HashToken(value))
	if item == nil {
		return nil, errors.NewNotFound("refresh token not found")
	}
	record := item.Value()
	if record.Expired(time.Now()) {
		return nil, errors.NewNotFound("refresh token not found")
	}
	return record, nil
}

// DeleteByValue implements domain.RefreshTokenRepository. The mutex makes
// the check-and-delete atomic, so concurrent rotations of the same value
// produce exactly one winner.
func (s *MemoryRefreshStore) DeleteByValue(_ context.Context, value string) (bool, error) {
	key := HashToken(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(key) == nil {
		return false, nil
	}
	s.cache.Delete(key)
	return true, nil
}

// DeleteAllForUser implements domain.RefreshTokenRepository.
func (s *MemoryRefreshStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key, item := range s.cache.Items() {
		if item.Value().UserID == userID {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

// DeleteExpired implements domain.RefreshTokenRepository.
func (s *MemoryRefreshStore) DeleteExpired(_ context.Context) error {
	s.cache.DeleteExpired()
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryRefreshStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ domain.RefreshTokenRepository = (*MemoryRefreshStore)(nil)
