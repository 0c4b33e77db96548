// Package cache holds user-keyed snapshots of read-heavy lists. It is never
// the system of record: the stores stay authoritative and every cache failure
// is safe to swallow.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoanListTTL bounds how stale a cached loan list may get.
const LoanListTTL = 60 * time.Second

// StatementTTL bounds how stale a cached statement may get.
const StatementTTL = 60 * time.Second

func LoanListKey(userID uint) string {
	return fmt.Sprintf("loans:user:%d", userID)
}

func StatementKey(userID uint) string {
	return fmt.Sprintf("transactions:user:%d", userID)
}

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the cached payload and whether the key was present.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
