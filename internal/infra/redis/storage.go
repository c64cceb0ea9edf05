package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage keeps one profile's wrong-answer collection under a single Redis string key:
// SET {key}:{profileID} <json array>
type Storage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewStorage binds a profile to a key. A zero ttl keeps the value forever.
func NewStorage(client *redis.Client, key, profileID string, ttl time.Duration) *Storage {
	return &Storage{
		client: client,
		key:    storageKey(key, profileID),
		ttl:    ttl,
	}
}

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

// Key returns the Redis key this storage writes.
func (s *Storage) Key() string {
	return s.key
}

func storageKey(key, profileID string) string {
	if profileID == "" {
		return key
	}
	return key + ":" + profileID
}
