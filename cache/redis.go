package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mfay/montage/media"
)

// RedisStore keeps frames as PNG blobs in Redis, for render farm nodes
// sharing one cache.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "montage:frame:",
	}
}

func (s *RedisStore) key(hash media.FrameHash) string {
	return fmt.Sprintf("%s%016x", s.prefix, uint64(hash))
}

func (s *RedisStore) Save(ctx context.Context, hash media.FrameHash, f *media.Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(hash), data, 0).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, hash media.FrameHash) (*media.Frame, error) {
	data, err := s.client.Get(ctx, s.key(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFrameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return DecodeFrame(data)
}

func (s *RedisStore) Has(ctx context.Context, hash media.FrameHash) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(hash)).Result()
	if err != nil {
		return false, fmt.Errorf("cache: redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
