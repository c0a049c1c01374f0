package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/crop-advisor/internal/weather"
)

const redisKeyPrefix = "cropadvisor:weather:"

// RedisStore shares the last good reading per location between processes.
// Entries expire after ttl.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(loc weather.Location) string {
	return redisKeyPrefix + loc.Key()
}

// Save overwrites the cached reading for the reading's location.
func (s *RedisStore) Save(ctx context.Context, reading weather.Reading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(reading.Location), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Latest returns the cached reading for loc, or ErrNotFound.
func (s *RedisStore) Latest(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	payload, err := s.client.Get(ctx, redisKey(loc)).Bytes()
	if errors.Is(err, redis.Nil) {
		return weather.Reading{}, ErrNotFound
	}
	if err != nil {
		return weather.Reading{}, fmt.Errorf("redis get: %w", err)
	}

	var reading weather.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return weather.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	return reading, nil
}
