package watchstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "tubeview:watchstate"

// RedisBackend stores the progress map under a single key, read and written
// whole, matching the file backend's document contract.
type RedisBackend struct {
	Client  *redis.Client
	Key     string
	Timeout time.Duration
}

func NewRedisBackend(url string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBackend{Client: redis.NewClient(opt), Key: redisKey, Timeout: 3 * time.Second}, nil
}

func (b *RedisBackend) Load() (map[string]Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	val, err := b.Client.Get(ctx, b.Key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]Record{}, nil
		}
		return nil, err
	}
	var states map[string]Record
	if err := json.Unmarshal([]byte(val), &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (b *RedisBackend) Save(states map[string]Record) error {
	data, err := json.Marshal(states)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()
	return b.Client.Set(ctx, b.Key, data, 0).Err()
}
