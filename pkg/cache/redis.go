package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient é o subconjunto do go-redis usado pelo cache (permite Mocking).
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis compartilha o cache entre instâncias. A chave expira sozinha após o TTL.
type Redis struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedis cria o store conectando no endereço informado.
func NewRedis(addr, password string, ttl time.Duration) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	}), ttl)
}

// NewRedisWithClient usa um cliente já criado.
func NewRedisWithClient(client RedisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("redis: entrada corrompida em %s: %w", key, err)
	}
	return &entry, nil
}

func (r *Redis) Put(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal falhou: %w", err)
	}
	if err := r.client.Set(ctx, entry.Key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", entry.Key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
