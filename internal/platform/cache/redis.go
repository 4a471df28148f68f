package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "saas_auth:session:"

// RedisSessionCache shares session liveness across instances.
type RedisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ portsrepo.SessionCache = (*RedisSessionCache)(nil)

// NewRedisClient parses redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisSessionCache creates a cache over an existing client.
func NewRedisSessionCache(client *redis.Client, ttl time.Duration) *RedisSessionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSessionCache{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Get reads the entry; a missing key is a miss, not an error.
func (c *RedisSessionCache) Get(ctx context.Context, sessionID string) (*domain.Session, bool, error) {
	raw, err := c.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached session: %w", err)
	}
	return &session, true, nil
}

// Set overwrites the entry and restarts its TTL.
func (c *RedisSessionCache) Set(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(session.SessionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session to redis: %w", err)
	}
	return nil
}

// Add uses SETNX, so a tombstone already in place always wins.
func (c *RedisSessionCache) Add(ctx context.Context, session domain.Session) (bool, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return false, fmt.Errorf("failed to encode session: %w", err)
	}
	stored, err := c.client.SetNX(ctx, sessionKey(session.SessionID), raw, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add session to redis: %w", err)
	}
	return stored, nil
}
