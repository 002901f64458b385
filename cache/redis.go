package cache

import (
	"context"
	"fmt"
	"time"

	"songbox/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient is the process-wide Redis client, set by ConnectRedis.
var RedisClient *redis.Client

// ConnectRedis opens the Redis connection and pings it.
func ConnectRedis(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr(), err)
	}

	RedisClient = client
	return nil
}

// CloseRedis closes the connection opened by ConnectRedis.
func CloseRedis() error {
	if RedisClient != nil {
		err := RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}

const testKey = "songbox:test_key"

// TestRedis round-trips a key to check that reads and writes work.
func TestRedis(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	const want = "Redis connection successful!"
	if err := client.Set(ctx, testKey, want, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}

	val, err := client.Get(ctx, testKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get Redis key: %w", err)
	}
	if val != want {
		return fmt.Errorf("unexpected value from Redis: got %s", val)
	}

	if err := client.Del(ctx, testKey).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key: %w", err)
	}
	return nil
}
