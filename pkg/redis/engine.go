package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"julianmorley.ca/con-plar/storefront/pkg/global"
)

func NewClient(cfg global.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Protocol: 2,
	})
}

// InitRedis connects and pings once so a bad address fails at start-up.
func InitRedis(cfg global.Config) (*redis.Client, error) {
	client := NewClient(cfg)
	ctx, cancel := global.GetDefaultTimer()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.RedisAddress, err)
	}
	return client, nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
