package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "jhadepilot:metrics"

// RedisSink mirrors records onto a Redis list with RPUSH.
type RedisSink struct {
	client redis.UniversalClient
	key    string
}

// NewRedisSink connects to redisURL and verifies the connection with PING.
func NewRedisSink(ctx context.Context, redisURL string, key string) (*RedisSink, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	if key == "" {
		key = defaultRedisKey
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisSink{client: client, key: key}, nil
}

func (s *RedisSink) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("metrics record marshal: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, b).Err(); err != nil {
		return fmt.Errorf("redis rpush %q: %w", s.key, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
