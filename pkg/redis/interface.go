package redis

import (
	"context"
	"time"

	v9 "github.com/redis/go-redis/v9"
)

// Client defines the interface for a Redis client.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=redis_mock
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	Reconnect(ctx context.Context) bool

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)

	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key string, values map[string]any) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)

	ZAdd(ctx context.Context, key string, members ...v9.Z) (int64, error)
	ZRem(ctx context.Context, key string, members ...any) (int64, error)
	ZScore(ctx context.Context, key, member string) (float64, bool, error)
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]v9.Z, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]v9.Z, error)

	// TxPipelined queues the commands issued by fn and runs them in one MULTI/EXEC.
	TxPipelined(ctx context.Context, fn func(v9.Pipeliner) error) ([]v9.Cmder, error)

	Subscribe(ctx context.Context, channels ...string) (*v9.PubSub, error)
	Publish(ctx context.Context, channel string, message any) (int64, error)
}
