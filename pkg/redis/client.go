package redis

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type client struct {
	logger    logger.Interface
	config    *Config
	universal redis.UniversalClient
}

// NewClient creates a new Redis client with the provided logger and configuration.
// The connection is opened by Connect.
func NewClient(logger logger.Interface, config *Config) Client {
	return &client{
		logger: logger,
		config: config,
	}
}

func configError(message string) error {
	return errors.NewErrorDetails(message, string(errors.RedisConfigError), "connect")
}

func (c *client) Connect(ctx context.Context) error {
	if c.config == nil {
		return configError("Redis config is nil")
	}

	if err := c.config.Validate(); err != nil {
		return err
	}

	switch c.config.Mode {
	case Standalone:
		c.universal = redis.NewClient(&redis.Options{
			Addr:            c.config.Addrs[0],
			Username:        c.config.Username,
			Password:        c.config.Password,
			DB:              c.config.DB,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	case Cluster:
		c.universal = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           c.config.Addrs,
			Username:        c.config.Username,
			Password:        c.config.Password,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	}

	if err := c.universal.Ping(ctx).Err(); err != nil {
		return errors.TracerFromError(errors.NewErrorDetails(err.Error(), string(errors.RedisConnectionError), "connect"))
	}

	return nil
}

func (c *client) Reconnect(ctx context.Context) bool {
	baseDelay := c.config.MinRetryBackoff
	maxDelay := c.config.MaxRetryBackoff

	for i := range c.config.ReconnectMaxRetries {
		backoff := min(baseDelay*time.Duration(math.Pow(2, float64(i))), maxDelay)

		jitter := time.Duration(rand.IntN(1000)) * time.Millisecond
		totalDelay := backoff + jitter

		c.logger.Info("Reconnecting to Redis", logger.Field{
			Key:   "attempt",
			Value: i + 1,
		}, logger.Field{
			Key:   "delay",
			Value: totalDelay,
		})

		select {
		case <-ctx.Done():
			c.logger.Info("Reconnect cancelled", logger.Field{
				Key:   "reason",
				Value: ctx.Err(),
			})
			return false
		case <-time.After(totalDelay):
			connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Connect(connectCtx)
			cancel()
			if err == nil {
				c.logger.Info("Reconnected to Redis successfully", logger.Field{
					Key:   "attempt",
					Value: i + 1,
				})
				return true
			}
			c.logger.Error(errors.TracerFromError(err), logger.Field{
				Key:   "attempt",
				Value: i + 1,
			})
		}
	}

	return false
}

func (c *client) Disconnect(ctx context.Context) error {
	if c.universal == nil {
		return nil
	}
	if err := c.universal.Close(); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisDisconnectionError), "disconnect")
	}
	return nil
}

func (c *client) Ping(ctx context.Context) error {
	if err := c.universal.Ping(ctx).Err(); err != nil {
		return errors.NewErrorDetails("Failed to ping Redis", string(errors.RedisPingError), "ping")
	}
	return nil
}

func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.universal.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.NewErrorDetails("Failed to get value from Redis", string(errors.RedisGetError), "get")
	}
	return val, nil
}

func (c *client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.universal.Set(ctx, key, value, expiration).Err(); err != nil {
		return errors.NewErrorDetails("Failed to set value in Redis", string(errors.RedisSetError), "set")
	}
	return nil
}

func (c *client) Del(ctx context.Context, keys ...string) (int64, error) {
	deleted, err := c.universal.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to delete keys from Redis", string(errors.RedisDelError), "del")
	}
	return deleted, nil
}

func (c *client) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := c.universal.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", nil // Field does not exist
	}
	if err != nil {
		return "", errors.NewErrorDetails("Failed to get field from hash in Redis", string(errors.RedisHGetError), "hget")
	}
	return val, nil
}

func (c *client) HSet(ctx context.Context, key string, values map[string]any) (int64, error) {
	affected, err := c.universal.HSet(ctx, key, values).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to set fields in hash in Redis", string(errors.RedisHSetError), "hset")
	}
	return affected, nil
}

func (c *client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	deleted, err := c.universal.HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to delete fields from hash in Redis", string(errors.RedisHDelError), "hdel")
	}
	return deleted, nil
}

func (c *client) ZAdd(ctx context.Context, key string, members ...redis.Z) (int64, error) {
	added, err := c.universal.ZAdd(ctx, key, members...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to add members to sorted set in Redis", string(errors.RedisZAddError), "zadd")
	}
	return added, nil
}

func (c *client) ZRem(ctx context.Context, key string, members ...any) (int64, error) {
	removed, err := c.universal.ZRem(ctx, key, members...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to remove members from sorted set in Redis", string(errors.RedisZRemError), "zrem")
	}
	return removed, nil
}

// ZScore returns the score of member and whether it is in the set.
func (c *client) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := c.universal.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.NewErrorDetails("Failed to read sorted set score in Redis", string(errors.RedisZRangeError), "zscore")
	}
	return score, true, nil
}

// ZRangeWithScores returns members ordered from the lowest score, ties broken by member bytes ascending.
func (c *client) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]redis.Z, error) {
	members, err := c.universal.ZRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.NewErrorDetails("Failed to read sorted set range in Redis", string(errors.RedisZRangeError), "zrange")
	}
	return members, nil
}

// ZRevRangeWithScores returns members ordered from the highest score, ties broken by member bytes descending.
func (c *client) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]redis.Z, error) {
	members, err := c.universal.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.NewErrorDetails("Failed to read sorted set range in Redis", string(errors.RedisZRangeError), "zrevrange")
	}
	return members, nil
}

func (c *client) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	cmds, err := c.universal.TxPipelined(ctx, fn)
	if err != nil {
		return cmds, errors.NewErrorDetails("Failed to execute transaction in Redis", string(errors.RedisTxError), "multi")
	}
	return cmds, nil
}

func (c *client) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	pubSub := c.universal.Subscribe(ctx, channels...)

	if _, err := pubSub.Receive(ctx); err != nil {
		_ = pubSub.Close()
		return nil, errors.NewErrorDetails("Failed to subscribe to channels in Redis", string(errors.RedisSubscribeError), "subscribe")
	}
	return pubSub, nil
}

// Publish sends message on channel and returns the number of subscribers that received it.
// Zero receivers is not an error.
func (c *client) Publish(ctx context.Context, channel string, message any) (int64, error) {
	published, err := c.universal.Publish(ctx, channel, message).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to publish message in Redis", string(errors.RedisPublishError), "publish")
	}
	return published, nil
}
