package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"

	"linkly/constant"
	"linkly/internal/apperrors"
)

// RedisCache 基于 redigo 连接池的缓存实现
type RedisCache struct {
	pool    *redis.Pool
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisCache timeout 为单次命令的超时时间，超时视为缓存不可用
func NewRedisCache(pool *redis.Pool, timeout time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		pool:    pool,
		timeout: timeout,
		logger:  logger.Named("cache"),
	}
}

func (c *RedisCache) do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCacheUnavailable, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.logger.Debug("Failed to close Redis connection", zap.Error(err))
		}
	}()

	reply, err := redis.DoContext(conn, ctx, cmd, args...)
	if err != nil && !errors.Is(err, redis.ErrNil) {
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrCacheUnavailable, cmd, err)
	}
	return reply, nil
}

func (c *RedisCache) Get(ctx context.Context, shortKey string) (string, bool, error) {
	reply, err := c.do(ctx, "GET", constant.GetLinkTargetKey(shortKey))
	if err != nil {
		return "", false, err
	}
	if reply == nil {
		return "", false, nil
	}

	target, err := redis.String(reply, nil)
	if err != nil {
		return "", false, fmt.Errorf("%w: decode GET reply: %w", apperrors.ErrCacheUnavailable, err)
	}
	return target, true, nil
}

// Set ttl 不大于 0 时不设置过期时间
func (c *RedisCache) Set(ctx context.Context, shortKey, targetURL string, ttl time.Duration) error {
	key := constant.GetLinkTargetKey(shortKey)
	if ttl <= 0 {
		_, err := c.do(ctx, "SET", key, targetURL)
		return err
	}
	// PX 最小为 1 毫秒，不足 1 毫秒的 TTL 向上取整
	px := ttl.Milliseconds()
	if px < 1 {
		px = 1
	}
	_, err := c.do(ctx, "SET", key, targetURL, "PX", px)
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, shortKey string) error {
	_, err := c.do(ctx, "DEL", constant.GetLinkTargetKey(shortKey))
	return err
}

// Ping 健康检查
func (c *RedisCache) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "PING")
	return err
}
