// Package cache 短链目标地址的读穿缓存，只存 short_key -> target_url 的映射。
//
// 缓存中的值可能过期或缺失，任何错误都包装为 apperrors.ErrCacheUnavailable，
// 由调用方降级到存储层。
package cache

import (
	"context"
	"time"
)

// Cache 缓存接口
//
// Get 未命中时返回 ("", false, nil)。
// 值为空字符串表示负缓存，即该 key 已确认不存在。
type Cache interface {
	Get(ctx context.Context, shortKey string) (string, bool, error)
	Set(ctx context.Context, shortKey, targetURL string, ttl time.Duration) error
	Invalidate(ctx context.Context, shortKey string) error
}

// Noop 不缓存，所有读取都未命中
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }
func (Noop) Invalidate(context.Context, string) error { return nil }
