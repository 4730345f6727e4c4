package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"linkly/internal/apperrors"
	"linkly/internal/cache"
	"linkly/pkg/utils"
)

// ResolverOptions 缓存与重试参数
type ResolverOptions struct {
	CacheTTL     time.Duration
	NegativeTTL  time.Duration // 0 表示不缓存不存在的 key
	RetryBackoff time.Duration
}

// Resolver 重定向热路径：先查缓存，未命中再查存储并回填
//
// 只有 Resolver 会写缓存。缓存出错一律当作未命中处理。
type Resolver struct {
	store  LinkStore
	cache  cache.Cache
	opts   ResolverOptions
	logger *zap.Logger
	group  singleflight.Group
}

func NewResolver(store LinkStore, c cache.Cache, opts ResolverOptions, logger *zap.Logger) *Resolver {
	if c == nil {
		c = cache.Noop{}
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Millisecond
	}
	return &Resolver{
		store:  store,
		cache:  c,
		opts:   opts,
		logger: logger.Named("resolver"),
	}
}

// Resolve 返回短码对应的目标地址，不存在时返回 apperrors.ErrNotFound
func (r *Resolver) Resolve(ctx context.Context, shortKey string) (string, error) {
	if err := utils.ValidateShortKey(shortKey); err != nil {
		return "", apperrors.ErrNotFound
	}

	target, ok, err := r.cache.Get(ctx, shortKey)
	switch {
	case err != nil:
		r.logger.Warn("Cache lookup failed, falling back to store",
			zap.String("short_key", shortKey),
			zap.Error(err),
		)
	case ok && target == "":
		return "", apperrors.ErrNotFound
	case ok:
		return target, nil
	}

	// 同一 key 的并发未命中只查一次存储
	v, err, _ := r.group.Do(shortKey, func() (interface{}, error) {
		return r.load(context.WithoutCancel(ctx), shortKey)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) load(ctx context.Context, shortKey string) (string, error) {
	var target string
	backoff := retry.WithMaxRetries(1, retry.NewConstant(r.opts.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		link, err := r.store.GetLinkByKey(ctx, shortKey)
		if errors.Is(err, apperrors.ErrStorageUnavailable) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		target = link.TargetURL
		return nil
	})

	switch {
	case err == nil:
		r.Populate(ctx, shortKey, target)
		return target, nil
	case errors.Is(err, apperrors.ErrNotFound):
		if r.opts.NegativeTTL > 0 {
			r.set(ctx, shortKey, "", r.opts.NegativeTTL)
		}
		return "", apperrors.ErrNotFound
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		r.logger.Error("Store lookup failed",
			zap.String("short_key", shortKey),
			zap.Error(err),
		)
		return "", err
	}
	return "", fmt.Errorf("%w: %w", apperrors.ErrStorageUnavailable, err)
}

// Populate 写入缓存，失败只记录日志
func (r *Resolver) Populate(ctx context.Context, shortKey, targetURL string) {
	r.set(ctx, shortKey, targetURL, r.opts.CacheTTL)
}

func (r *Resolver) set(ctx context.Context, shortKey, value string, ttl time.Duration) {
	if err := r.cache.Set(ctx, shortKey, value, ttl); err != nil {
		r.logger.Warn("Cache populate failed",
			zap.String("short_key", shortKey),
			zap.Bool("negative", value == ""),
			zap.Error(err),
		)
	}
}

// Invalidate 删除缓存条目，删除短链时同步调用
func (r *Resolver) Invalidate(ctx context.Context, shortKey string) error {
	if err := r.cache.Invalidate(ctx, shortKey); err != nil {
		r.logger.Warn("Cache invalidate failed",
			zap.String("short_key", shortKey),
			zap.Error(err),
		)
		return err
	}
	return nil
}
