package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"linkly/internal/apperrors"
	"linkly/internal/model"
	"linkly/pkg/utils"
	"linkly/response"
)

// ShortLinkOptions 创建与清理相关的参数
type ShortLinkOptions struct {
	MaxKeyAttempts int
	MaxURLLength   int
	BlockedDomains []string
	ReuseExisting  bool
	RetentionDays  int
}

// ShortLinkService 短链业务入口，供 handler 和定时任务调用
type ShortLinkService struct {
	store    LinkStore
	keys     KeyGenerator
	resolver *Resolver
	clicks   *ClickCounter
	opts     ShortLinkOptions
	logger   *zap.Logger
	now      func() time.Time
}

func NewShortLinkService(
	store LinkStore,
	keys KeyGenerator,
	resolver *Resolver,
	clicks *ClickCounter,
	opts ShortLinkOptions,
	logger *zap.Logger,
) *ShortLinkService {
	if opts.MaxKeyAttempts < 1 {
		opts.MaxKeyAttempts = 1
	}
	return &ShortLinkService{
		store:    store,
		keys:     keys,
		resolver: resolver,
		clicks:   clicks,
		opts:     opts,
		logger:   logger.Named("shortlink"),
		now:      time.Now,
	}
}

// CreateLink 创建短链；ownerID 为空表示匿名创建
func (s *ShortLinkService) CreateLink(ctx context.Context, targetURL string, ownerID *uint64) (*model.Link, error) {
	if err := utils.ValidateTargetURL(targetURL, s.opts.MaxURLLength, s.opts.BlockedDomains); err != nil {
		return nil, apperrors.InvalidURLError(err.Error())
	}

	if s.opts.ReuseExisting && ownerID != nil {
		existing, err := s.store.FindByOwnerAndTarget(ctx, *ownerID, targetURL)
		switch {
		case err == nil:
			s.resolver.Populate(ctx, existing.ShortKey, existing.TargetURL)
			return existing, nil
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, err
		}
	}

	hash := model.HashTarget(targetURL)
	for attempt := 1; attempt <= s.opts.MaxKeyAttempts; attempt++ {
		key, err := s.keys.Generate()
		if err != nil {
			s.logger.Error("Short key generation failed", zap.Error(err))
			return nil, fmt.Errorf("generate short key: %w", err)
		}

		link := &model.Link{
			ShortKey:   key,
			TargetURL:  targetURL,
			OwnerID:    ownerID,
			TargetHash: hash,
		}
		err = s.store.CreateLink(ctx, link)
		if err == nil {
			s.resolver.Populate(ctx, link.ShortKey, link.TargetURL)
			s.logger.Info("Short link created",
				zap.String("short_key", link.ShortKey),
				zap.Int("attempt", attempt),
			)
			return link, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateKey) {
			return nil, err
		}
		s.logger.Debug("Short key collision, retrying",
			zap.String("short_key", key),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Error("Short key space exhausted",
		zap.Int("attempts", s.opts.MaxKeyAttempts),
	)
	return nil, apperrors.ErrKeySpaceExhausted
}

// Resolve 解析短码并记录点击
func (s *ShortLinkService) Resolve(ctx context.Context, shortKey string, meta model.ClickMeta) (string, error) {
	target, err := s.resolver.Resolve(ctx, shortKey)
	if err != nil {
		return "", err
	}
	s.clicks.Record(ctx, shortKey, meta)
	return target, nil
}

// Lookup 只解析目标地址，不记录点击
func (s *ShortLinkService) Lookup(ctx context.Context, shortKey string) (string, error) {
	return s.resolver.Resolve(ctx, shortKey)
}

// GetStats 直接读取存储，不经过缓存
func (s *ShortLinkService) GetStats(ctx context.Context, shortKey string) (*model.LinkStats, error) {
	if err := utils.ValidateShortKey(shortKey); err != nil {
		return nil, apperrors.ErrNotFound
	}
	link, err := s.store.GetLinkByKey(ctx, shortKey)
	if err != nil {
		return nil, err
	}
	return link.Stats(), nil
}

// ListLinks 分页查询用户自己的短链
func (s *ShortLinkService) ListLinks(ctx context.Context, ownerID uint64, page, size int) (*response.PageResponse[model.Link], error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10 // 默认每页10条，最大100条
	}

	links, total, err := s.store.ListByOwner(ctx, ownerID, page, size)
	if err != nil {
		return nil, err
	}
	return response.NewPage(links, page, size, total), nil
}

// DeleteLink 只允许创建者删除，删除后同步清理缓存
func (s *ShortLinkService) DeleteLink(ctx context.Context, shortKey string, ownerID uint64) error {
	if err := utils.ValidateShortKey(shortKey); err != nil {
		return apperrors.ErrNotFound
	}
	link, err := s.store.GetLinkByKey(ctx, shortKey)
	if err != nil {
		return err
	}
	if link.OwnerID == nil || *link.OwnerID != ownerID {
		return apperrors.ErrForbidden
	}

	if err := s.store.DeleteLink(ctx, shortKey); err != nil {
		return err
	}
	// 失败时缓存最多在 TTL 内继续命中
	_ = s.resolver.Invalidate(ctx, shortKey)

	s.logger.Info("Short link deleted",
		zap.String("short_key", shortKey),
		zap.Uint64("owner_id", ownerID),
	)
	return nil
}

// PurgeClickEvents 清理超过保留天数的点击事件，未配置保留天数时不做任何事
func (s *ShortLinkService) PurgeClickEvents(ctx context.Context) (int64, error) {
	if s.opts.RetentionDays <= 0 {
		return 0, nil
	}

	before := s.now().UTC().AddDate(0, 0, -s.opts.RetentionDays)
	n, err := s.store.DeleteClicksBefore(ctx, before)
	if err != nil {
		s.logger.Error("Click event purge failed", zap.Time("before", before), zap.Error(err))
		return 0, err
	}
	s.logger.Info("Click events purged",
		zap.Time("before", before),
		zap.Int64("deleted", n),
	)
	return n, nil
}
