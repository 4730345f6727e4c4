package service

import (
	"context"
	"time"

	"linkly/internal/model"
)

// LinkStore 服务层依赖的存储接口，由 repository.LinkStore 实现
type LinkStore interface {
	CreateLink(ctx context.Context, link *model.Link) error
	GetLinkByKey(ctx context.Context, shortKey string) (*model.Link, error)
	IncrementClick(ctx context.Context, shortKey string, meta model.ClickMeta) (int64, error)
	FindByOwnerAndTarget(ctx context.Context, ownerID uint64, targetURL string) (*model.Link, error)
	ListByOwner(ctx context.Context, ownerID uint64, page, size int) ([]model.Link, int64, error)
	DeleteLink(ctx context.Context, shortKey string) error
	DeleteClicksBefore(ctx context.Context, before time.Time) (int64, error)
}

// ClickStore 点击计数只需要原子递增
type ClickStore interface {
	IncrementClick(ctx context.Context, shortKey string, meta model.ClickMeta) (int64, error)
}

// KeyGenerator 生成候选短码
type KeyGenerator interface {
	Generate() (string, error)
}
