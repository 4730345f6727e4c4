package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"linkly/internal/apperrors"
	"linkly/internal/model"
)

const mysqlDuplicateEntry = 1062

// LinkStore 基于 gorm 的短链存储，每个操作在独立事务内完成
type LinkStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewLinkStore timeout 为单次操作的超时时间
func NewLinkStore(db *gorm.DB, timeout time.Duration) *LinkStore {
	return &LinkStore{db: db, timeout: timeout}
}

func (s *LinkStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// CreateLink 插入短链，short_key 冲突时返回 ErrDuplicateKey
func (s *LinkStore) CreateLink(ctx context.Context, link *model.Link) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	link.ClickCount = 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(link).Error
	})
	return translate(err)
}

// GetLinkByKey 按 short_key 查询
func (s *LinkStore) GetLinkByKey(ctx context.Context, shortKey string) (*model.Link, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var link model.Link
	if err := s.db.WithContext(ctx).Where("short_key = ?", shortKey).Take(&link).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// IncrementClick 原子递增点击数并追加点击事件，返回递增后的计数
func (s *LinkStore) IncrementClick(ctx context.Context, shortKey string, meta model.ClickMeta) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 单条 UPDATE 在数据库内完成自增，并发调用不会丢失更新；行锁持有到事务提交
		res := tx.Model(&model.Link{}).
			Where("short_key = ?", shortKey).
			UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}

		var link model.Link
		if err := tx.Select("id", "click_count").Where("short_key = ?", shortKey).Take(&link).Error; err != nil {
			return err
		}
		count = link.ClickCount

		return tx.Create(&model.Click{
			LinkID:    link.ID,
			ClickedAt: time.Now().UTC(),
			Referrer:  truncate(meta.Referrer, 2048),
			IPAddress: truncate(meta.IPAddress, 64),
			UserAgent: truncate(meta.UserAgent, 512),
		}).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return count, nil
}

// FindByOwnerAndTarget 查询用户已创建的同目标短链
func (s *LinkStore) FindByOwnerAndTarget(ctx context.Context, ownerID uint64, targetURL string) (*model.Link, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var link model.Link
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND target_hash = ? AND target_url = ?", ownerID, model.HashTarget(targetURL), targetURL).
		Order("id ASC").
		Take(&link).Error
	if err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// ListByOwner 分页查询用户的短链，page 从 1 开始
func (s *LinkStore) ListByOwner(ctx context.Context, ownerID uint64, page, size int) ([]model.Link, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	db := s.db.WithContext(ctx).Model(&model.Link{}).Where("owner_id = ?", ownerID).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	if total == 0 {
		return []model.Link{}, 0, nil
	}

	var links []model.Link
	if err := db.Order("id DESC").Limit(size).Offset((page - 1) * size).Find(&links).Error; err != nil {
		return nil, 0, translate(err)
	}
	return links, total, nil
}

// DeleteLink 删除短链及其点击事件
func (s *LinkStore) DeleteLink(ctx context.Context, shortKey string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link model.Link
		if err := tx.Select("id").Where("short_key = ?", shortKey).Take(&link).Error; err != nil {
			return err
		}
		if err := tx.Where("link_id = ?", link.ID).Delete(&model.Click{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Link{}, link.ID).Error
	})
	return translate(err)
}

// DeleteClicksBefore 清理早于 before 的点击事件
func (s *LinkStore) DeleteClicksBefore(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Where("clicked_at < ?", before).Delete(&model.Click{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// Ping 健康检查
func (s *LinkStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return translate(err)
	}
	return translate(sqlDB.PingContext(ctx))
}

// translate 将驱动错误归类为领域错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case isDuplicateKey(err):
		return fmt.Errorf("%w: %w", apperrors.ErrDuplicateKey, err)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrStorageUnavailable, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// truncate 去掉非法 UTF-8 字节后按字节截断到 n 以内，不拆分多字节字符
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
