package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Link 短链，short_key 创建后不可变，click_count 只增不减
type Link struct {
	BaseModel
	ShortKey   string  `gorm:"uniqueIndex;size:32;not null" json:"shortKey"`
	TargetURL  string  `gorm:"size:2048;not null" json:"targetUrl"`
	OwnerID    *uint64 `gorm:"index:idx_links_owner_target,priority:1" json:"ownerId,omitempty"`
	TargetHash string  `gorm:"size:64;index:idx_links_owner_target,priority:2" json:"-"`
	ClickCount int64   `gorm:"not null;default:0" json:"clickCount"`
}

// LinkStats 统计信息
type LinkStats struct {
	ShortKey   string    `json:"shortKey"`
	TargetURL  string    `json:"targetUrl"`
	ClickCount int64     `json:"clickCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stats 从 Link 生成统计信息
func (l *Link) Stats() *LinkStats {
	return &LinkStats{
		ShortKey:   l.ShortKey,
		TargetURL:  l.TargetURL,
		ClickCount: l.ClickCount,
		CreatedAt:  l.CreatedAt,
	}
}

// HashTarget target_url 过长无法直接建索引，按哈希查询同一用户的已有短链
func HashTarget(targetURL string) string {
	sum := sha256.Sum256([]byte(targetURL))
	return hex.EncodeToString(sum[:])
}
