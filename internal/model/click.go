package model

import "time"

// Click 点击事件，只追加不修改
type Click struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	LinkID    uint64    `gorm:"index;not null"`
	ClickedAt time.Time `gorm:"index;not null"`
	Referrer  string    `gorm:"size:2048"`
	IPAddress string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:512"`
}

// ClickMeta 请求附带的点击信息
type ClickMeta struct {
	Referrer  string
	IPAddress string
	UserAgent string
}
