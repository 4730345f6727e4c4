package model

// User 由认证服务维护，这里只建表，owner_id 引用其 ID
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}
