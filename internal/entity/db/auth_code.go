package db

import "time"

const (
	AuthCodePurposeSignup   = "signup"
	AuthCodePurposeRecovery = "recovery"
	AuthCodePurposeOAuth    = "oauth"
)

// AuthCode 一次性登录码，仅保存哈希。
type AuthCode struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UserID    string     `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	CodeHash  string     `gorm:"column:code_hash;type:varchar(64);uniqueIndex;not null" json:"-"`
	Purpose   string     `gorm:"column:purpose;type:varchar(32);not null" json:"purpose"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null" json:"expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"used_at"`
}

func (AuthCode) TableName() string {
	return "auth_codes"
}
