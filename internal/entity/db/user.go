package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserProviderEmail  = "email"
	UserProviderGoogle = "google"
)

// User 表示持久化的用户账户。
type User struct {
	ID               string     `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Email            string     `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	DisplayName      string     `gorm:"column:display_name;type:varchar(255)" json:"display_name"`
	AvatarURL        string     `gorm:"column:avatar_url;type:varchar(1024)" json:"avatar_url"`
	Provider         string     `gorm:"column:provider;type:varchar(32);not null;default:email" json:"provider"`
	EmailConfirmedAt *time.Time `gorm:"column:email_confirmed_at" json:"email_confirmed_at"`
}

// TableName 指定表名。
func (User) TableName() string {
	return "users"
}

// BeforeCreate 为新用户分配 UUID。
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) Confirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}
