package db

import "time"

// Credit 用户积分余额，每个用户一行。
type Credit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);uniqueIndex;not null" json:"user_id"`
	Credits   int       `gorm:"column:credits;not null;default:0" json:"credits"`
}

func (Credit) TableName() string {
	return "credits"
}
