package db

import (
	"headshots/internal/entity/common"
	"time"
)

const (
	ModelStatusPending  = "pending"
	ModelStatusTraining = "training"
	ModelStatusFinished = "finished"
)

// Model 一次训练任务。
type Model struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	Name   string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Type   string `gorm:"column:type;type:varchar(64)" json:"type"`
	Status string `gorm:"column:status;type:varchar(32);index;not null" json:"status"`

	TuneID string `gorm:"column:tune_id;type:varchar(64)" json:"tune_id"` // Astria tune id
	PackID string `gorm:"column:pack_id;type:varchar(64)" json:"pack_id"`

	// 提交时预扣的积分，回滚时按此退还
	ChargedCredits  int            `gorm:"column:charged_credits;not null;default:0" json:"charged_credits"`
	Characteristics common.JSONMap `gorm:"column:characteristics;type:json" json:"characteristics"`

	Samples []Sample `gorm:"foreignKey:ModelID" json:"samples,omitempty"`
	Images  []Image  `gorm:"foreignKey:ModelID" json:"images,omitempty"`
}

func (Model) TableName() string {
	return "models"
}

// Sample 训练输入图片。
type Sample struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ModelID   uint      `gorm:"column:model_id;index;not null" json:"model_id"`
	URI       string    `gorm:"column:uri;type:varchar(2048);not null" json:"uri"`
}

func (Sample) TableName() string {
	return "samples"
}

// Image 生成结果图片。
type Image struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ModelID   uint      `gorm:"column:model_id;index;not null" json:"model_id"`
	URI       string    `gorm:"column:uri;type:varchar(2048);not null" json:"uri"`
	PromptID  string    `gorm:"column:prompt_id;type:varchar(64)" json:"prompt_id"`
}

func (Image) TableName() string {
	return "images"
}
