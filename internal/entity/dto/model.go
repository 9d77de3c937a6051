package dto

import "time"

// SampleView 训练样本。
type SampleView struct {
	ID      uint   `json:"id"`
	ModelID uint   `json:"model_id"`
	URI     string `json:"uri"`
}

// ImageView 生成结果。
type ImageView struct {
	ID        uint      `json:"id"`
	ModelID   uint      `json:"model_id"`
	URI       string    `json:"uri"`
	CreatedAt time.Time `json:"created_at"`
}

// ModelView 返回给前端的训练任务。
type ModelView struct {
	ID        uint         `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	Status    string       `json:"status"`
	TuneID    string       `json:"tune_id,omitempty"`
	PackID    string       `json:"pack_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Samples   []SampleView `json:"samples"`
	Images    []ImageView  `json:"images"`
}
