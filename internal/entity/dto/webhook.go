package dto

import "headshots/internal/entity/common"

// TuneWebhookPayload Astria 训练完成回调。
type TuneWebhookPayload struct {
	Tune struct {
		ID    common.FlexibleString `json:"id"`
		Title string                `json:"title"`
		Name  string                `json:"name"`
	} `json:"tune"`
}

// PromptWebhookPayload Astria 生图完成回调。
type PromptWebhookPayload struct {
	Prompt struct {
		ID     common.FlexibleString `json:"id"`
		Text   string                `json:"text"`
		TuneID common.FlexibleString `json:"tune_id"`
		Images []string              `json:"images"`
	} `json:"prompt"`
}
